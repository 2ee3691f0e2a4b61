package model

// Role is the ordered privilege level of a user. A lower numeric value
// means a higher privilege: Superuser(1) > Admin(2) > Manager(3) > User(4).
type Role int

const (
	RoleSuperuser Role = 1
	RoleAdmin     Role = 2
	RoleManager   Role = 3
	RoleUser      Role = 4
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleSuperuser && r <= RoleUser
}

// Outranks reports whether r is strictly more privileged than other.
func (r Role) Outranks(other Role) bool {
	return r < other
}

// OutranksOrEqual reports whether r is at least as privileged as other.
func (r Role) OutranksOrEqual(other Role) bool {
	return r <= other
}

func (r Role) String() string {
	switch r {
	case RoleSuperuser:
		return "superuser"
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}
