package permission

import (
	"errors"

	"github.com/kawamasaya/well-board/internal/model"
)

// Role-governance rule violations. These messages are user-facing and
// returned verbatim in validation error responses.
var (
	ErrRoleAboveOwn       = errors.New("cannot set a role higher than your own.")
	ErrRoleSuperuser      = errors.New("cannot set superuser role.")
	ErrCreateNoPermission = errors.New("regular users have no permission to create users")
	ErrCreateNeedsAdmin   = errors.New("admin privilege required.")
	ErrCreateSuperuser    = errors.New("cannot create with superuser privilege.")
)

// CanChangeRole checks whether the actor may set a user's role to
// newRole. The rule order matters: the higher-than-own check runs first,
// so actors below superuser get the generic message rather than the
// superuser-specific one.
func CanChangeRole(actor *Actor, newRole model.Role) error {
	if newRole.Outranks(actor.Role) {
		return ErrRoleAboveOwn
	}
	if newRole == model.RoleSuperuser {
		return ErrRoleSuperuser
	}
	return nil
}

// CanCreateUserWithRole checks whether the actor may create a new user
// holding role. Regular users are rejected outright before any
// role-specific rule. Creating an admin requires admin rank or above,
// and nobody may create a superuser.
func CanCreateUserWithRole(actor *Actor, role model.Role) error {
	if actor.Role == model.RoleUser {
		return ErrCreateNoPermission
	}
	if role == model.RoleAdmin && !actor.Role.OutranksOrEqual(model.RoleAdmin) {
		return ErrCreateNeedsAdmin
	}
	if role == model.RoleSuperuser {
		return ErrCreateSuperuser
	}
	return nil
}
