// Package permission implements the capability checks that gate every
// tenant-scoped request. Checks are pure functions of the acting
// identity, the tenant id taken from the request path, and an optional
// target object; nothing is read from ambient state.
package permission

import (
	"github.com/kawamasaya/well-board/internal/model"
)

// Actor is the authenticated identity a request acts as. ManagedTeamIDs
// is only populated for manager and admin roles.
type Actor struct {
	UserID         uint
	TenantID       uint
	Role           model.Role
	ManagedTeamIDs []uint
}

// TenantScoped is implemented by entities that belong to a tenant.
type TenantScoped interface {
	GetTenantID() uint
}

// Owned is implemented by entities with an owning user.
type Owned interface {
	GetOwnerID() uint
}

// IsAuthenticated reports whether the actor was resolved from a valid
// credential.
func IsAuthenticated(actor *Actor) bool {
	return actor != nil && actor.UserID != 0
}

// TenantMatches reports whether the tenant id in the request path is
// absent (zero) or equals the actor's tenant. A mismatch always denies.
func TenantMatches(actor *Actor, urlTenantID uint) bool {
	return urlTenantID == 0 || urlTenantID == actor.TenantID
}

// ObjectInTenant reports whether obj belongs to the actor's tenant. A nil
// object passes; only a tenant mismatch denies.
func ObjectInTenant(actor *Actor, obj TenantScoped) bool {
	return obj == nil || obj.GetTenantID() == actor.TenantID
}

// IsAdminOrManager allows superusers, admins and managers of the
// request's tenant.
func IsAdminOrManager(actor *Actor, urlTenantID uint) bool {
	if !IsAuthenticated(actor) {
		return false
	}
	if !TenantMatches(actor, urlTenantID) {
		return false
	}
	return actor.Role.OutranksOrEqual(model.RoleManager)
}

// IsOwnerOrAdmin allows admins of the tenant, or the owner of obj. When
// obj is a user record, owning means being that user.
func IsOwnerOrAdmin(actor *Actor, urlTenantID uint, obj TenantScoped) bool {
	if !IsAuthenticated(actor) {
		return false
	}
	if !TenantMatches(actor, urlTenantID) {
		return false
	}
	if !ObjectInTenant(actor, obj) {
		return false
	}
	if actor.Role.OutranksOrEqual(model.RoleAdmin) {
		return true
	}
	if owned, ok := obj.(Owned); ok {
		return owned.GetOwnerID() == actor.UserID
	}
	if user, ok := obj.(*model.User); ok {
		return user.ID == actor.UserID
	}
	return false
}

// IsTeamManagerOrSelf gates the dashboard read. It only verifies
// authentication and tenant membership here; narrowing to managed teams
// or the actor's own entries happens in the entry store query.
func IsTeamManagerOrSelf(actor *Actor, urlTenantID uint) bool {
	if !IsAuthenticated(actor) {
		return false
	}
	return TenantMatches(actor, urlTenantID)
}

// IsTenantUser allows any authenticated member of the request's tenant,
// optionally checking a target object's tenant as well.
func IsTenantUser(actor *Actor, urlTenantID uint, obj TenantScoped) bool {
	if !IsAuthenticated(actor) {
		return false
	}
	if !TenantMatches(actor, urlTenantID) {
		return false
	}
	return ObjectInTenant(actor, obj)
}
