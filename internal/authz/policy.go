// Package authz holds the access policy as plain predicate functions over
// (caller role, caller relationships, target row). Handlers and middleware
// never compare role strings directly; they go through these predicates so
// the rules live in exactly one place.
package authz

import (
	"errors"
	"strings"

	"floorcurl/internal/profiles"
)

// ErrForbidden is returned when an authenticated caller's role or
// relationships do not permit an action.
var ErrForbidden = errors.New("forbidden")

// Role-scoped route namespaces. Paths outside these prefixes are not
// restricted by the request gate.
const (
	AdminNamespace      = "/admin"
	PharmacistNamespace = "/pharmacist"
	FamilyNamespace     = "/family"
)

func inNamespace(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// AllowPath decides whether a role may enter a path. Unknown roles are
// denied everything gated; paths outside the gated namespaces are open.
func AllowPath(role profiles.Role, path string) bool {
	switch {
	case inNamespace(path, AdminNamespace):
		return role == profiles.RoleAdmin
	case inNamespace(path, PharmacistNamespace):
		return role == profiles.RolePharmacist || role == profiles.RoleAdmin
	case inNamespace(path, FamilyNamespace):
		return role == profiles.RoleFamily
	default:
		return true
	}
}

// Gated reports whether the request gate restricts a path at all.
func Gated(path string) bool {
	return inNamespace(path, AdminNamespace) ||
		inNamespace(path, PharmacistNamespace) ||
		inNamespace(path, FamilyNamespace)
}

// CanReadProfile decides whether caller may read target's profile row:
// the owner, any admin, a pharmacist of the same store, or the family
// member linked to that elder.
func CanReadProfile(caller, target *profiles.Profile) bool {
	if caller == nil || target == nil {
		return false
	}
	if caller.ID == target.ID {
		return true
	}
	switch caller.Role {
	case profiles.RoleAdmin:
		return true
	case profiles.RolePharmacist:
		return caller.StoreID != nil && target.StoreID != nil && *caller.StoreID == *target.StoreID
	case profiles.RoleFamily:
		return caller.LinkedElderID != nil && *caller.LinkedElderID == target.ID
	case profiles.RoleElder:
		return false
	}
	return false
}

// CanReadMatch decides whether caller may read a match played at a store:
// any admin, or anyone whose own store matches.
func CanReadMatch(caller *profiles.Profile, matchStoreID uint) bool {
	if caller == nil {
		return false
	}
	if caller.Role == profiles.RoleAdmin {
		return true
	}
	return caller.StoreID != nil && *caller.StoreID == matchStoreID
}

// CanRecordMatch decides whether caller may create matches or record results
// at a store: admins anywhere, pharmacists only at their own store.
func CanRecordMatch(caller *profiles.Profile, storeID uint) bool {
	if caller == nil {
		return false
	}
	switch caller.Role {
	case profiles.RoleAdmin:
		return true
	case profiles.RolePharmacist:
		return caller.StoreID != nil && *caller.StoreID == storeID
	case profiles.RoleFamily, profiles.RoleElder:
		return false
	}
	return false
}

// CanGrantPoints decides whether caller may grant local points to a
// participant of a store.
func CanGrantPoints(caller *profiles.Profile, storeID uint) bool {
	return CanRecordMatch(caller, storeID)
}

// CanManageRoles decides whether caller may overwrite another profile's role.
func CanManageRoles(caller *profiles.Profile) bool {
	return caller != nil && caller.Role == profiles.RoleAdmin
}

// CanManageStores decides whether caller may create or update stores.
func CanManageStores(caller *profiles.Profile) bool {
	return caller != nil && caller.Role == profiles.RoleAdmin
}

// CanManageProducts decides whether caller may edit a store's shop catalog.
// A nil storeID means the program-wide catalog, which is admin-only.
func CanManageProducts(caller *profiles.Profile, storeID *uint) bool {
	if caller == nil {
		return false
	}
	if caller.Role == profiles.RoleAdmin {
		return true
	}
	if caller.Role == profiles.RolePharmacist && storeID != nil {
		return caller.StoreID != nil && *caller.StoreID == *storeID
	}
	return false
}
