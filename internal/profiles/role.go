package profiles

import "fmt"

// Role is the closed set of participant roles. Every authorization decision
// in the application is a total match over this enumeration.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleFamily     Role = "family"
	RoleElder      Role = "elder"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleFamily, RoleElder:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// AllRoles returns every known role, for iteration in validation and tests.
func AllRoles() []Role {
	return []Role{RoleAdmin, RolePharmacist, RoleFamily, RoleElder}
}
