package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"floorcurl/internal/authz"
	"floorcurl/internal/profiles"
)

func uintPtr(v uint) *uint { return &v }

func TestAllowPath(t *testing.T) {
	cases := []struct {
		role    profiles.Role
		path    string
		allowed bool
	}{
		{profiles.RoleAdmin, "/admin", true},
		{profiles.RoleAdmin, "/admin/profiles", true},
		{profiles.RoleAdmin, "/pharmacist/matches", true},
		{profiles.RoleAdmin, "/family/elder", false},

		{profiles.RolePharmacist, "/pharmacist", true},
		{profiles.RolePharmacist, "/pharmacist/matches", true},
		{profiles.RolePharmacist, "/admin", false},
		{profiles.RolePharmacist, "/admin/profiles", false},
		{profiles.RolePharmacist, "/family/elder", false},

		{profiles.RoleFamily, "/family", true},
		{profiles.RoleFamily, "/family/elder", true},
		{profiles.RoleFamily, "/admin", false},
		{profiles.RoleFamily, "/pharmacist", false},

		{profiles.RoleElder, "/family", false},
		{profiles.RoleElder, "/admin", false},
		{profiles.RoleElder, "/pharmacist", false},
	}

	for _, c := range cases {
		assert.Equalf(t, c.allowed, authz.AllowPath(c.role, c.path),
			"role %s path %s", c.role, c.path)
	}
}

func TestAllowPathPrefixBoundaries(t *testing.T) {
	// A namespace only matches on a path-segment boundary. Near-miss paths
	// like /administrator fall outside every gated namespace, so they are
	// ungated and open to any role.
	assert.False(t, authz.Gated("/administrator"))
	assert.False(t, authz.Gated("/pharmacists"))
	assert.False(t, authz.Gated("/family-room"))

	assert.True(t, authz.AllowPath(profiles.RoleFamily, "/administrator"))
	assert.True(t, authz.AllowPath(profiles.RoleElder, "/pharmacists"))
	assert.True(t, authz.AllowPath(profiles.RolePharmacist, "/family-room"))
}

func TestGated(t *testing.T) {
	assert.True(t, authz.Gated("/admin"))
	assert.True(t, authz.Gated("/pharmacist/matches"))
	assert.True(t, authz.Gated("/family/elder/bind"))
	assert.False(t, authz.Gated("/login"))
	assert.False(t, authz.Gated("/_health"))
	assert.False(t, authz.Gated("/me"))
}

func TestCanReadProfile(t *testing.T) {
	storeA := uintPtr(1)
	storeB := uintPtr(2)

	elderA := &profiles.Profile{ID: 10, Role: profiles.RoleElder, StoreID: storeA}
	elderB := &profiles.Profile{ID: 11, Role: profiles.RoleElder, StoreID: storeB}

	t.Run("everyone reads their own profile", func(t *testing.T) {
		for _, role := range profiles.AllRoles() {
			p := &profiles.Profile{ID: 1, Role: role}
			assert.Truef(t, authz.CanReadProfile(p, p), "role %s", role)
		}
	})

	t.Run("admin reads anyone", func(t *testing.T) {
		admin := &profiles.Profile{ID: 1, Role: profiles.RoleAdmin}
		assert.True(t, authz.CanReadProfile(admin, elderA))
		assert.True(t, authz.CanReadProfile(admin, elderB))
	})

	t.Run("pharmacist reads elders at own store only", func(t *testing.T) {
		pharmacist := &profiles.Profile{ID: 2, Role: profiles.RolePharmacist, StoreID: storeA}
		assert.True(t, authz.CanReadProfile(pharmacist, elderA))
		assert.False(t, authz.CanReadProfile(pharmacist, elderB))
	})

	t.Run("pharmacist without store reads nobody else", func(t *testing.T) {
		pharmacist := &profiles.Profile{ID: 2, Role: profiles.RolePharmacist}
		assert.False(t, authz.CanReadProfile(pharmacist, elderA))
	})

	t.Run("family reads linked elder only", func(t *testing.T) {
		family := &profiles.Profile{ID: 3, Role: profiles.RoleFamily, LinkedElderID: uintPtr(10)}
		assert.True(t, authz.CanReadProfile(family, elderA))
		assert.False(t, authz.CanReadProfile(family, elderB))

		unlinked := &profiles.Profile{ID: 4, Role: profiles.RoleFamily}
		assert.False(t, authz.CanReadProfile(unlinked, elderA))
	})

	t.Run("elder reads nobody else", func(t *testing.T) {
		assert.False(t, authz.CanReadProfile(elderA, elderB))
	})
}

func TestCanRecordMatch(t *testing.T) {
	admin := &profiles.Profile{ID: 1, Role: profiles.RoleAdmin}
	pharmacistA := &profiles.Profile{ID: 2, Role: profiles.RolePharmacist, StoreID: uintPtr(1)}
	family := &profiles.Profile{ID: 3, Role: profiles.RoleFamily}

	assert.True(t, authz.CanRecordMatch(admin, 1))
	assert.True(t, authz.CanRecordMatch(admin, 2))

	assert.True(t, authz.CanRecordMatch(pharmacistA, 1))
	assert.False(t, authz.CanRecordMatch(pharmacistA, 2))

	assert.False(t, authz.CanRecordMatch(family, 1))
}

func TestCanReadMatch(t *testing.T) {
	admin := &profiles.Profile{ID: 1, Role: profiles.RoleAdmin}
	pharmacistA := &profiles.Profile{ID: 2, Role: profiles.RolePharmacist, StoreID: uintPtr(1)}

	assert.True(t, authz.CanReadMatch(admin, 2))
	assert.True(t, authz.CanReadMatch(pharmacistA, 1))
	assert.False(t, authz.CanReadMatch(pharmacistA, 2))
}

func TestCanManageProducts(t *testing.T) {
	admin := &profiles.Profile{ID: 1, Role: profiles.RoleAdmin}
	pharmacistA := &profiles.Profile{ID: 2, Role: profiles.RolePharmacist, StoreID: uintPtr(1)}

	// Program-wide products are admin-only.
	assert.True(t, authz.CanManageProducts(admin, nil))
	assert.False(t, authz.CanManageProducts(pharmacistA, nil))

	assert.True(t, authz.CanManageProducts(admin, uintPtr(1)))
	assert.True(t, authz.CanManageProducts(pharmacistA, uintPtr(1)))
	assert.False(t, authz.CanManageProducts(pharmacistA, uintPtr(2)))
}

func TestCanManageRolesAndStores(t *testing.T) {
	admin := &profiles.Profile{ID: 1, Role: profiles.RoleAdmin}
	pharmacist := &profiles.Profile{ID: 2, Role: profiles.RolePharmacist}
	family := &profiles.Profile{ID: 3, Role: profiles.RoleFamily}

	assert.True(t, authz.CanManageRoles(admin))
	assert.True(t, authz.CanManageStores(admin))
	assert.False(t, authz.CanManageRoles(pharmacist))
	assert.False(t, authz.CanManageStores(pharmacist))
	assert.False(t, authz.CanManageRoles(family))
}
