package http_test

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/profiles"
	"floorcurl/internal/testsupport"
)

func TestHealthEndpointIsPublic(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	req := httptest.NewRequest("GET", "/_health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGateRedirectsUnauthenticated(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	for _, path := range []string{
		"/admin",
		"/admin/profiles",
		"/admin/transactions",
		"/pharmacist",
		"/pharmacist/elders",
		"/family",
		"/family/elder",
	} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
		resp, err := app.Test(req)
		require.NoError(t, err)

		// Never a success response, always a redirect to login.
		assert.Equalf(t, fiber.StatusFound, resp.StatusCode, "path %s", path)
		assert.Equalf(t, "/login", resp.Header.Get("Location"), "path %s", path)
	}
}

func TestGateEnforcesRoleNamespaces(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	testsupport.CreateTestProfileForAuth(t, db, "gate.family@example.com", "password123", profiles.RoleFamily)

	app := testsupport.CreateMinimalTestApp(t, db)
	session := testsupport.LoginTestUser(t, app, "gate.family@example.com", "password123", "/family")
	cookie := fmt.Sprintf("%s=%s", testsupport.SessionCookieName, session)

	t.Run("family can reach its own namespace", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/family/elder", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
		req.Header.Set("Cookie", cookie)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("family is redirected out of other namespaces", func(t *testing.T) {
		for _, path := range []string{"/admin", "/admin/profiles", "/pharmacist", "/pharmacist/elders"} {
			req := httptest.NewRequest("GET", path, nil)
			req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
			req.Header.Set("Cookie", cookie)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equalf(t, fiber.StatusFound, resp.StatusCode, "path %s", path)
			assert.Equalf(t, "/login", resp.Header.Get("Location"), "path %s", path)
		}
	})
}

func TestAdminReachesPharmacistNamespace(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	store := testsupport.CreateTestStore(t, db, "Gate Pharmacy")
	admin := testsupport.CreateTestProfileForAuth(t, db, "gate.admin@example.com", "password123", profiles.RoleAdmin)
	require.NoError(t, db.Model(admin).Update("store_id", store.ID).Error)

	app := testsupport.CreateMinimalTestApp(t, db)
	session := testsupport.LoginTestUser(t, app, "gate.admin@example.com", "password123", "/admin")
	cookie := fmt.Sprintf("%s=%s", testsupport.SessionCookieName, session)

	for _, path := range []string{"/admin/profiles", "/pharmacist/elders"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
		req.Header.Set("Cookie", cookie)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equalf(t, fiber.StatusOK, resp.StatusCode, "path %s", path)
	}
}
