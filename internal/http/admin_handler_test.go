package http_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"floorcurl/internal/profiles"
	"floorcurl/internal/testsupport"
)

func TestAdminCreateProfile(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	store := testsupport.CreateTestStore(t, db, "Create Pharmacy")
	testsupport.CreateTestProfileForAuth(t, db, "create.admin@example.com", "password123", profiles.RoleAdmin)

	app := testsupport.CreateMinimalTestApp(t, db)
	session := testsupport.LoginTestUser(t, app, "create.admin@example.com", "password123", "/admin")
	cookie := fmt.Sprintf("%s=%s", testsupport.SessionCookieName, session)

	createRequest := func(payload string) *http.Response {
		req := testsupport.NewBrowserRequest("POST", "/admin/profiles", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cookie", cookie)

		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("rejects a store that does not exist", func(t *testing.T) {
		resp := createRequest(`{"email":"ghost.pharm@example.com","password":"password123","role":"pharmacist","store_id":99999}`)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])

		_, err := profiles.FindByEmail(db, "ghost.pharm@example.com")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("creates a pharmacist at an existing store", func(t *testing.T) {
		payload := fmt.Sprintf(`{"email":"new.pharm@example.com","password":"password123","role":"pharmacist","store_id":%d}`, store.ID)
		resp := createRequest(payload)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])

		created, err := profiles.FindByEmail(db, "new.pharm@example.com")
		require.NoError(t, err)
		assert.Equal(t, profiles.RolePharmacist, created.Role)
		require.NotNil(t, created.StoreID)
		assert.Equal(t, store.ID, *created.StoreID)
	})
}
