package http_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/profiles"
	"floorcurl/internal/testsupport"
)

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestFamilyBindElder(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	store := testsupport.CreateTestStore(t, db, "Bind Pharmacy")
	elder := testsupport.CreateTestElder(t, db, "bind.elder@example.com", store.ID)
	testsupport.CreateTestProfileForAuth(t, db, "bind.family@example.com", "password123", profiles.RoleFamily)

	app := testsupport.CreateMinimalTestApp(t, db)
	session := testsupport.LoginTestUser(t, app, "bind.family@example.com", "password123", "/family")
	cookie := fmt.Sprintf("%s=%s", testsupport.SessionCookieName, session)

	bindRequest := func(token string) *http.Response {
		payload := fmt.Sprintf(`{"token":%q}`, token)
		req := testsupport.NewBrowserRequest("POST", "/family/elder/bind", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cookie", cookie)

		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("rejects a malformed token with success cleared", func(t *testing.T) {
		resp := bindRequest("not-a-valid-token")
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "invalid binding token", body["error"])
	})

	t.Run("links the elder and reports success", func(t *testing.T) {
		resp := bindRequest(elder.PublicID)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])

		linked, okCast := body["elder"].(map[string]any)
		require.True(t, okCast)
		assert.Equal(t, elder.PublicID, linked["public_id"])
	})

	t.Run("elder view carries the success flag too", func(t *testing.T) {
		req := testsupport.NewBrowserRequest("GET", "/family/elder", nil)
		req.Header.Set("Cookie", cookie)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
	})
}
