package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"floorcurl/internal/authz"
	"floorcurl/internal/profiles"
)

const profileLocalsKey = "current_profile"

// RoleGate authorizes requests against the path-namespace policy. The role is
// read fresh from the database on every request so a demotion takes effect
// immediately, and any failure along the way denies access rather than
// letting the request through.
func RoleGate(db *gorm.DB, logger *slog.Logger, sessionMgr *cartridge.SessionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := sessionMgr.GetUserID(c)
		if !ok {
			logger.Debug("Gate denied unauthenticated request", slog.String("path", c.Path()))
			return c.Redirect("/login")
		}

		profile, err := profiles.FindByID(db, userID)
		if err != nil {
			// Fail closed: a lookup error is treated the same as no session.
			logger.Warn("Gate could not resolve session profile",
				slog.Any("user_id", userID),
				slog.Any("error", err))
			return c.Redirect("/login")
		}

		if !authz.AllowPath(profile.Role, c.Path()) {
			logger.Info("Gate denied request outside role namespace",
				slog.String("path", c.Path()),
				slog.String("role", profile.Role.String()),
				slog.String("email", profile.Email))
			return c.Redirect("/login")
		}

		c.Locals(profileLocalsKey, profile)
		return c.Next()
	}
}

// CurrentProfile returns the profile resolved by RoleGate for this request.
func CurrentProfile(c *fiber.Ctx) (*profiles.Profile, bool) {
	profile, ok := c.Locals(profileLocalsKey).(*profiles.Profile)
	return profile, ok
}
