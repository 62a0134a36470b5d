package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/flash"

	"floorcurl/internal/profiles"
	"floorcurl/internal/settings"
	"floorcurl/internal/wallet"
)

// roleHome maps a role to the namespace it lands on after login.
func roleHome(role profiles.Role) string {
	switch role {
	case profiles.RoleAdmin:
		return "/admin"
	case profiles.RolePharmacist:
		return "/pharmacist"
	default:
		return "/family"
	}
}

// ShowLoginAction handles GET /login. Authenticated users are sent to their
// role home instead of seeing the login form again.
func ShowLoginAction(ctx *cartridge.Context) error {
	ctx.Logger.Debug("is authenticated", slog.Bool("isAuthenticated", ctx.Session.IsAuthenticated(ctx.Ctx)))

	if userID, ok := ctx.Session.GetUserID(ctx.Ctx); ok {
		if profile, err := profiles.FindByID(ctx.DB(), userID); err == nil {
			return ctx.Redirect(roleHome(profile.Role))
		}
	}

	return ok(ctx, fiber.Map{"authenticated": false})
}

// ProcessLoginAction handles the login form submission
func ProcessLoginAction(ctx *cartridge.Context) error {
	email := ctx.FormValue("email")
	password := ctx.FormValue("password")

	if email == "" && password == "" {
		var jsonBody struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.BodyParser(&jsonBody); err == nil {
			email = jsonBody.Email
			password = jsonBody.Password
		}
	}

	if email == "" || password == "" {
		flash.SetFlash(ctx.Ctx, "error", "Email and password are required")
		return ctx.Redirect("/login", fiber.StatusFound)
	}

	db := ctx.DB()

	profile, result := profiles.FindByEmail(db, email)

	// Always verify a password so response time does not reveal whether the
	// email exists.
	var passwordValid bool
	if result != nil {
		ctx.Logger.Debug("Profile not found during login",
			slog.String("email", email))
		dummyHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy" // bcrypt hash of "dummy"
		crypto.VerifyPassword(dummyHash, password)
		passwordValid = false
	} else {
		passwordValid = crypto.VerifyPassword(profile.EncryptedPassword, password)
		if !passwordValid {
			ctx.Logger.Debug("Invalid password attempt",
				slog.String("email", email))
		}
	}

	if !passwordValid {
		// Generic error message - don't reveal whether email exists
		flash.SetFlash(ctx.Ctx, "error", "Invalid email or password")
		return ctx.Redirect("/login", fiber.StatusFound)
	}

	if err := ctx.Session.SetSession(ctx.Ctx, profile.ID); err != nil {
		ctx.Logger.Error("Failed to set session", slog.Any("error", err))
		flash.SetFlash(ctx.Ctx, "error", "Login failed")
		return ctx.Redirect("/login", fiber.StatusFound)
	}
	ctx.Logger.Debug("Login successful",
		slog.String("email", email),
		slog.String("role", profile.Role.String()),
		slog.Int("userId", int(profile.ID)))

	return ctx.Redirect(roleHome(profile.Role), fiber.StatusFound)
}

// SignupAction registers a new family account and credits the signup bonus.
func SignupAction(ctx *cartridge.Context) error {
	var body struct {
		Email       string `json:"email" form:"email"`
		Password    string `json:"password" form:"password"`
		DisplayName string `json:"display_name" form:"display_name"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	if body.Email == "" || len(body.Password) < 8 {
		return fail(ctx, fiber.StatusUnprocessableEntity, "email and a password of at least 8 characters are required")
	}

	db := ctx.DB()

	profile, err := profiles.Register(db, ctx.Logger, body.Email, body.Password, body.DisplayName)
	if err != nil {
		if err == profiles.ErrProfileExists {
			return fail(ctx, fiber.StatusConflict, "an account with that email already exists")
		}
		ctx.Logger.Error("Failed to register profile", slog.Any("error", err))
		return fail(ctx, fiber.StatusInternalServerError, "signup failed")
	}

	if bonus := settings.PointsForSignup(db); bonus > 0 {
		if _, err := wallet.Adjust(db, ctx.Logger, profile.ID, bonus, 0, "signup bonus"); err != nil {
			// The account exists either way; the bonus can be granted manually.
			ctx.Logger.Error("Failed to credit signup bonus",
				slog.Uint64("profile_id", uint64(profile.ID)),
				slog.Any("error", err))
		}
	}

	if err := ctx.Session.SetSession(ctx.Ctx, profile.ID); err != nil {
		ctx.Logger.Error("Failed to set session after signup", slog.Any("error", err))
		return ctx.Redirect("/login", fiber.StatusFound)
	}

	ctx.Logger.Info("New family account registered", slog.String("email", profile.Email))
	return ctx.Redirect("/family", fiber.StatusFound)
}

// LogoutAction handles user logout
func LogoutAction(ctx *cartridge.Context) error {
	userID, isAuthenticated := ctx.Session.GetUserID(ctx.Ctx)
	ctx.Logger.Debug("LogoutAction: Current auth state",
		slog.Uint64("userID", uint64(userID)),
		slog.Bool("isAuthenticated", isAuthenticated))

	ctx.Session.ClearSession(ctx.Ctx)

	flash.SetFlash(ctx.Ctx, "success", "You have been successfully logged out")
	return ctx.Redirect("/login", fiber.StatusFound)
}
