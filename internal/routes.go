package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"floorcurl/internal/config"
	"floorcurl/internal/http"
	"floorcurl/internal/http/middleware"
)

// SetupSession configures session management on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes mounts all application routes using cartridge's route API.
//
// Every path under /admin, /pharmacist or /family goes through the session
// middleware followed by the role gate; nothing privileged is reachable
// outside those namespaces.
func MountAppRoutes(srv *cartridge.Server) {
	SetupSession(srv)

	cfg := config.GetConfig()
	sessionMgr := srv.Session()
	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Stricter rate limiter for auth endpoints (10 requests per minute)
	// Prevents brute force login attempts
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Gated namespaces share the same chain; the gate itself decides which
	// roles a namespace admits based on the request path.
	gatedConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			sessionMgr.Middleware(),
			middleware.RoleGate(db, logger, sessionMgr),
		},
	}

	authenticatedConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			sessionMgr.Middleware(),
		},
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === AUTHENTICATION ROUTES ===
	authConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}
	srv.Get("/login", http.ShowLoginAction)
	srv.Post("/login", http.ProcessLoginAction, authConfig)
	srv.Post("/signup", http.SignupAction, authConfig)
	srv.Post("/logout", http.LogoutAction)

	srv.Get("/me", http.MeAction, authenticatedConfig)

	// === FAMILY ROUTES ===
	srv.Get("/family", http.FamilyElderAction, gatedConfig)
	srv.Get("/family/elder", http.FamilyElderAction, gatedConfig)
	srv.Post("/family/elder/bind", http.FamilyBindElderAction, gatedConfig)
	srv.Post("/family/elder/unbind", http.FamilyUnbindElderAction, gatedConfig)

	// === PHARMACIST ROUTES ===
	srv.Get("/pharmacist", http.PharmacistEldersAction, gatedConfig)
	srv.Get("/pharmacist/elders", http.PharmacistEldersAction, gatedConfig)
	srv.Post("/pharmacist/elders/bind", http.PharmacistBindStoreAction, gatedConfig)
	srv.Get("/pharmacist/matches", http.PharmacistMatchesAction, gatedConfig)
	srv.Post("/pharmacist/matches", http.PharmacistCreateMatchAction, gatedConfig)
	srv.Get("/pharmacist/matches/:id", http.PharmacistMatchAction, gatedConfig)
	srv.Post("/pharmacist/matches/:id/participants", http.PharmacistAddParticipantAction, gatedConfig)
	srv.Post("/pharmacist/matches/:id/result", http.PharmacistRecordResultAction, gatedConfig)
	srv.Post("/pharmacist/points/grant", http.PharmacistGrantPointsAction, gatedConfig)
	srv.Get("/pharmacist/products", http.PharmacistProductsAction, gatedConfig)
	srv.Post("/pharmacist/products/redeem", http.PharmacistRedeemAction, gatedConfig)

	// === ADMIN ROUTES ===
	srv.Get("/admin", http.AdminProfilesAction, gatedConfig)
	srv.Get("/admin/profiles", http.AdminProfilesAction, gatedConfig)
	srv.Post("/admin/profiles", http.AdminCreateProfileAction, gatedConfig)
	srv.Post("/admin/profiles/:id/role", http.AdminSetRoleAction, gatedConfig)
	srv.Post("/admin/profiles/:id/store", http.AdminAssignStoreAction, gatedConfig)

	srv.Get("/admin/stores", http.AdminStoresAction, gatedConfig)
	srv.Post("/admin/stores", http.AdminCreateStoreAction, gatedConfig)
	srv.Post("/admin/stores/:id/active", http.AdminSetStoreActiveAction, gatedConfig)

	srv.Get("/admin/products", http.AdminProductsAction, gatedConfig)
	srv.Post("/admin/products", http.AdminCreateProductAction, gatedConfig)
	srv.Post("/admin/products/:id", http.AdminUpdateProductAction, gatedConfig)

	srv.Get("/admin/transactions", http.AdminTransactionsAction, gatedConfig)
	srv.Post("/admin/points/adjust", http.AdminAdjustPointsAction, gatedConfig)

	srv.Get("/admin/settings", http.AdminSettingsAction, gatedConfig)
	srv.Post("/admin/settings", http.AdminUpdateSettingAction, gatedConfig)
}
