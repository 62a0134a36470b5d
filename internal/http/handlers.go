package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"floorcurl/internal/authz"
	"floorcurl/internal/binding"
	"floorcurl/internal/http/middleware"
	"floorcurl/internal/matches"
	"floorcurl/internal/profiles"
	"floorcurl/internal/shop"
	"floorcurl/internal/stores"
	"floorcurl/internal/wallet"
)

// errGateProfileMissing signals that a handler behind RoleGate was reached
// without the gate having resolved a profile, i.e. the route was mounted
// without the gate middleware.
var errGateProfileMissing = errors.New("handler reached without gate-resolved profile")

// requireProfile returns the profile the gate resolved for this request.
// Handlers behind RoleGate can rely on it being present; anything else is a
// wiring bug and fails the request instead of proceeding with no caller.
func requireProfile(ctx *cartridge.Context) (*profiles.Profile, error) {
	profile, ok := middleware.CurrentProfile(ctx.Ctx)
	if !ok {
		ctx.Logger.Error("Handler reached without gate-resolved profile", slog.String("path", ctx.Path()))
		return nil, errGateProfileMissing
	}
	return profile, nil
}

// ok renders a 200 response. Every JSON body carries a success flag so
// clients can branch on it without inspecting status codes.
func ok(ctx *cartridge.Context, payload fiber.Map) error {
	payload["success"] = true
	return ctx.JSON(payload)
}

// created renders a 201 response with the success flag set.
func created(ctx *cartridge.Context, payload fiber.Map) error {
	payload["success"] = true
	return ctx.Status(fiber.StatusCreated).JSON(payload)
}

// fail renders an error response with the success flag cleared.
func fail(ctx *cartridge.Context, status int, message string) error {
	return ctx.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

// domainError translates domain errors into HTTP responses so handlers do not
// repeat the same switch.
func domainError(ctx *cartridge.Context, err error) error {
	var elderNotFound *binding.ElderNotFoundError
	var storeNotFound *stores.StoreNotFoundError
	var matchNotFound *matches.MatchNotFoundError
	var productNotFound *shop.ProductNotFoundError

	switch {
	case errors.Is(err, authz.ErrForbidden):
		return fail(ctx, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, binding.ErrInvalidToken):
		return fail(ctx, fiber.StatusUnprocessableEntity, "invalid binding token")
	case errors.Is(err, binding.ErrStoreNotAssigned):
		return fail(ctx, fiber.StatusConflict, "no store assigned to this account")
	case errors.Is(err, binding.ErrStoreInactive):
		return fail(ctx, fiber.StatusConflict, "store is not active")
	case errors.Is(err, wallet.ErrInsufficientPoints):
		return fail(ctx, fiber.StatusConflict, "insufficient points")
	case errors.Is(err, matches.ErrAlreadyRecorded):
		return fail(ctx, fiber.StatusConflict, "match result already recorded")
	case errors.Is(err, matches.ErrNoParticipants):
		return fail(ctx, fiber.StatusConflict, "match has no participants")
	case errors.Is(err, shop.ErrOutOfStock):
		return fail(ctx, fiber.StatusConflict, "product is out of stock")
	case errors.Is(err, shop.ErrProductInactive):
		return fail(ctx, fiber.StatusConflict, "product is not available")
	case errors.As(err, &elderNotFound),
		errors.As(err, &storeNotFound),
		errors.As(err, &matchNotFound),
		errors.As(err, &productNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return fail(ctx, fiber.StatusNotFound, "not found")
	default:
		ctx.Logger.Error("Unhandled error in handler",
			slog.String("path", ctx.Path()),
			slog.Any("error", err))
		return fail(ctx, fiber.StatusInternalServerError, "internal error")
	}
}

// ProfileResponse is the public shape of a profile. The password hash and the
// internal store linkage never leave the server.
type ProfileResponse struct {
	ID            uint   `json:"id"`
	PublicID      string `json:"public_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	StoreID       *uint  `json:"store_id,omitempty"`
	LinkedElderID *uint  `json:"linked_elder_id,omitempty"`
}

func toProfileResponse(p *profiles.Profile) ProfileResponse {
	return ProfileResponse{
		ID:            p.ID,
		PublicID:      p.PublicID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		Role:          p.Role.String(),
		StoreID:       p.StoreID,
		LinkedElderID: p.LinkedElderID,
	}
}
