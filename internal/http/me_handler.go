package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"floorcurl/internal/profiles"
	"floorcurl/internal/wallet"
)

// MeAction returns the authenticated profile with its wallet balance and
// recent ledger entries. Available to every role.
func MeAction(ctx *cartridge.Context) error {
	userID, authed := ctx.Session.GetUserID(ctx.Ctx)
	if !authed {
		return ctx.Redirect("/login")
	}

	db := ctx.DB()

	profile, err := profiles.FindByID(db, userID)
	if err != nil {
		return domainError(ctx, err)
	}

	balance, err := wallet.BalanceOf(db, ctx.Logger, profile.ID)
	if err != nil {
		return domainError(ctx, err)
	}

	history, err := wallet.HistoryOf(db, profile.ID, 20)
	if err != nil {
		return domainError(ctx, err)
	}

	return ok(ctx, fiber.Map{
		"profile": toProfileResponse(profile),
		"wallet": fiber.Map{
			"global_points": balance.GlobalPoints,
			"local_points":  balance.LocalPoints,
		},
		"history": history,
	})
}
