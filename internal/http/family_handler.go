package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"floorcurl/internal/authz"
	"floorcurl/internal/binding"
	"floorcurl/internal/profiles"
	"floorcurl/internal/wallet"
)

// FamilyElderAction returns the elder linked to the calling family account,
// including the elder's wallet and recent ledger entries.
func FamilyElderAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.LinkedElderID == nil {
		return ok(ctx, fiber.Map{"elder": nil})
	}

	db := ctx.DB()

	elder, err := profiles.FindByID(db, *caller.LinkedElderID)
	if err != nil {
		return domainError(ctx, err)
	}

	if !authz.CanReadProfile(caller, elder) {
		return domainError(ctx, authz.ErrForbidden)
	}

	balance, err := wallet.BalanceOf(db, ctx.Logger, elder.ID)
	if err != nil {
		return domainError(ctx, err)
	}

	history, err := wallet.HistoryOf(db, elder.ID, 20)
	if err != nil {
		return domainError(ctx, err)
	}

	return ok(ctx, fiber.Map{
		"elder": toProfileResponse(elder),
		"wallet": fiber.Map{
			"global_points": balance.GlobalPoints,
			"local_points":  balance.LocalPoints,
		},
		"history": history,
	})
}

// FamilyBindElderAction links the calling family account to the elder named
// by a scanned badge token.
func FamilyBindElderAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	var body struct {
		Token string `json:"token" form:"token"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	linker := binding.NewLinker(ctx.DB(), ctx.Logger)
	elder, err := linker.BindFamily(caller, body.Token)
	if err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Family account linked to elder",
		slog.String("family", caller.Email),
		slog.String("elder_public_id", elder.PublicID))

	return ok(ctx, fiber.Map{"elder": toProfileResponse(elder)})
}

// FamilyUnbindElderAction removes the elder link from the calling account.
func FamilyUnbindElderAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	linker := binding.NewLinker(ctx.DB(), ctx.Logger)
	if err := linker.UnbindFamily(caller); err != nil {
		return domainError(ctx, err)
	}

	return ok(ctx, fiber.Map{"elder": nil})
}
