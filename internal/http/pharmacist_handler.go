package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"floorcurl/internal/authz"
	"floorcurl/internal/binding"
	"floorcurl/internal/matches"
	"floorcurl/internal/profiles"
	"floorcurl/internal/shop"
	"floorcurl/internal/wallet"
)

// PharmacistBindStoreAction assigns the calling pharmacist to the store named
// by a scanned badge token.
func PharmacistBindStoreAction(ctx *cartridge.Context) error {
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
	elder, err := linker.BindStore(caller, body.Token)
	if err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Elder assigned to store",
		slog.String("pharmacist", caller.Email),
		slog.String("elder_public_id", elder.PublicID))

	return ok(ctx, fiber.Map{"elder": toProfileResponse(elder)})
}

// PharmacistEldersAction lists the elders registered at the caller's store.
func PharmacistEldersAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.StoreID == nil {
		return domainError(ctx, binding.ErrStoreNotAssigned)
	}

	elders, err := profiles.ListEldersByStore(ctx.DB(), *caller.StoreID)
	if err != nil {
		return domainError(ctx, err)
	}

	resp := make([]ProfileResponse, 0, len(elders))
	for i := range elders {
		resp = append(resp, toProfileResponse(&elders[i]))
	}
	return ok(ctx, fiber.Map{"elders": resp})
}

// PharmacistMatchesAction lists recent matches at the caller's store.
func PharmacistMatchesAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.StoreID == nil {
		return domainError(ctx, binding.ErrStoreNotAssigned)
	}

	list, err := matches.ListByStore(ctx.DB(), *caller.StoreID, 50)
	if err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{"matches": list})
}

// PharmacistMatchAction returns one match with its roster.
func PharmacistMatchAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	matchID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid match id")
	}

	db := ctx.DB()

	match, err := matches.FindByID(db, uint(matchID))
	if err != nil {
		return domainError(ctx, err)
	}
	if !authz.CanReadMatch(caller, match.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	roster, err := matches.ParticipantsOf(db, match.ID)
	if err != nil {
		return domainError(ctx, err)
	}

	return ok(ctx, fiber.Map{"match": match, "participants": roster})
}

// PharmacistCreateMatchAction opens a match at the caller's store.
func PharmacistCreateMatchAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.StoreID == nil {
		return domainError(ctx, binding.ErrStoreNotAssigned)
	}
	if !authz.CanRecordMatch(caller, *caller.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	var body struct {
		PlayedAt time.Time `json:"played_at"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	match, err := matches.Create(ctx.DB(), ctx.Logger, *caller.StoreID, body.PlayedAt)
	if err != nil {
		return domainError(ctx, err)
	}
	return created(ctx, fiber.Map{"match": match})
}

// PharmacistAddParticipantAction adds an elder to a team of an open match.
func PharmacistAddParticipantAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	matchID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid match id")
	}

	var body struct {
		ElderPublicID string `json:"elder_public_id"`
		Team          string `json:"team"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	db := ctx.DB()

	match, err := matches.FindByID(db, uint(matchID))
	if err != nil {
		return domainError(ctx, err)
	}
	if !authz.CanRecordMatch(caller, match.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	elder, err := profiles.FindByPublicID(db, body.ElderPublicID)
	if err != nil {
		return domainError(ctx, err)
	}

	if err := matches.AddParticipant(db, ctx.Logger, match.ID, elder, matches.Team(body.Team)); err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{})
}

// PharmacistRecordResultAction settles a match: scores are stored and the
// participation and win points are credited in one shot.
func PharmacistRecordResultAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	matchID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid match id")
	}

	var body struct {
		RedScore  int `json:"red_score"`
		BlueScore int `json:"blue_score"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if body.RedScore < 0 || body.BlueScore < 0 {
		return fail(ctx, fiber.StatusUnprocessableEntity, "scores must be non-negative")
	}

	db := ctx.DB()

	match, err := matches.FindByID(db, uint(matchID))
	if err != nil {
		return domainError(ctx, err)
	}
	if !authz.CanRecordMatch(caller, match.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	result, err := matches.RecordResult(db, ctx.Logger, match.ID, body.RedScore, body.BlueScore)
	if err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Match result recorded",
		slog.Uint64("match_id", uint64(match.ID)),
		slog.String("recorded_by", caller.Email),
		slog.String("winning_team", string(result.WinningTeam)))

	return ok(ctx, fiber.Map{
		"match":        result.Match,
		"winning_team": result.WinningTeam,
		"winners":      result.Winners,
		"participants": result.Participants,
	})
}

// PharmacistGrantPointsAction credits local points to an elder at the
// caller's store, outside of match play.
func PharmacistGrantPointsAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.StoreID == nil {
		return domainError(ctx, binding.ErrStoreNotAssigned)
	}
	if !authz.CanGrantPoints(caller, *caller.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	var body struct {
		ElderPublicID string `json:"elder_public_id"`
		Amount        int    `json:"amount"`
		Note          string `json:"note"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if body.Amount <= 0 {
		return fail(ctx, fiber.StatusUnprocessableEntity, "amount must be positive")
	}

	db := ctx.DB()

	elder, err := profiles.FindByPublicID(db, body.ElderPublicID)
	if err != nil {
		return domainError(ctx, err)
	}
	if elder.Role != profiles.RoleElder || elder.StoreID == nil || *elder.StoreID != *caller.StoreID {
		return domainError(ctx, &binding.ElderNotFoundError{PublicID: body.ElderPublicID})
	}

	txn, err := wallet.GrantLocal(db, ctx.Logger, elder.ID, caller.StoreID, body.Amount, body.Note)
	if err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Local points granted",
		slog.String("elder_public_id", elder.PublicID),
		slog.Int("amount", body.Amount),
		slog.String("granted_by", caller.Email))

	return ok(ctx, fiber.Map{"transaction": txn})
}

// PharmacistProductsAction lists the products redeemable at the caller's store.
func PharmacistProductsAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.StoreID == nil {
		return domainError(ctx, binding.ErrStoreNotAssigned)
	}

	products, err := shop.ListForStore(ctx.DB(), *caller.StoreID)
	if err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{"products": products})
}

// PharmacistRedeemAction redeems a product against an elder's local points.
func PharmacistRedeemAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	if caller.StoreID == nil {
		return domainError(ctx, binding.ErrStoreNotAssigned)
	}

	var body struct {
		ElderPublicID string `json:"elder_public_id"`
		ProductID     uint   `json:"product_id"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	db := ctx.DB()

	elder, err := profiles.FindByPublicID(db, body.ElderPublicID)
	if err != nil {
		return domainError(ctx, err)
	}
	if elder.Role != profiles.RoleElder || elder.StoreID == nil || *elder.StoreID != *caller.StoreID {
		return domainError(ctx, &binding.ElderNotFoundError{PublicID: body.ElderPublicID})
	}

	product, err := shop.FindByID(db, body.ProductID)
	if err != nil {
		return domainError(ctx, err)
	}
	// A store-scoped product can only be redeemed at its own store.
	if product.StoreID != nil && *product.StoreID != *caller.StoreID {
		return domainError(ctx, &shop.ProductNotFoundError{ID: body.ProductID})
	}

	txn, err := shop.Redeem(db, ctx.Logger, elder.ID, product.ID)
	if err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Product redeemed",
		slog.String("elder_public_id", elder.PublicID),
		slog.String("product", product.Name),
		slog.String("redeemed_by", caller.Email))

	return ok(ctx, fiber.Map{"transaction": txn})
}
