package http

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"floorcurl/internal/authz"
	"floorcurl/internal/profiles"
	"floorcurl/internal/settings"
	"floorcurl/internal/shop"
	"floorcurl/internal/stores"
	"floorcurl/internal/wallet"
)

// AdminProfilesAction lists every account in the program.
func AdminProfilesAction(ctx *cartridge.Context) error {
	list, err := profiles.ListAll(ctx.DB())
	if err != nil {
		return domainError(ctx, err)
	}

	resp := make([]ProfileResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toProfileResponse(&list[i]))
	}
	return ok(ctx, fiber.Map{"profiles": resp})
}

// AdminCreateProfileAction creates an account with an explicit role, used to
// onboard pharmacists and elders who never self-register.
func AdminCreateProfileAction(ctx *cartridge.Context) error {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		StoreID     *uint  `json:"store_id"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	role, err := profiles.ParseRole(body.Role)
	if err != nil {
		return fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
	}
	if body.Email == "" || len(body.Password) < 8 {
		return fail(ctx, fiber.StatusUnprocessableEntity, "email and a password of at least 8 characters are required")
	}

	db := ctx.DB()

	if body.StoreID != nil {
		if _, err := stores.FindByID(db, *body.StoreID); err != nil {
			return domainError(ctx, err)
		}
	}

	profile, err := profiles.CreateWithRole(db, ctx.Logger, body.Email, body.Password, body.DisplayName, role, body.StoreID)
	if err != nil {
		if err == profiles.ErrProfileExists {
			return fail(ctx, fiber.StatusConflict, "an account with that email already exists")
		}
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Profile created by admin",
		slog.String("email", profile.Email),
		slog.String("role", profile.Role.String()))

	return created(ctx, fiber.Map{"profile": toProfileResponse(profile)})
}

// AdminSetRoleAction changes an account's role. Takes effect on the target's
// next request since the gate re-reads the role every time.
func AdminSetRoleAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}
	if !authz.CanManageRoles(caller) {
		return domainError(ctx, authz.ErrForbidden)
	}

	profileID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid profile id")
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	role, err := profiles.ParseRole(body.Role)
	if err != nil {
		return fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
	}

	// An admin cannot demote themselves; that would lock the program out.
	if uint(profileID) == caller.ID && role != profiles.RoleAdmin {
		return fail(ctx, fiber.StatusConflict, "cannot change your own role")
	}

	if err := profiles.SetRole(ctx.DB(), ctx.Logger, uint(profileID), role); err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Role changed",
		slog.Int("profile_id", profileID),
		slog.String("new_role", role.String()),
		slog.String("changed_by", caller.Email))

	return ok(ctx, fiber.Map{})
}

// AdminAssignStoreAction sets or clears an account's store assignment.
func AdminAssignStoreAction(ctx *cartridge.Context) error {
	profileID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid profile id")
	}

	var body struct {
		StoreID *uint `json:"store_id"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	db := ctx.DB()

	if body.StoreID != nil {
		if _, err := stores.FindByID(db, *body.StoreID); err != nil {
			return domainError(ctx, err)
		}
	}

	if err := profiles.UpdateStore(db, ctx.Logger, uint(profileID), body.StoreID); err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{})
}

// AdminStoresAction lists every store.
func AdminStoresAction(ctx *cartridge.Context) error {
	list, err := stores.ListAll(ctx.DB())
	if err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{"stores": list})
}

// AdminCreateStoreAction registers a new partner store.
func AdminCreateStoreAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}
	if !authz.CanManageStores(caller) {
		return domainError(ctx, authz.ErrForbidden)
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(body.Name) == "" {
		return fail(ctx, fiber.StatusUnprocessableEntity, "store name is required")
	}

	store := &stores.Store{Name: strings.TrimSpace(body.Name), Active: true}
	if err := stores.Create(ctx.DB(), ctx.Logger, store); err != nil {
		return domainError(ctx, err)
	}
	return created(ctx, fiber.Map{"store": store})
}

// AdminSetStoreActiveAction flips a store's active flag. Deactivated stores
// stop accepting elder bindings and match records immediately.
func AdminSetStoreActiveAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}
	if !authz.CanManageStores(caller) {
		return domainError(ctx, authz.ErrForbidden)
	}

	storeID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid store id")
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	if err := stores.SetActive(ctx.DB(), ctx.Logger, uint(storeID), body.Active); err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{})
}

// AdminProductsAction lists every product across all stores.
func AdminProductsAction(ctx *cartridge.Context) error {
	list, err := shop.ListAll(ctx.DB())
	if err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{"products": list})
}

// AdminCreateProductAction adds a product to the redemption shop. A nil
// store_id makes the product available program-wide.
func AdminCreateProductAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	var body struct {
		Name        string `json:"name"`
		PricePoints int    `json:"price_points"`
		Stock       int    `json:"stock"`
		StoreID     *uint  `json:"store_id"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if !authz.CanManageProducts(caller, body.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	db := ctx.DB()

	if body.StoreID != nil {
		if _, err := stores.FindByID(db, *body.StoreID); err != nil {
			return domainError(ctx, err)
		}
	}

	product := &shop.Product{
		Name:        body.Name,
		PricePoints: body.PricePoints,
		Stock:       body.Stock,
		StoreID:     body.StoreID,
		Active:      true,
	}
	if err := shop.Create(db, ctx.Logger, product); err != nil {
		return fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
	}
	return created(ctx, fiber.Map{"product": product})
}

// AdminUpdateProductAction updates price, stock or availability of a product.
func AdminUpdateProductAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	productID, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid product id")
	}

	db := ctx.DB()

	product, err := shop.FindByID(db, uint(productID))
	if err != nil {
		return domainError(ctx, err)
	}
	if !authz.CanManageProducts(caller, product.StoreID) {
		return domainError(ctx, authz.ErrForbidden)
	}

	var body struct {
		Name        *string `json:"name"`
		PricePoints *int    `json:"price_points"`
		Stock       *int    `json:"stock"`
		Active      *bool   `json:"active"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	if body.Name != nil {
		product.Name = *body.Name
	}
	if body.PricePoints != nil {
		product.PricePoints = *body.PricePoints
	}
	if body.Stock != nil {
		product.Stock = *body.Stock
	}
	if body.Active != nil {
		product.Active = *body.Active
	}

	if err := shop.Update(db, ctx.Logger, product); err != nil {
		return fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
	}
	return ok(ctx, fiber.Map{"product": product})
}

// AdminTransactionsAction shows the most recent ledger entries program-wide.
func AdminTransactionsAction(ctx *cartridge.Context) error {
	list, err := wallet.ListRecent(ctx.DB(), 100)
	if err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{"transactions": list})
}

// AdminAdjustPointsAction applies a manual correction to a wallet. The only
// way points move outside of matches, grants and redemptions.
func AdminAdjustPointsAction(ctx *cartridge.Context) error {
	caller, err := requireProfile(ctx)
	if err != nil {
		return err
	}

	var body struct {
		ProfileID   uint   `json:"profile_id"`
		GlobalDelta int    `json:"global_delta"`
		LocalDelta  int    `json:"local_delta"`
		Note        string `json:"note"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if body.GlobalDelta == 0 && body.LocalDelta == 0 {
		return fail(ctx, fiber.StatusUnprocessableEntity, "adjustment must move points")
	}
	if strings.TrimSpace(body.Note) == "" {
		return fail(ctx, fiber.StatusUnprocessableEntity, "a note explaining the adjustment is required")
	}

	db := ctx.DB()

	if _, err := profiles.FindByID(db, body.ProfileID); err != nil {
		return domainError(ctx, err)
	}

	txn, err := wallet.Adjust(db, ctx.Logger, body.ProfileID, body.GlobalDelta, body.LocalDelta, body.Note)
	if err != nil {
		return domainError(ctx, err)
	}

	ctx.Logger.Info("Manual point adjustment",
		slog.Uint64("profile_id", uint64(body.ProfileID)),
		slog.Int("global_delta", body.GlobalDelta),
		slog.Int("local_delta", body.LocalDelta),
		slog.String("adjusted_by", caller.Email))

	return ok(ctx, fiber.Map{"transaction": txn})
}

// AdminSettingsAction lists the configurable point rules.
func AdminSettingsAction(ctx *cartridge.Context) error {
	list, err := settings.GetAllSettingsForDisplay(ctx.DB())
	if err != nil {
		return domainError(ctx, err)
	}
	return ok(ctx, fiber.Map{"settings": list})
}

// AdminUpdateSettingAction changes a point rule value.
func AdminUpdateSettingAction(ctx *cartridge.Context) error {
	var body struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	if err := settings.UpdateSetting(ctx.DB(), body.Key, body.Value); err != nil {
		return fail(ctx, fiber.StatusUnprocessableEntity, err.Error())
	}
	return ok(ctx, fiber.Map{})
}
