// Package binding establishes the elder-family and elder-store relationships
// from scanned badge tokens. The Linker is the only code path that writes
// relationship fields on another participant's row, and it re-checks the
// caller's authorization before every such write.
package binding

import (
	"errors"
	"fmt"

	"log/slog"

	"gorm.io/gorm"

	"floorcurl/internal/authz"
	"floorcurl/internal/profiles"
	"floorcurl/internal/stores"
)

// ErrStoreNotAssigned is returned when a pharmacist without a store
// assignment attempts to bind an elder.
var ErrStoreNotAssigned = errors.New("caller has no store assigned")

// ErrStoreInactive is returned when the caller's store is out of service.
var ErrStoreInactive = errors.New("store is not active")

// ElderNotFoundError is returned when a well-formed token does not resolve
// to an existing elder.
type ElderNotFoundError struct {
	PublicID string
}

func (e *ElderNotFoundError) Error() string {
	return fmt.Sprintf("no elder with badge id %s", e.PublicID)
}

// Linker applies binding changes.
type Linker struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewLinker creates a Linker with injected dependencies.
func NewLinker(db *gorm.DB, logger *slog.Logger) *Linker {
	return &Linker{db: db, logger: logger}
}

// resolveElder parses a scanned token and looks up the elder it names.
// Parse and validation both happen before any caller may write.
func (l *Linker) resolveElder(raw string) (*profiles.Profile, error) {
	publicID, err := ParseElderToken(raw)
	if err != nil {
		return nil, err
	}

	target, err := profiles.FindByPublicID(l.db, publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ElderNotFoundError{PublicID: publicID}
		}
		return nil, err
	}
	if target.Role != profiles.RoleElder {
		// A badge id for a non-elder account is treated as unknown, so the
		// response does not leak what kind of account it is.
		return nil, &ElderNotFoundError{PublicID: publicID}
	}
	return target, nil
}

// BindFamily links the calling family member to the elder named by the
// scanned token. Re-binding to the same elder is a no-op; binding to a
// different elder overwrites with no history kept.
func (l *Linker) BindFamily(caller *profiles.Profile, raw string) (*profiles.Profile, error) {
	if caller == nil || caller.Role != profiles.RoleFamily {
		return nil, authz.ErrForbidden
	}

	elder, err := l.resolveElder(raw)
	if err != nil {
		return nil, err
	}

	if caller.LinkedElderID != nil && *caller.LinkedElderID == elder.ID {
		l.logger.Debug("Family already bound to elder",
			slog.Uint64("callerID", uint64(caller.ID)),
			slog.Uint64("elderID", uint64(elder.ID)))
		return elder, nil
	}

	if err := profiles.UpdateLinkedElder(l.db, l.logger, caller.ID, &elder.ID); err != nil {
		return nil, err
	}
	caller.LinkedElderID = &elder.ID

	l.logger.Info("Family bound to elder",
		slog.Uint64("callerID", uint64(caller.ID)),
		slog.Uint64("elderID", uint64(elder.ID)))
	return elder, nil
}

// UnbindFamily clears the caller's elder link.
func (l *Linker) UnbindFamily(caller *profiles.Profile) error {
	if caller == nil || caller.Role != profiles.RoleFamily {
		return authz.ErrForbidden
	}

	if err := profiles.UpdateLinkedElder(l.db, l.logger, caller.ID, nil); err != nil {
		return err
	}
	caller.LinkedElderID = nil

	l.logger.Info("Family unbound from elder", slog.Uint64("callerID", uint64(caller.ID)))
	return nil
}

// BindStore assigns the elder named by the scanned token to the caller's
// store. Rebinding transfers the elder from any previous store. All
// preconditions are checked before the elder row is touched.
func (l *Linker) BindStore(caller *profiles.Profile, raw string) (*profiles.Profile, error) {
	if caller == nil {
		return nil, authz.ErrForbidden
	}
	if caller.Role != profiles.RolePharmacist && caller.Role != profiles.RoleAdmin {
		return nil, authz.ErrForbidden
	}
	if caller.StoreID == nil {
		return nil, ErrStoreNotAssigned
	}

	active, err := stores.IsStoreActive(l.db, *caller.StoreID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrStoreInactive
	}

	elder, err := l.resolveElder(raw)
	if err != nil {
		return nil, err
	}

	if elder.StoreID != nil && *elder.StoreID == *caller.StoreID {
		l.logger.Debug("Elder already bound to store",
			slog.Uint64("elderID", uint64(elder.ID)),
			slog.Uint64("storeID", uint64(*caller.StoreID)))
		return elder, nil
	}

	if err := profiles.UpdateStore(l.db, l.logger, elder.ID, caller.StoreID); err != nil {
		return nil, err
	}
	elder.StoreID = caller.StoreID

	l.logger.Info("Elder bound to store",
		slog.Uint64("elderID", uint64(elder.ID)),
		slog.Uint64("storeID", uint64(*caller.StoreID)))
	return elder, nil
}
