// Package authz implements the ownership checks gating item and recovery
// mutation.
package authz

import (
	"fmt"

	"github.com/reclaimhq/reclaim/internal/apperr"
	"github.com/reclaimhq/reclaim/internal/model"
)

// Action is a guarded mutation.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Guard decides whether a principal may mutate an item or recovery.
//
// SkipOwnershipChecks exists for tests that exercise storage behavior without
// standing up owners; it must only ever be set by test constructors. The
// production path is unconditional.
type Guard struct {
	SkipOwnershipChecks bool
}

// AuthorizeItem allows a mutation iff the principal owns the item: its email
// matches the item's contact email, or, for deletion, its id matches the
// legacy owner reference when one is present. The item exists by the time the
// guard runs, so the failure is Forbidden, not NotFound.
func (g *Guard) AuthorizeItem(principal *model.User, item *model.Item, action Action) error {
	if g.SkipOwnershipChecks {
		return nil
	}

	if principal.Email == item.ContactEmail {
		return nil
	}
	if action == ActionDelete && item.OwnerID != nil && *item.OwnerID == principal.ID {
		return nil
	}

	return fmt.Errorf("%w: not the owner of item %s", apperr.ErrForbidden, item.ID)
}

// AuthorizeRecovery allows a recovery mutation for the claimant, the
// snapshot owner, or an admin.
func (g *Guard) AuthorizeRecovery(principal *model.User, recovery *model.Recovery) error {
	if g.SkipOwnershipChecks {
		return nil
	}

	if principal.Admin ||
		principal.Email == recovery.RecoveredByEmail ||
		principal.Email == recovery.OwnerEmail {
		return nil
	}

	return fmt.Errorf("%w: not a party to recovery %s", apperr.ErrForbidden, recovery.ID)
}
