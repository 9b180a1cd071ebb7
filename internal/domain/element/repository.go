package element

import (
	"context"

	"github.com/scenedex/scenedex/pkg/types/common"
)

// Repository is the persistence port for elements.  Implementations live in
// the infrastructure layer.
type Repository interface {
	// Create persists a new element.
	Create(ctx context.Context, el *Element) error

	// GetByID loads one element, ErrCodeElementNotFound when absent.
	GetByID(ctx context.Context, id common.ID) (*Element, error)

	// ActiveByScript lists the ACTIVE elements attached to a script version,
	// ordered by creation time then id so matching pools are deterministic.
	ActiveByScript(ctx context.Context, scriptID common.ID) ([]*Element, error)

	// ListByScript lists all elements of a script version regardless of
	// status, with pagination.
	ListByScript(ctx context.Context, scriptID common.ID, page common.Pagination) ([]*Element, int64, error)

	// Update persists the current state of an existing element.
	Update(ctx context.Context, el *Element) error
}
