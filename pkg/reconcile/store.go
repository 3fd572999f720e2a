package reconcile

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ContactStore is the persistence surface the reconciliation engine needs.
// All read methods exclude soft-deleted contacts. WithTx runs fn atomically:
// store calls made with the context passed to fn see and join the same
// transaction, and every write inside fn commits or rolls back as a unit.
type ContactStore interface {
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]models.Contact, error)
	FindByLinkedID(ctx context.Context, primaryIDs []int64) ([]models.Contact, error)
	FindByID(ctx context.Context, id int64) (*models.Contact, error)
	Insert(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
