package contact

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var columns = []string{"id", "email", "phone_number", "linked_id", "link_precedence", "created_at", "updated_at", "deleted_at"}

// Repository handles contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WithTx runs fn inside a serializable transaction. Repository calls made
// with the context passed to fn join the same transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.WithTx")
	defer span.End()

	ctxTx, tx, err := database.GetTx(ctx, r.logger, r.db, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctxTx)

	if err := fn(ctxTx); err != nil {
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit transaction")
	}
	return nil
}

// FindByEmailOrPhone returns all live contacts whose email or phone number
// exactly matches one of the provided values. Either value may be nil.
func (r *Repository) FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByEmailOrPhone")
	defer span.End()

	if email == nil && phoneNumber == nil {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("contacts")

	var match []string
	if email != nil {
		match = append(match, sb.Equal("email", *email))
	}
	if phoneNumber != nil {
		match = append(match, sb.Equal("phone_number", *phoneNumber))
	}
	sb.Where(
		sb.Or(match...),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	var contacts []models.Contact
	if err := database.QuerierFromContext(ctx, r.db).SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find contacts by email or phone")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contacts")
	}
	return contacts, nil
}

// FindByLinkedID returns all live contacts whose linked_id is one of the
// given primary ids.
func (r *Repository) FindByLinkedID(ctx context.Context, primaryIDs []int64) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByLinkedID")
	defer span.End()

	if len(primaryIDs) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("contacts")
	sb.Where(
		sb.In("linked_id", sqlbuilder.Flatten(primaryIDs)...),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	var contacts []models.Contact
	if err := database.QuerierFromContext(ctx, r.db).SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"primary_ids": primaryIDs}).Error("Failed to find contacts by linked_id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contacts")
	}
	return contacts, nil
}

// FindByID retrieves a live contact by id. Returns nil when no such contact
// exists; callers decide whether that is an error.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("contacts")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var contact models.Contact
	if err := database.QuerierFromContext(ctx, r.db).GetContext(ctx, &contact, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact")
	}
	return &contact, nil
}

// Insert persists a new contact and fills in its generated id and timestamps.
func (r *Repository) Insert(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Insert")
	defer span.End()

	now := time.Now().UTC()
	query := `
		INSERT INTO contacts (email, phone_number, linked_id, link_precedence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	var inserted struct {
		ID        int64     `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := database.QuerierFromContext(ctx, r.db).GetContext(ctx, &inserted, query,
		contact.Email, contact.PhoneNumber, contact.LinkedID, contact.LinkPrecedence, now, now,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"link_precedence": contact.LinkPrecedence}).Error("Failed to insert contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert contact")
	}

	contact.ID = inserted.ID
	contact.CreatedAt = inserted.CreatedAt
	contact.UpdatedAt = inserted.UpdatedAt

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": contact.ID, "link_precedence": contact.LinkPrecedence}).Info("Created contact")
	return nil
}

// Update persists the mutable fields of a contact and bumps updated_at.
func (r *Repository) Update(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Update")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contacts")
	sb.Set(
		sb.Assign("email", contact.Email),
		sb.Assign("phone_number", contact.PhoneNumber),
		sb.Assign("linked_id", contact.LinkedID),
		sb.Assign("link_precedence", contact.LinkPrecedence),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", contact.ID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": contact.ID}).Error("Failed to update contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %d not found", contact.ID))
	}

	contact.UpdatedAt = now
	return nil
}

// Get retrieves a live contact by id, returning 404 when it does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Get")
	defer span.End()

	contact, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %d not found", id))
	}
	return contact, nil
}

// List retrieves live contacts with pagination, newest first.
func (r *Repository) List(ctx context.Context, page, pageSize int) (*models.ContactListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("contacts")
	countSb.Where(countSb.IsNull("deleted_at"))

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := database.QuerierFromContext(ctx, r.db).GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count contacts")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("contacts")
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var contacts []models.Contact
	if err := database.QuerierFromContext(ctx, r.db).SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"page": page, "page_size": pageSize}).Error("Failed to list contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	return &models.ContactListResponse{
		Items:      contacts,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// SoftDelete marks a contact as deleted
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.SoftDelete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contacts")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to soft delete contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete contact")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %d not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Soft deleted contact")
	return nil
}
