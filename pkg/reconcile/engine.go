// Package reconcile implements contact identity reconciliation: matching an
// observation against existing contacts, expanding the matches to their full
// identity groups, merging groups the observation bridges, and consolidating
// the result under a single surviving primary.
package reconcile

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Observation is one reconciliation input: an email, a phone number, or
// both. Values are assumed normalized (trimmed, empty collapsed to nil).
type Observation struct {
	Email       *string
	PhoneNumber *string
}

// Engine runs the reconciliation pipeline. All structural changes for one
// observation happen inside a single store transaction; lifecycle events are
// emitted only after it commits.
type Engine struct {
	logger  ectologger.Logger
	store   ContactStore
	emitter *events.Emitter
}

// NewEngine creates a new reconciliation engine. emitter may be nil when
// event emission is disabled.
func NewEngine(logger ectologger.Logger, store ContactStore, emitter *events.Emitter) *Engine {
	return &Engine{
		logger:  logger,
		store:   store,
		emitter: emitter,
	}
}

// outcome records what the pipeline did, for event emission after commit.
type outcome struct {
	created      bool
	newContactID int64
	demotedIDs   []int64
}

// Reconcile resolves an observation to its consolidated identity view,
// creating, linking and merging contacts as needed.
func (e *Engine) Reconcile(ctx context.Context, obs Observation) (*models.IdentityView, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.Reconcile")
	defer span.End()

	if obs.Email == nil && obs.PhoneNumber == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "either email or phoneNumber must be provided")
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"has_email": obs.Email != nil,
		"has_phone": obs.PhoneNumber != nil,
	})

	var view *models.IdentityView
	var result outcome

	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		matches, err := e.store.FindByEmailOrPhone(ctx, obs.Email, obs.PhoneNumber)
		if err != nil {
			return err
		}

		if len(matches) == 0 {
			contact := &models.Contact{
				Email:          obs.Email,
				PhoneNumber:    obs.PhoneNumber,
				LinkPrecedence: models.LinkPrecedencePrimary,
			}
			if err := e.store.Insert(ctx, contact); err != nil {
				return err
			}

			view = buildView(map[int64]*models.Contact{contact.ID: contact}, contact)
			result = outcome{created: true}
			return nil
		}

		group, err := e.expandGroup(ctx, matches)
		if err != nil {
			return err
		}

		winner, demotedIDs, err := e.mergeGroups(ctx, group)
		if err != nil {
			return err
		}

		newContactID, err := e.consolidate(ctx, obs, group, winner)
		if err != nil {
			return err
		}

		view = buildView(group, winner)
		result = outcome{newContactID: newContactID, demotedIDs: demotedIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"primary_contact_id": view.PrimaryContactID,
		"group_size":         len(view.SecondaryContactIDs) + 1,
		"created":            result.created,
		"merged_primaries":   len(result.demotedIDs),
	}).Info("Reconciled observation")

	e.emit(ctx, view, result)
	return view, nil
}

// emit publishes the lifecycle event matching the pipeline outcome. Emission
// happens after commit and never affects the response.
func (e *Engine) emit(ctx context.Context, view *models.IdentityView, result outcome) {
	if e.emitter == nil {
		return
	}

	switch {
	case result.created:
		e.emitter.EmitIdentityCreated(ctx, view)
	case len(result.demotedIDs) > 0:
		e.emitter.EmitIdentityMerged(ctx, view, result.demotedIDs)
	case result.newContactID != 0:
		e.emitter.EmitIdentityLinked(ctx, view, result.newContactID)
	}
}
