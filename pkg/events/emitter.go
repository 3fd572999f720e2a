// Package events handles event emission for identity lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Clover. Events are emitted after the
// reconciliation transaction commits and are best-effort: failures are
// logged but never surfaced to the caller.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter. The producer may be nil, in which
// case all emits are no-ops.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitIdentityCreated emits an event for a brand new primary contact
func (e *Emitter) EmitIdentityCreated(ctx context.Context, view *models.IdentityView) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitIdentityCreated")
	defer span.End()

	event := &kafka.IdentityEvent{
		EventType:        "identity.created",
		PrimaryContactID: view.PrimaryContactID,
		Emails:           view.Emails,
		PhoneNumbers:     view.PhoneNumbers,
	}

	if err := e.producer.PublishIdentityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit identity.created event")
	}
}

// EmitIdentityLinked emits an event when a new secondary joins an identity
func (e *Emitter) EmitIdentityLinked(ctx context.Context, view *models.IdentityView, newContactID int64) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitIdentityLinked")
	defer span.End()

	event := &kafka.IdentityEvent{
		EventType:           "identity.linked",
		PrimaryContactID:    view.PrimaryContactID,
		ContactID:           newContactID,
		Emails:              view.Emails,
		PhoneNumbers:        view.PhoneNumbers,
		SecondaryContactIDs: view.SecondaryContactIDs,
	}

	if err := e.producer.PublishIdentityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit identity.linked event")
	}
}

// EmitIdentityMerged emits an event when distinct identity groups collapse
// into one. mergedPrimaryIDs lists the primaries that were demoted.
func (e *Emitter) EmitIdentityMerged(ctx context.Context, view *models.IdentityView, mergedPrimaryIDs []int64) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitIdentityMerged")
	defer span.End()

	event := &kafka.IdentityEvent{
		EventType:           "identity.merged",
		PrimaryContactID:    view.PrimaryContactID,
		Emails:              view.Emails,
		PhoneNumbers:        view.PhoneNumbers,
		SecondaryContactIDs: view.SecondaryContactIDs,
		MergedPrimaryIDs:    mergedPrimaryIDs,
	}

	if err := e.producer.PublishIdentityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit identity.merged event")
	}
}
