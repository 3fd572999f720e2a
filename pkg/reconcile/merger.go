package reconcile

import (
	"context"
	"net/http"
	"sort"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// mergeGroups collapses the working set to a single surviving primary. The
// winner is the primary with the earliest createdAt, smallest id on a
// timestamp tie. Every losing primary is demoted to a secondary of the
// winner and its secondaries are relinked, all inside the caller's
// transaction. Returns the winner and the ids of the demoted primaries.
func (e *Engine) mergeGroups(ctx context.Context, group map[int64]*models.Contact) (*models.Contact, []int64, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.mergeGroups")
	defer span.End()

	var primaries []*models.Contact
	for _, contact := range group {
		if contact.IsPrimary() {
			primaries = append(primaries, contact)
		}
	}
	if len(primaries) == 0 {
		e.logger.WithContext(ctx).Error("Contact group contains no primary")
		return nil, nil, httperror.NewHTTPError(http.StatusInternalServerError, "contact link integrity violation")
	}

	sort.Slice(primaries, func(i, j int) bool {
		if !primaries[i].CreatedAt.Equal(primaries[j].CreatedAt) {
			return primaries[i].CreatedAt.Before(primaries[j].CreatedAt)
		}
		return primaries[i].ID < primaries[j].ID
	})

	winner := primaries[0]
	if len(primaries) == 1 {
		return winner, nil, nil
	}

	demotedIDs := make([]int64, 0, len(primaries)-1)
	for _, loser := range primaries[1:] {
		// Relink the loser's secondaries before demoting it, so no
		// secondary ever points at another secondary.
		for _, contact := range group {
			if contact.LinkedID != nil && *contact.LinkedID == loser.ID {
				contact.LinkedID = &winner.ID
				if err := e.store.Update(ctx, contact); err != nil {
					return nil, nil, err
				}
			}
		}

		loser.LinkPrecedence = models.LinkPrecedenceSecondary
		loser.LinkedID = &winner.ID
		if err := e.store.Update(ctx, loser); err != nil {
			return nil, nil, err
		}
		demotedIDs = append(demotedIDs, loser.ID)
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"winner_id":   winner.ID,
		"demoted_ids": demotedIDs,
	}).Info("Merged contact groups")

	return winner, demotedIDs, nil
}
