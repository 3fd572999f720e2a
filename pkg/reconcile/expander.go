package reconcile

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// expandGroup grows the matched contacts into the full working set: for each
// secondary match its primary, and for each primary every live secondary
// linked to it. Link chains are depth 1, so a single expansion round reaches
// the whole group.
func (e *Engine) expandGroup(ctx context.Context, matches []models.Contact) (map[int64]*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.expandGroup")
	defer span.End()

	group := make(map[int64]*models.Contact, len(matches))
	primaryIDs := make(map[int64]struct{})

	for i := range matches {
		contact := matches[i]
		group[contact.ID] = &contact

		if contact.IsPrimary() {
			primaryIDs[contact.ID] = struct{}{}
			continue
		}
		if contact.LinkedID == nil {
			e.logger.WithContext(ctx).WithFields(map[string]any{"id": contact.ID}).Error("Secondary contact has no linked primary")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "contact link integrity violation")
		}
		primaryIDs[*contact.LinkedID] = struct{}{}
	}

	// Pull in primaries referenced by secondary matches.
	for id := range primaryIDs {
		if _, ok := group[id]; ok {
			continue
		}
		primary, err := e.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if primary == nil {
			e.logger.WithContext(ctx).WithFields(map[string]any{"linked_id": id}).Error("Secondary contact links to a missing primary")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "contact link integrity violation")
		}
		group[primary.ID] = primary
	}

	// Pull in every secondary of every primary in the set.
	ids := make([]int64, 0, len(primaryIDs))
	for id := range primaryIDs {
		ids = append(ids, id)
	}
	secondaries, err := e.store.FindByLinkedID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range secondaries {
		contact := secondaries[i]
		if _, ok := group[contact.ID]; !ok {
			group[contact.ID] = &contact
		}
	}

	return group, nil
}
