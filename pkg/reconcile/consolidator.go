package reconcile

import (
	"context"
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// consolidate ensures the observation is represented in the group and that
// every member links correctly to the winner. A new secondary is created
// only when no member carries the observation's exact (email, phone) pair;
// the duplicate check covers demoted primaries too, so replaying an
// observation that caused a merge stays idempotent. Returns the id of the
// created secondary, or 0.
func (e *Engine) consolidate(ctx context.Context, obs Observation, group map[int64]*models.Contact, winner *models.Contact) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.consolidate")
	defer span.End()

	var newContactID int64
	if !pairExists(group, obs) {
		secondary := &models.Contact{
			Email:          obs.Email,
			PhoneNumber:    obs.PhoneNumber,
			LinkedID:       &winner.ID,
			LinkPrecedence: models.LinkPrecedenceSecondary,
		}
		if err := e.store.Insert(ctx, secondary); err != nil {
			return 0, err
		}
		group[secondary.ID] = secondary
		newContactID = secondary.ID
	}

	// Normalization pass: every non-winner is a secondary of the winner,
	// the winner is a primary with no link.
	for _, contact := range group {
		if contact.ID == winner.ID {
			continue
		}
		if contact.LinkPrecedence != models.LinkPrecedenceSecondary || contact.LinkedID == nil || *contact.LinkedID != winner.ID {
			contact.LinkPrecedence = models.LinkPrecedenceSecondary
			contact.LinkedID = &winner.ID
			if err := e.store.Update(ctx, contact); err != nil {
				return 0, err
			}
		}
	}
	if !winner.IsPrimary() || winner.LinkedID != nil {
		winner.LinkPrecedence = models.LinkPrecedencePrimary
		winner.LinkedID = nil
		if err := e.store.Update(ctx, winner); err != nil {
			return 0, err
		}
	}

	return newContactID, nil
}

// pairExists reports whether any group member carries exactly the
// observation's (email, phone) pair, absent fields included.
func pairExists(group map[int64]*models.Contact, obs Observation) bool {
	for _, contact := range group {
		if ptrEqual(contact.Email, obs.Email) && ptrEqual(contact.PhoneNumber, obs.PhoneNumber) {
			return true
		}
	}
	return false
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// buildView assembles the consolidated identity view: distinct emails and
// phone numbers sorted lexicographically, secondary ids sorted ascending.
func buildView(group map[int64]*models.Contact, winner *models.Contact) *models.IdentityView {
	emailSet := make(map[string]struct{})
	phoneSet := make(map[string]struct{})
	secondaryIDs := make([]int64, 0, len(group)-1)

	for _, contact := range group {
		if contact.Email != nil {
			emailSet[*contact.Email] = struct{}{}
		}
		if contact.PhoneNumber != nil {
			phoneSet[*contact.PhoneNumber] = struct{}{}
		}
		if contact.ID != winner.ID {
			secondaryIDs = append(secondaryIDs, contact.ID)
		}
	}

	emails := make([]string, 0, len(emailSet))
	for email := range emailSet {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	phones := make([]string, 0, len(phoneSet))
	for phone := range phoneSet {
		phones = append(phones, phone)
	}
	sort.Strings(phones)

	sort.Slice(secondaryIDs, func(i, j int) bool { return secondaryIDs[i] < secondaryIDs[j] })

	return &models.IdentityView{
		PrimaryContactID:    winner.ID,
		Emails:              emails,
		PhoneNumbers:        phones,
		SecondaryContactIDs: secondaryIDs,
	}
}
