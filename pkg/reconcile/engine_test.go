package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/logger"
	"github.com/Ramsey-B/clover/pkg/models"
)

func sp(s string) *string {
	return &s
}

func newTestEngine(t *testing.T) (*Engine, *memoryStore) {
	t.Helper()
	log, err := logger.New(logger.Config{AppName: "clover-test", Level: "error"})
	require.NoError(t, err)
	store := newMemoryStore()
	return NewEngine(log, store, nil), store
}

func assertViewConsistent(t *testing.T, view *models.IdentityView) {
	t.Helper()
	assert.GreaterOrEqual(t, len(view.Emails)+len(view.PhoneNumbers), 1)
	for i := 1; i < len(view.Emails); i++ {
		assert.Less(t, view.Emails[i-1], view.Emails[i])
	}
	for i := 1; i < len(view.PhoneNumbers); i++ {
		assert.Less(t, view.PhoneNumbers[i-1], view.PhoneNumbers[i])
	}
	for i, id := range view.SecondaryContactIDs {
		assert.NotEqual(t, view.PrimaryContactID, id)
		if i > 0 {
			assert.Less(t, view.SecondaryContactIDs[i-1], id)
		}
	}
}

func TestReconcileRequiresAKey(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Reconcile(context.Background(), Observation{})
	require.Error(t, err)
}

func TestReconcileNewIdentity(t *testing.T) {
	engine, store := newTestEngine(t)

	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com")})
	require.NoError(t, err)

	assert.Equal(t, int64(1), view.PrimaryContactID)
	assert.Equal(t, []string{"a@x.com"}, view.Emails)
	assert.Empty(t, view.PhoneNumbers)
	assert.Empty(t, view.SecondaryContactIDs)
	assertViewConsistent(t, view)

	created := store.contacts[1]
	assert.Equal(t, models.LinkPrecedencePrimary, created.LinkPrecedence)
	assert.Nil(t, created.LinkedID)
}

func TestReconcileLinksSecondary(t *testing.T) {
	engine, store := newTestEngine(t)
	store.seed(sp("j@x.com"), sp("111"), models.LinkPrecedencePrimary, nil)

	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("j@x.com"), PhoneNumber: sp("222")})
	require.NoError(t, err)

	assert.Equal(t, int64(1), view.PrimaryContactID)
	assert.Equal(t, []string{"j@x.com"}, view.Emails)
	assert.Equal(t, []string{"111", "222"}, view.PhoneNumbers)
	assert.Equal(t, []int64{2}, view.SecondaryContactIDs)
	assertViewConsistent(t, view)

	secondary := store.contacts[2]
	assert.Equal(t, models.LinkPrecedenceSecondary, secondary.LinkPrecedence)
	require.NotNil(t, secondary.LinkedID)
	assert.Equal(t, int64(1), *secondary.LinkedID)
}

func TestReconcileIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)

	obs := Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")}
	first, err := engine.Reconcile(context.Background(), obs)
	require.NoError(t, err)

	second, err := engine.Reconcile(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.contacts, 1)
}

func TestReconcileExactDuplicateCreatesNothing(t *testing.T) {
	engine, store := newTestEngine(t)
	store.seed(sp("a@x.com"), sp("111"), models.LinkPrecedencePrimary, nil)

	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")})
	require.NoError(t, err)

	assert.Len(t, store.contacts, 1)
	assert.Empty(t, view.SecondaryContactIDs)
}

func TestReconcilePartialKeyMatchesExisting(t *testing.T) {
	engine, store := newTestEngine(t)
	store.seed(sp("a@x.com"), sp("111"), models.LinkPrecedencePrimary, nil)

	// Email-only observation whose exact pair (email, no phone) is absent
	// creates a secondary carrying just the email.
	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com")})
	require.NoError(t, err)

	assert.Equal(t, int64(1), view.PrimaryContactID)
	assert.Equal(t, []int64{2}, view.SecondaryContactIDs)
	assert.Len(t, store.contacts, 2)

	// Replaying it is a no-op.
	again, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com")})
	require.NoError(t, err)
	assert.Equal(t, view, again)
	assert.Len(t, store.contacts, 2)
}

func TestReconcileMergeDeterminism(t *testing.T) {
	run := func(t *testing.T, obs Observation) {
		engine, store := newTestEngine(t)
		p1 := store.seed(sp("a@x.com"), nil, models.LinkPrecedencePrimary, nil)
		p2 := store.seed(nil, sp("111"), models.LinkPrecedencePrimary, nil)

		view, err := engine.Reconcile(context.Background(), obs)
		require.NoError(t, err)

		assert.Equal(t, p1.ID, view.PrimaryContactID)
		assert.Contains(t, view.SecondaryContactIDs, p2.ID)
		assertViewConsistent(t, view)

		demoted := store.contacts[p2.ID]
		assert.Equal(t, models.LinkPrecedenceSecondary, demoted.LinkPrecedence)
		require.NotNil(t, demoted.LinkedID)
		assert.Equal(t, p1.ID, *demoted.LinkedID)
	}

	t.Run("email belongs to older primary", func(t *testing.T) {
		run(t, Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")})
	})
	t.Run("phone belongs to newer primary", func(t *testing.T) {
		// Same observation, but swap which record was created first.
		engine, store := newTestEngine(t)
		p1 := store.seed(nil, sp("111"), models.LinkPrecedencePrimary, nil)
		p2 := store.seed(sp("a@x.com"), nil, models.LinkPrecedencePrimary, nil)

		view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")})
		require.NoError(t, err)

		assert.Equal(t, p1.ID, view.PrimaryContactID)
		assert.Contains(t, view.SecondaryContactIDs, p2.ID)
	})
}

func TestReconcileMergeTieBreaksOnSmallestID(t *testing.T) {
	run := func(t *testing.T, firstEmail, firstPhone, secondEmail, secondPhone *string) {
		engine, store := newTestEngine(t)
		born := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		p1 := store.seedAt(firstEmail, firstPhone, models.LinkPrecedencePrimary, nil, born)
		p2 := store.seedAt(secondEmail, secondPhone, models.LinkPrecedencePrimary, nil, born)
		require.Less(t, p1.ID, p2.ID)

		view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")})
		require.NoError(t, err)

		// Identical createdAt, so the smaller id survives.
		assert.Equal(t, p1.ID, view.PrimaryContactID)
		assert.Contains(t, view.SecondaryContactIDs, p2.ID)
		assertViewConsistent(t, view)

		demoted := store.contacts[p2.ID]
		assert.Equal(t, models.LinkPrecedenceSecondary, demoted.LinkPrecedence)
		require.NotNil(t, demoted.LinkedID)
		assert.Equal(t, p1.ID, *demoted.LinkedID)
	}

	t.Run("smaller id holds the email", func(t *testing.T) {
		run(t, sp("a@x.com"), nil, nil, sp("111"))
	})
	t.Run("smaller id holds the phone", func(t *testing.T) {
		run(t, nil, sp("111"), sp("a@x.com"), nil)
	})
}

func TestReconcileMergeIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	store.seed(sp("a@x.com"), nil, models.LinkPrecedencePrimary, nil)
	store.seed(nil, sp("111"), models.LinkPrecedencePrimary, nil)

	obs := Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")}
	first, err := engine.Reconcile(context.Background(), obs)
	require.NoError(t, err)
	count := len(store.contacts)

	second, err := engine.Reconcile(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.contacts, count)
}

func TestReconcileChainedTripleMerge(t *testing.T) {
	engine, store := newTestEngine(t)
	p1 := store.seed(sp("a@x.com"), sp("111"), models.LinkPrecedencePrimary, nil)
	p2 := store.seed(sp("b@x.com"), sp("222"), models.LinkPrecedencePrimary, nil)
	p3 := store.seed(sp("c@x.com"), sp("333"), models.LinkPrecedencePrimary, nil)

	// Bridge P1 and P2, then P2 and P3.
	_, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com"), PhoneNumber: sp("222")})
	require.NoError(t, err)

	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("b@x.com"), PhoneNumber: sp("333")})
	require.NoError(t, err)

	assert.Equal(t, p1.ID, view.PrimaryContactID)
	assert.Contains(t, view.SecondaryContactIDs, p2.ID)
	assert.Contains(t, view.SecondaryContactIDs, p3.ID)
	assertViewConsistent(t, view)

	// Every non-winner links directly to the winner, no chains.
	for id, c := range store.contacts {
		if id == p1.ID {
			assert.Equal(t, models.LinkPrecedencePrimary, c.LinkPrecedence)
			assert.Nil(t, c.LinkedID)
			continue
		}
		assert.Equal(t, models.LinkPrecedenceSecondary, c.LinkPrecedence)
		require.NotNil(t, c.LinkedID)
		assert.Equal(t, p1.ID, *c.LinkedID)
	}
}

func TestReconcileMergeRelinksLosersSecondaries(t *testing.T) {
	engine, store := newTestEngine(t)
	p1 := store.seed(sp("a@x.com"), nil, models.LinkPrecedencePrimary, nil)
	p2 := store.seed(sp("b@x.com"), sp("222"), models.LinkPrecedencePrimary, nil)
	s2 := store.seed(sp("b2@x.com"), sp("222"), models.LinkPrecedenceSecondary, &p2.ID)

	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com"), PhoneNumber: sp("222")})
	require.NoError(t, err)

	assert.Equal(t, p1.ID, view.PrimaryContactID)
	relinked := store.contacts[s2.ID]
	require.NotNil(t, relinked.LinkedID)
	assert.Equal(t, p1.ID, *relinked.LinkedID)
	assertViewConsistent(t, view)
}

func TestReconcileIgnoresSoftDeleted(t *testing.T) {
	engine, store := newTestEngine(t)
	dead := store.seed(sp("a@x.com"), sp("111"), models.LinkPrecedencePrimary, nil)
	store.softDelete(dead.ID)

	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com")})
	require.NoError(t, err)

	// The deleted record never joins the group; a fresh primary is born.
	assert.NotEqual(t, dead.ID, view.PrimaryContactID)
	assert.Empty(t, view.SecondaryContactIDs)
	assert.Equal(t, []string{"a@x.com"}, view.Emails)
	assert.Empty(t, view.PhoneNumbers)
}

func TestReconcileDanglingLinkRollsBack(t *testing.T) {
	engine, store := newTestEngine(t)
	missing := int64(99)
	store.seed(sp("a@x.com"), nil, models.LinkPrecedenceSecondary, &missing)
	before := len(store.contacts)

	_, err := engine.Reconcile(context.Background(), Observation{Email: sp("a@x.com"), PhoneNumber: sp("111")})
	require.Error(t, err)
	assert.Len(t, store.contacts, before)
}

func TestReconcileSecondaryMatchFindsWholeGroup(t *testing.T) {
	engine, store := newTestEngine(t)
	p := store.seed(sp("a@x.com"), sp("111"), models.LinkPrecedencePrimary, nil)
	s1 := store.seed(sp("b@x.com"), sp("111"), models.LinkPrecedenceSecondary, &p.ID)
	s2 := store.seed(sp("c@x.com"), sp("111"), models.LinkPrecedenceSecondary, &p.ID)

	// Observation matching only a secondary's email still reports the full
	// consolidated group under the primary.
	view, err := engine.Reconcile(context.Background(), Observation{Email: sp("c@x.com"), PhoneNumber: sp("111")})
	require.NoError(t, err)

	assert.Equal(t, p.ID, view.PrimaryContactID)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, view.Emails)
	assert.Equal(t, []string{"111"}, view.PhoneNumbers)
	assert.Equal(t, []int64{s1.ID, s2.ID}, view.SecondaryContactIDs)
	assertViewConsistent(t, view)
}
