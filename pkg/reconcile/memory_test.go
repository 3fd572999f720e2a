package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// memoryStore is an in-memory ContactStore for engine tests. Inserts get
// strictly increasing ids and timestamps; WithTx snapshots state and rolls
// back on error, matching the transactional contract of the real store.
type memoryStore struct {
	nextID   int64
	clock    time.Time
	contacts map[int64]models.Contact
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:   1,
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		contacts: make(map[int64]models.Contact),
	}
}

func (s *memoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memoryStore) FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]models.Contact, error) {
	if email == nil && phoneNumber == nil {
		return nil, nil
	}
	var out []models.Contact
	for _, id := range s.sortedIDs() {
		c := s.contacts[id]
		if c.DeletedAt != nil {
			continue
		}
		if (email != nil && c.Email != nil && *c.Email == *email) ||
			(phoneNumber != nil && c.PhoneNumber != nil && *c.PhoneNumber == *phoneNumber) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) FindByLinkedID(ctx context.Context, primaryIDs []int64) ([]models.Contact, error) {
	wanted := make(map[int64]struct{}, len(primaryIDs))
	for _, id := range primaryIDs {
		wanted[id] = struct{}{}
	}
	var out []models.Contact
	for _, id := range s.sortedIDs() {
		c := s.contacts[id]
		if c.DeletedAt != nil || c.LinkedID == nil {
			continue
		}
		if _, ok := wanted[*c.LinkedID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) FindByID(ctx context.Context, id int64) (*models.Contact, error) {
	c, ok := s.contacts[id]
	if !ok || c.DeletedAt != nil {
		return nil, nil
	}
	return &c, nil
}

func (s *memoryStore) Insert(ctx context.Context, contact *models.Contact) error {
	contact.ID = s.nextID
	s.nextID++
	now := s.tick()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	s.contacts[contact.ID] = *contact
	return nil
}

func (s *memoryStore) Update(ctx context.Context, contact *models.Contact) error {
	existing, ok := s.contacts[contact.ID]
	if !ok || existing.DeletedAt != nil {
		return fmt.Errorf("contact %d not found", contact.ID)
	}
	contact.UpdatedAt = s.tick()
	s.contacts[contact.ID] = *contact
	return nil
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make(map[int64]models.Contact, len(s.contacts))
	for id, c := range s.contacts {
		snapshot[id] = c
	}
	nextID, clock := s.nextID, s.clock

	if err := fn(ctx); err != nil {
		s.contacts = snapshot
		s.nextID = nextID
		s.clock = clock
		return err
	}
	return nil
}

func (s *memoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.contacts))
	for id := range s.contacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// seed inserts a contact directly, bypassing the engine.
func (s *memoryStore) seed(email, phone *string, precedence models.LinkPrecedence, linkedID *int64) models.Contact {
	c := models.Contact{
		Email:          email,
		PhoneNumber:    phone,
		LinkedID:       linkedID,
		LinkPrecedence: precedence,
	}
	_ = s.Insert(context.Background(), &c)
	return c
}

// seedAt inserts a contact with an explicit creation timestamp, so tests
// can pin two contacts to the same instant.
func (s *memoryStore) seedAt(email, phone *string, precedence models.LinkPrecedence, linkedID *int64, at time.Time) models.Contact {
	c := models.Contact{
		ID:             s.nextID,
		Email:          email,
		PhoneNumber:    phone,
		LinkedID:       linkedID,
		LinkPrecedence: precedence,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	s.nextID++
	s.contacts[c.ID] = c
	return c
}

// softDelete marks a seeded contact deleted.
func (s *memoryStore) softDelete(id int64) {
	c := s.contacts[id]
	now := s.tick()
	c.DeletedAt = &now
	s.contacts[id] = c
}
