package models

import (
	"time"
)

// LinkPrecedence marks a contact as the canonical record of its identity
// group or as a secondary linked to one.
type LinkPrecedence string

const (
	LinkPrecedencePrimary   LinkPrecedence = "primary"
	LinkPrecedenceSecondary LinkPrecedence = "secondary"
)

// Contact is a single observed contact record. A contact is either a
// primary (LinkedID is null) or a secondary pointing at its primary via
// LinkedID. Chains are always depth 1: a secondary never links to another
// secondary.
type Contact struct {
	ID             int64          `json:"id" db:"id"`
	Email          *string        `json:"email,omitempty" db:"email"`
	PhoneNumber    *string        `json:"phoneNumber,omitempty" db:"phone_number"`
	LinkedID       *int64         `json:"linkedId,omitempty" db:"linked_id"`
	LinkPrecedence LinkPrecedence `json:"linkPrecedence" db:"link_precedence"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
	DeletedAt      *time.Time     `json:"deletedAt,omitempty" db:"deleted_at"`
}

// IsPrimary reports whether the contact is the canonical record of its group.
func (c *Contact) IsPrimary() bool {
	return c.LinkPrecedence == LinkPrecedencePrimary
}

// EmailValue returns the email or "" when absent.
func (c *Contact) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone number or "" when absent.
func (c *Contact) PhoneValue() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}

// IdentifyRequest is the body of POST /identify. At least one of the two
// fields must be present and non-empty.
type IdentifyRequest struct {
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// IdentityView is the consolidated view of one identity group returned by
// the reconciliation engine. Both list fields are distinct and sorted
// ascending; SecondaryContactIDs never contains PrimaryContactID.
type IdentityView struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}

// CreateContactRequest is the body of POST /contacts.
type CreateContactRequest struct {
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// UpdateContactRequest is the body of PUT /contacts/:id. Only set fields
// are applied.
type UpdateContactRequest struct {
	Email          *string         `json:"email,omitempty"`
	PhoneNumber    *string         `json:"phoneNumber,omitempty"`
	LinkPrecedence *LinkPrecedence `json:"linkPrecedence,omitempty"`
}

// ContactListResponse is the paginated response for listing contacts.
type ContactListResponse struct {
	Items      []Contact `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
