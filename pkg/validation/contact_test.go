package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	blank := "   "
	trimMe := "  a@x.com "
	assert.Nil(t, NormalizeEmail(nil))
	assert.Nil(t, NormalizeEmail(&blank))

	got := NormalizeEmail(&trimMe)
	assert.NotNil(t, got)
	assert.Equal(t, "a@x.com", *got)
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"a@x.com",
		"john.doe+tag@example.co.uk",
		"USER_1%test@sub.domain.io",
	}
	for _, email := range valid {
		assert.True(t, ValidEmail(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@no-local.com",
		"user@",
		"user@domain",
		"user@domain.c",
		"user @x.com",
	}
	for _, email := range invalid {
		assert.False(t, ValidEmail(email), email)
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{
		"1234567",
		"+1 (555) 123-4567",
		"5551234567",
		"44.20.7946.0958",
	}
	for _, phone := range valid {
		assert.True(t, ValidPhone(phone), phone)
	}

	invalid := []string{
		"",
		"0123456",      // cannot start with zero
		"123456",       // too short
		"+1 (555) 12a", // letters
		"123-456",      // fewer than 7 digits
	}
	for _, phone := range invalid {
		assert.False(t, ValidPhone(phone), phone)
	}
}
