package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthToken_Expired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "Far Future", expiresAt: now.Add(time.Hour), want: false},
		{name: "Just Outside Margin", expiresAt: now.Add(ExpiryMargin + time.Second), want: false},
		{name: "Exactly At Margin", expiresAt: now.Add(ExpiryMargin), want: true},
		{name: "Inside Margin", expiresAt: now.Add(ExpiryMargin - time.Second), want: true},
		{name: "Already Expired", expiresAt: now.Add(-time.Minute), want: true},
		{name: "Zero Value", expiresAt: time.Time{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewAuthToken("abc", tt.expiresAt)
			assert.Equal(t, tt.want, tok.Expired(now))
		})
	}
}

func TestAuthToken_TTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 59*time.Minute, NewAuthToken("abc", now.Add(time.Hour)).TTL(now))
	assert.Equal(t, time.Duration(0), NewAuthToken("abc", now.Add(30*time.Second)).TTL(now))
}

func TestAuthToken_Fingerprint(t *testing.T) {
	a := NewAuthToken("ghs_one", time.Time{})
	b := NewAuthToken("ghs_two", time.Time{})

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), NewAuthToken("ghs_one", time.Now()).Fingerprint())
	assert.NotContains(t, a.Fingerprint(), "ghs_one")
	assert.Equal(t, "(n/a)", AuthToken{}.Fingerprint())
	assert.True(t, AuthToken{}.IsZero())
}
