package credentials

import (
	"testing"
	"time"
)

func TestExpiringSoon(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	buffer := 5 * time.Minute

	tests := []struct {
		name     string
		cred     Credential
		expected bool
	}{
		{
			name:     "token with plenty of validity left",
			cred:     Credential{AccessToken: "tok", ExpiryDate: now.Add(time.Hour).UnixMilli()},
			expected: false,
		},
		{
			name:     "token expiring inside the buffer",
			cred:     Credential{AccessToken: "tok", ExpiryDate: now.Add(2 * time.Minute).UnixMilli()},
			expected: true,
		},
		{
			name:     "token expiring exactly at the buffer edge",
			cred:     Credential{AccessToken: "tok", ExpiryDate: now.Add(buffer).UnixMilli()},
			expected: true,
		},
		{
			name:     "token just outside the buffer",
			cred:     Credential{AccessToken: "tok", ExpiryDate: now.Add(buffer + time.Second).UnixMilli()},
			expected: false,
		},
		{
			name:     "already expired token",
			cred:     Credential{AccessToken: "tok", ExpiryDate: now.Add(-10 * time.Second).UnixMilli()},
			expected: true,
		},
		{
			name:     "missing access token",
			cred:     Credential{ExpiryDate: now.Add(time.Hour).UnixMilli()},
			expected: true,
		},
		{
			name:     "token without recorded expiry treated as expired",
			cred:     Credential{AccessToken: "tok"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.ExpiringSoon(now, buffer); got != tt.expected {
				t.Errorf("ExpiringSoon() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestExpiresAt(t *testing.T) {
	cred := Credential{ExpiryDate: 1748779200000}
	expected := time.UnixMilli(1748779200000)
	if !cred.ExpiresAt().Equal(expected) {
		t.Errorf("ExpiresAt() = %v, expected %v", cred.ExpiresAt(), expected)
	}

	empty := Credential{}
	if !empty.ExpiresAt().IsZero() {
		t.Errorf("expected zero time for credential without expiry, got %v", empty.ExpiresAt())
	}
}

func TestHasRefreshToken(t *testing.T) {
	if (&Credential{}).HasRefreshToken() {
		t.Error("expected HasRefreshToken to be false for empty credential")
	}
	if !(&Credential{RefreshToken: "rt"}).HasRefreshToken() {
		t.Error("expected HasRefreshToken to be true")
	}
}
