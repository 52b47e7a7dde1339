package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidatePair(t *testing.T) {
	m := NewJWTManager("0123456789abcdef", time.Minute, time.Hour)

	pair, err := m.IssuePair("42", "+34600")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh token must differ")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh token must outlive access token")
	}

	access, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if access.MemberID != "42" || access.Phone != "+34600" {
		t.Errorf("claims = %+v", access)
	}

	refresh, err := m.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if refresh.TokenID != pair.RefreshTokenID {
		t.Errorf("refresh TokenID = %q, want %q", refresh.TokenID, pair.RefreshTokenID)
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewJWTManager("0123456789abcdef", time.Minute, time.Hour)
	pair, err := m.IssuePair("42", "+34600")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	other := NewJWTManager("fedcba9876543210", time.Minute, time.Hour)

	tests := []struct {
		name     string
		validate func(string) (*Claims, error)
		token    string
		want     error
	}{
		{"refresh used as access", m.ValidateAccessToken, pair.RefreshToken, ErrWrongKind},
		{"access used as refresh", m.ValidateRefreshToken, pair.AccessToken, ErrWrongKind},
		{"foreign signature", other.ValidateAccessToken, pair.AccessToken, ErrInvalidToken},
		{"garbage", m.ValidateAccessToken, "not.a.jwt", ErrInvalidToken},
		{"tampered", m.ValidateAccessToken, pair.AccessToken + "x", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.validate(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpiredAccessToken(t *testing.T) {
	m := NewJWTManager("0123456789abcdef", time.Minute, time.Hour)
	pair, err := m.IssuePair("42", "+34600")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("access error = %v, want ErrExpiredToken", err)
	}
	if _, err := m.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("refresh token should still be valid: %v", err)
	}
}

func TestCanAccessMember(t *testing.T) {
	if err := CanAccessMember(context.Background(), "1"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous error = %v, want ErrUnauthorized", err)
	}

	ctx := SetMemberInContext(context.Background(), &MemberContext{MemberID: "1"})
	if err := CanAccessMember(ctx, "1"); err != nil {
		t.Errorf("own record: %v", err)
	}
	if err := CanAccessMember(ctx, "2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other record error = %v, want ErrForbidden", err)
	}
}
