package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// MemberContext contains the authenticated member
type MemberContext struct {
	MemberID string
	Phone    string
	TokenID  string
}

// contextKey is the key for storing member info in context
type contextKey string

const memberContextKey contextKey = "member"

// GetMemberFromContext extracts the authenticated member from the context
func GetMemberFromContext(ctx context.Context) (*MemberContext, error) {
	member, ok := ctx.Value(memberContextKey).(*MemberContext)
	if !ok || member == nil {
		return nil, ErrUnauthorized
	}
	return member, nil
}

// SetMemberInContext stores the authenticated member in the context
func SetMemberInContext(ctx context.Context, member *MemberContext) context.Context {
	return context.WithValue(ctx, memberContextKey, member)
}

// CanAccessMember checks if the caller can read or change the given member.
// Members can only access their own record.
func CanAccessMember(ctx context.Context, targetMemberID string) error {
	member, err := GetMemberFromContext(ctx)
	if err != nil {
		return err
	}
	if member.MemberID != targetMemberID {
		return ErrForbidden
	}
	return nil
}
