package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationRequest asks the API to text a code to phone
type VerificationRequest struct {
	Phone string `json:"phone"`
}

// VerificationCheck submits the code received by text
type VerificationCheck struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// MemberRegistration creates a club member for a verified phone
type MemberRegistration struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	VerificationCode string `json:"verificationCode"`
}

// Member is a club member as returned by the API
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Registration is the payload returned by member registration
type Registration struct {
	Member Member    `json:"member"`
	Tokens TokenPair `json:"tokens"`
}

// RequestVerification asks the API to send a verification code to phone
func (c *Client) RequestVerification(ctx context.Context, phone string) error {
	_, err := doJSON[struct{}](ctx, c, http.MethodPost, PathPhoneVerificationRequest, VerificationRequest{Phone: phone})
	return err
}

// VerifyPhone exchanges a verification code for a token pair and stores it
func (c *Client) VerifyPhone(ctx context.Context, phone, code string) (TokenPair, error) {
	pair, err := doJSON[TokenPair](ctx, c, http.MethodPost, PathPhoneVerificationVerify, VerificationCheck{Phone: phone, Code: code})
	if err != nil {
		return TokenPair{}, err
	}
	if err := c.store.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return TokenPair{}, fmt.Errorf("failed to save tokens: %w", err)
	}
	c.log.Info("logged in", slog.String("phone", phone))
	return *pair, nil
}

// RegisterMember registers a new member and stores the issued token pair
func (c *Client) RegisterMember(ctx context.Context, reg MemberRegistration) (*Member, error) {
	result, err := doJSON[Registration](ctx, c, http.MethodPost, PathMembers, reg)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveTokens(ctx, result.Tokens.AccessToken, result.Tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to save tokens: %w", err)
	}
	return &result.Member, nil
}

// Me returns the member owning the stored session
func (c *Client) Me(ctx context.Context) (*Member, error) {
	return doJSON[Member](ctx, c, http.MethodGet, PathMe, nil)
}

// Refresh exchanges the stored refresh token for a new pair outside of any
// request. A rejected refresh clears the session, as the transport does.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	refreshToken, err := c.store.GetRefreshToken(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	if refreshToken == "" {
		return TokenPair{}, ErrNotLoggedIn
	}

	pair, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if ctx.Err() == nil {
			if clearErr := c.store.ClearTokens(ctx); clearErr != nil {
				c.log.Error("failed to clear tokens", slog.String("error", clearErr.Error()))
			}
		}
		return TokenPair{}, err
	}
	if err := c.store.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return TokenPair{}, fmt.Errorf("failed to save tokens: %w", err)
	}
	return pair, nil
}

// Logout removes the stored session
func (c *Client) Logout(ctx context.Context) error {
	return c.store.ClearTokens(ctx)
}

// AccessTokenExpiry reads the exp claim of a JWT access token without verifying it
func AccessTokenExpiry(accessToken string) (time.Time, error) {
	if accessToken == "" {
		return time.Time{}, ErrNotLoggedIn
	}
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode access token: %w", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("exp claim not found")
	}
	return exp.Time, nil
}
