package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongKind    = errors.New("wrong token kind")
)

// Token kinds
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

const issuer = "clubapp-devserver"

// Claims represents the JWT claims for a member session
type Claims struct {
	MemberID string `json:"member_id"`
	Phone    string `json:"phone"`
	Kind     string `json:"kind"`     // access or refresh
	TokenID  string `json:"token_id"` // for refresh rotation tracking
	jwt.RegisteredClaims
}

// IssuedPair is a freshly signed access/refresh pair
type IssuedPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	RefreshTokenID   string
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secretKey       []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
	now             func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, accessDuration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secretKey),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		now:             time.Now,
	}
}

// IssuePair signs a new access and refresh token for a member
func (m *JWTManager) IssuePair(memberID, phone string) (*IssuedPair, error) {
	access, accessExp, _, err := m.sign(memberID, phone, KindAccess, m.accessDuration)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, refreshID, err := m.sign(memberID, phone, KindRefresh, m.refreshDuration)
	if err != nil {
		return nil, err
	}
	return &IssuedPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		RefreshTokenID:   refreshID,
	}, nil
}

func (m *JWTManager) sign(memberID, phone, kind string, lifetime time.Duration) (string, time.Time, string, error) {
	now := m.now()
	expiresAt := now.Add(lifetime)
	tokenID := uuid.NewString()

	claims := Claims{
		MemberID: memberID,
		Phone:    phone,
		Kind:     kind,
		TokenID:  tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        tokenID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, tokenID, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, KindAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, KindRefresh)
}

func (m *JWTManager) validate(tokenString, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongKind, claims.Kind, kind)
	}

	return claims, nil
}
