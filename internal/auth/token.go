package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/travel-auth/internal/config"
	"github.com/spec-kit/travel-auth/internal/domain"
)

// ErrInvalidToken covers signature mismatch, malformed structure and expiry.
// Callers cannot distinguish the three cases.
var ErrInvalidToken = errors.New("invalid token")

// Claims describes the JWT payload for all three principal kinds.
// Exactly one of UserID/BusinessID/AdminID is set, selected by UserType.
type Claims struct {
	UserID     string               `json:"userId,omitempty"`
	BusinessID string               `json:"businessId,omitempty"`
	AdminID    string               `json:"adminId,omitempty"`
	Email      string               `json:"email,omitempty"`
	Role       string               `json:"role,omitempty"`
	UserType   domain.PrincipalKind `json:"userType"`
	jwt.RegisteredClaims
}

// SubjectID returns the kind-specific identifier claim.
func (c *Claims) SubjectID() string {
	switch c.UserType {
	case domain.KindConsumer:
		return c.UserID
	case domain.KindBusiness:
		return c.BusinessID
	case domain.KindAdmin:
		return c.AdminID
	}
	return ""
}

type kindProfile struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// TokenService mints and verifies access/refresh JWTs. Each principal kind
// has its own signing secrets and expiry profile.
type TokenService struct {
	profiles map[domain.PrincipalKind]kindProfile
	now      func() time.Time
}

// NewTokenService builds the service from signing configuration.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		profiles: map[domain.PrincipalKind]kindProfile{
			domain.KindConsumer: {
				accessSecret:  []byte(cfg.ConsumerSecrets.Access),
				refreshSecret: []byte(cfg.ConsumerSecrets.Refresh),
				accessTTL:     cfg.ConsumerAccessTTL,
				refreshTTL:    cfg.ConsumerRefreshTTL,
			},
			domain.KindBusiness: {
				accessSecret:  []byte(cfg.BusinessSecrets.Access),
				refreshSecret: []byte(cfg.BusinessSecrets.Refresh),
				accessTTL:     cfg.BusinessAccessTTL,
				refreshTTL:    cfg.BusinessRefreshTTL,
			},
			domain.KindAdmin: {
				accessSecret:  []byte(cfg.AdminSecrets.Access),
				refreshSecret: []byte(cfg.AdminSecrets.Refresh),
				accessTTL:     cfg.AdminAccessTTL,
				refreshTTL:    cfg.AdminRefreshTTL,
			},
		},
		now: time.Now,
	}
}

// WithClock replaces the wall clock. Used by tests to simulate expiry.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	ts.now = now
	return ts
}

// IssueTokens mints an access/refresh pair for the principal.
func (ts *TokenService) IssueTokens(p domain.Principal) (domain.TokenPair, error) {
	profile, ok := ts.profiles[p.Kind]
	if !ok {
		return domain.TokenPair{}, errors.New("unknown principal kind")
	}

	issuedAt := ts.now()
	accessExp := issuedAt.Add(profile.accessTTL)
	refreshExp := issuedAt.Add(profile.refreshTTL)

	access := baseClaims(p, issuedAt, accessExp)
	access.Email = p.Email

	refresh := baseClaims(p, issuedAt, refreshExp)

	accessToken, err := signClaims(access, profile.accessSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refreshToken, err := signClaims(refresh, profile.refreshSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates signature and expiry against the kind's access secret.
func (ts *TokenService) VerifyAccess(tokenStr string) (*Claims, error) {
	return ts.verify(tokenStr, func(p kindProfile) []byte { return p.accessSecret })
}

// VerifyRefresh validates signature and expiry against the kind's refresh secret.
func (ts *TokenService) VerifyRefresh(tokenStr string) (*Claims, error) {
	return ts.verify(tokenStr, func(p kindProfile) []byte { return p.refreshSecret })
}

func (ts *TokenService) verify(tokenStr string, secretOf func(kindProfile) []byte) (*Claims, error) {
	// The unverified userType claim only selects which secret to try;
	// nothing else is trusted before the signature check passes.
	hinted := DecodeUnverified(tokenStr)
	if hinted == nil || !hinted.UserType.Valid() {
		return nil, ErrInvalidToken
	}
	profile := ts.profiles[hinted.UserType]

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secretOf(profile), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(ts.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.UserType.Valid() || claims.SubjectID() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeUnverified splits the token and parses the payload segment without
// checking the signature. Returns nil on malformed structure. Never use the
// result for authorization decisions.
func DecodeUnverified(tokenStr string) *Claims {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// IsExpiring reports whether the token expires within the buffer.
// Malformed tokens and tokens without an exp claim count as expiring.
func (ts *TokenService) IsExpiring(tokenStr string, buffer time.Duration) bool {
	claims := DecodeUnverified(tokenStr)
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(ts.now().Add(buffer))
}

func baseClaims(p domain.Principal, issuedAt, expiresAt time.Time) *Claims {
	claims := &Claims{
		UserType: p.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	switch p.Kind {
	case domain.KindConsumer:
		claims.UserID = p.ID
	case domain.KindBusiness:
		claims.BusinessID = p.ID
	case domain.KindAdmin:
		claims.AdminID = p.ID
		claims.Role = p.Role
	}
	return claims
}

func signClaims(claims *Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
