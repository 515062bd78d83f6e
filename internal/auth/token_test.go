package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/travel-auth/internal/config"
	"github.com/spec-kit/travel-auth/internal/domain"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		ConsumerSecrets:    config.SecretPair{Access: "consumer-access", Refresh: "consumer-refresh"},
		BusinessSecrets:    config.SecretPair{Access: "business-access", Refresh: "business-refresh"},
		AdminSecrets:       config.SecretPair{Access: "admin-access", Refresh: "admin-refresh"},
		ConsumerAccessTTL:  15 * time.Minute,
		BusinessAccessTTL:  15 * time.Minute,
		AdminAccessTTL:     time.Hour,
		ConsumerRefreshTTL: 7 * 24 * time.Hour,
		BusinessRefreshTTL: 7 * 24 * time.Hour,
		AdminRefreshTTL:    30 * 24 * time.Hour,
	}
}

func TestIssueAndVerifyAllKinds(t *testing.T) {
	ts := NewTokenService(testAuthConfig())

	principals := []domain.Principal{
		domain.ConsumerPrincipal("c1", "traveler@example.com", "Traveler"),
		domain.BusinessPrincipal("b1", "corp@example.com", "Acme Travel"),
		domain.AdminPrincipal("a1", "ops@example.com", "ADMIN"),
	}

	for _, p := range principals {
		pair, err := ts.IssueTokens(p)
		if err != nil {
			t.Fatalf("issue tokens for %s: %v", p.Kind, err)
		}

		claims, err := ts.VerifyAccess(pair.AccessToken)
		if err != nil {
			t.Fatalf("verify access for %s: %v", p.Kind, err)
		}
		if claims.SubjectID() != p.ID {
			t.Fatalf("subject id = %q, want %q", claims.SubjectID(), p.ID)
		}
		if claims.UserType != p.Kind {
			t.Fatalf("userType = %q, want %q", claims.UserType, p.Kind)
		}
		if claims.Email != p.Email {
			t.Fatalf("email = %q, want %q", claims.Email, p.Email)
		}

		refreshClaims, err := ts.VerifyRefresh(pair.RefreshToken)
		if err != nil {
			t.Fatalf("verify refresh for %s: %v", p.Kind, err)
		}
		if refreshClaims.SubjectID() != p.ID {
			t.Fatalf("refresh subject id = %q, want %q", refreshClaims.SubjectID(), p.ID)
		}
		if refreshClaims.Email != "" {
			t.Fatalf("refresh token must not carry email, got %q", refreshClaims.Email)
		}
	}
}

func TestAccessTokensNeverVerifyAsRefresh(t *testing.T) {
	ts := NewTokenService(testAuthConfig())

	pair, err := ts.IssueTokens(domain.ConsumerPrincipal("c1", "traveler@example.com", "Traveler"))
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if _, err := ts.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token verified against refresh secret: %v", err)
	}
	if _, err := ts.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token verified against access secret: %v", err)
	}
}

func TestCrossKindIsolation(t *testing.T) {
	ts := NewTokenService(testAuthConfig())

	// Forge a token claiming to be an admin but signed with the consumer
	// secret. Verification selects the admin secret, so it must fail.
	now := time.Now()
	forged := &Claims{
		AdminID:  "a1",
		Role:     "ADMIN",
		UserType: domain.KindAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte("consumer-access"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	if _, err := ts.VerifyAccess(tokenStr); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("forged cross-kind token verified: %v", err)
	}
}

func TestExpiryProfilesPerKind(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	ts := NewTokenService(testAuthConfig()).WithClock(func() time.Time { return clock })

	consumerPair, err := ts.IssueTokens(domain.ConsumerPrincipal("c1", "t@example.com", "T"))
	if err != nil {
		t.Fatalf("issue consumer tokens: %v", err)
	}
	adminPair, err := ts.IssueTokens(domain.AdminPrincipal("a1", "ops@example.com", "ADMIN"))
	if err != nil {
		t.Fatalf("issue admin tokens: %v", err)
	}

	// 16 minutes out: the consumer access token is past its 15 minute TTL,
	// the admin token still has most of its hour left.
	clock = issued.Add(16 * time.Minute)
	if _, err := ts.VerifyAccess(consumerPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired consumer access token verified: %v", err)
	}
	if _, err := ts.VerifyAccess(adminPair.AccessToken); err != nil {
		t.Fatalf("admin access token rejected at 16m: %v", err)
	}

	clock = issued.Add(61 * time.Minute)
	if _, err := ts.VerifyAccess(adminPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired admin access token verified: %v", err)
	}

	// Refresh tokens outlive access tokens by days.
	clock = issued.Add(6 * 24 * time.Hour)
	if _, err := ts.VerifyRefresh(consumerPair.RefreshToken); err != nil {
		t.Fatalf("consumer refresh token rejected at 6d: %v", err)
	}
	clock = issued.Add(8 * 24 * time.Hour)
	if _, err := ts.VerifyRefresh(consumerPair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired consumer refresh token verified: %v", err)
	}
	if _, err := ts.VerifyRefresh(adminPair.RefreshToken); err != nil {
		t.Fatalf("admin refresh token rejected at 8d: %v", err)
	}
}

func TestMissingExpTreatedAsInvalid(t *testing.T) {
	ts := NewTokenService(testAuthConfig())

	claims := &Claims{
		UserID:   "c1",
		UserType: domain.KindConsumer,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("consumer-access"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := ts.VerifyAccess(tokenStr); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token without exp verified: %v", err)
	}
	if !ts.IsExpiring(tokenStr, 0) {
		t.Fatal("token without exp should count as expiring")
	}
}

func TestDecodeUnverifiedAdminPair(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := NewTokenService(testAuthConfig()).WithClock(func() time.Time { return issued })

	pair, err := ts.IssueTokens(domain.AdminPrincipal("a1", "ops@example.com", "ADMIN"))
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	claims := DecodeUnverified(pair.AccessToken)
	if claims == nil {
		t.Fatal("decode returned nil for well-formed token")
	}
	if claims.AdminID != "a1" || claims.Role != "ADMIN" || claims.UserType != domain.KindAdmin {
		t.Fatalf("unexpected decoded claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("admin access token lifetime = %v, want 1h", got)
	}

	refreshClaims := DecodeUnverified(pair.RefreshToken)
	if refreshClaims == nil {
		t.Fatal("decode returned nil for refresh token")
	}
	if got := refreshClaims.ExpiresAt.Time.Sub(refreshClaims.IssuedAt.Time); got != 30*24*time.Hour {
		t.Fatalf("admin refresh token lifetime = %v, want 30d", got)
	}
}

func TestDecodeUnverifiedMalformed(t *testing.T) {
	for _, tokenStr := range []string{"", "abc", "a.b", "a.b.c.d", "x.!!!.y", "x.bm90anNvbg.y"} {
		if claims := DecodeUnverified(tokenStr); claims != nil {
			t.Fatalf("decode(%q) = %+v, want nil", tokenStr, claims)
		}
	}
}

func TestIsExpiring(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := NewTokenService(testAuthConfig()).WithClock(func() time.Time { return now })

	pair, err := ts.IssueTokens(domain.ConsumerPrincipal("c1", "t@example.com", "T"))
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	// Consumer access token expires in 15 minutes.
	if ts.IsExpiring(pair.AccessToken, 5*time.Minute) {
		t.Fatal("token should not be expiring with a 5m buffer")
	}
	if !ts.IsExpiring(pair.AccessToken, 20*time.Minute) {
		t.Fatal("token should be expiring with a 20m buffer")
	}
	if !ts.IsExpiring("garbage", time.Minute) {
		t.Fatal("malformed token should count as expiring")
	}
}
