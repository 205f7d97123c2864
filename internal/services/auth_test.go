package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/pkg/ctxutil"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	as := NewAuthService(logger.Nop(), "s3cret", time.Minute)
	user, tenant := uuid.New(), uuid.New()
	tok, err := as.IssueToken(user, tenant, "admin", "a@b.test")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := as.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	id := ctxutil.GetIdentity(ctx)
	if id == nil || id.UserID != user || id.TenantID != tenant || !id.IsAdmin() || id.Email != "a@b.test" {
		t.Fatalf("identity: got=%+v", id)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	as := NewAuthService(logger.Nop(), "s3cret", time.Minute)
	other := NewAuthService(logger.Nop(), "different", time.Minute)
	forged, _ := other.IssueToken(uuid.New(), uuid.New(), "", "")

	sign := func(c Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong key", forged},
		{"expired", sign(Claims{TenantID: uuid.NewString(), RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: past}}, jwt.SigningMethodHS256, []byte("s3cret"))},
		{"no expiry", sign(Claims{TenantID: uuid.NewString(), RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}}, jwt.SigningMethodHS256, []byte("s3cret"))},
		{"no tenant", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: future}}, jwt.SigningMethodHS256, []byte("s3cret"))},
		{"bad subject", sign(Claims{TenantID: uuid.NewString(), RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: future}}, jwt.SigningMethodHS256, []byte("s3cret"))},
		{"wrong alg", sign(Claims{TenantID: uuid.NewString(), RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: future}}, jwt.SigningMethodHS512, []byte("s3cret"))},
	}
	for _, tc := range cases {
		ctx, err := as.SetContextFromToken(context.Background(), tc.token)
		if err == nil {
			t.Fatalf("%s: want error", tc.name)
		}
		if id := ctxutil.GetIdentity(ctx); id != nil {
			t.Fatalf("%s: want no identity got=%+v", tc.name, id)
		}
	}
}
