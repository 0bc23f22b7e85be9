package api

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frizerie/m/domain"
	"frizerie/m/internal/seed"
)

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Maria",
		"email":    "Maria@Example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	checkHeader(t, rr.Result().Header)

	var tokens tokenResponse
	decodeBody(t, rr, &tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)
	require.NotNil(t, tokens.User)
	assert.Equal(t, "maria@example.com", tokens.User.Email)
	assert.Equal(t, domain.RoleCustomer, tokens.User.Role)
	assert.Equal(t, "BRONZE", tokens.User.VIPLevel)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]map[string]any{
		"missing name":  {"email": "a@b.test", "password": testPassword},
		"bad email":     {"name": "A", "email": "not-an-email", "password": testPassword},
		"short pass":    {"name": "A", "email": "a@b.test", "password": "short"},
		"admin role":    {"name": "A", "email": "a@b.test", "password": testPassword, "role": "admin"},
		"unknown field": {"name": "A", "email": "a@b.test", "password": testPassword, "is_admin": true},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	body := map[string]string{"name": "A", "email": "dup@b.test", "password": testPassword}

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/auth/register", body, "").Code)
	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegisterStylist(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "Ion", "email": "ion@b.test", "password": testPassword, "role": "stylist",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var tokens tokenResponse
	decodeBody(t, rr, &tokens)
	assert.Equal(t, domain.RoleStylist, tokens.User.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "user@b.test")

	rr := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "user@b.test", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	rr = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "nobody@b.test", "password": "whatever",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "me@b.test")

	rr := s.do(t, http.MethodGet, "/api/v1/users/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var user domain.User
	decodeBody(t, rr, &user)
	assert.Equal(t, "me@b.test", user.Email)

	rr = s.do(t, http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "refresh@b.test")
	tokens := s.login(t, "refresh@b.test", testPassword)

	rr := s.do(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var refreshed tokenResponse
	decodeBody(t, rr, &refreshed)
	require.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/users/me", nil, refreshed.AccessToken).Code)

	// Token kinds are not interchangeable.
	rr = s.do(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": tokens.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/v1/users/me", nil, tokens.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTokenForDeletedUser(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "gone@b.test")

	_, err := s.handler.db.Exec(`DELETE FROM users WHERE email = ?`, "gone@b.test")
	require.NoError(t, err)

	rr := s.do(t, http.MethodGet, "/api/v1/users/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTokenSignedWithOtherSecret(t *testing.T) {
	s := newTestServer(t)
	other := newTestServer(t)
	other.handler.cfg.Secret = "another-secret"
	token := other.registerAndLogin(t, "forged@b.test")
	s.registerAndLogin(t, "forged@b.test")

	rr := s.do(t, http.MethodGet, "/api/v1/users/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPromotionTakesEffectWithoutNewToken(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "promoted@b.test")

	require.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/analytics/summary", nil, token).Code)

	_, err := seed.EnsureAdmin(s.handler.db, "", "promoted@b.test", "unused")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/analytics/summary", nil, token).Code)
}

func TestBearerTokenRejections(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, testAdminEmail, testAdminPassword)
	require.NotNil(t, admin.User)

	claimsFor := func(kind string, expires time.Time) authClaims {
		return authClaims{
			UserID:    admin.User.ID,
			Role:      domain.RoleAdmin,
			TokenType: kind,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   testAdminEmail,
				ExpiresAt: jwt.NewNumericDate(expires),
				IssuedAt:  jwt.NewNumericDate(expires.Add(-time.Hour)),
			},
		}
	}
	hour := time.Now().Add(time.Hour)
	secret := []byte(s.handler.cfg.Secret)

	valid, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsFor(accessToken, hour)).SignedString(secret)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsFor(accessToken, time.Now().Add(-time.Minute))).SignedString(secret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claimsFor(accessToken, hour)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rs256, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claimsFor(accessToken, hour)).SignedString(key)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		UserID: admin.User.ID, Role: domain.RoleAdmin, TokenType: accessToken,
	}).SignedString(secret)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/analytics/summary", nil, valid).Code)

	for name, token := range map[string]string{
		"expired":       expired,
		"alg none":      unsigned,
		"rs256":         rs256,
		"no expiry":     noExpiry,
		"refresh token": admin.RefreshToken,
	} {
		rr := s.do(t, http.MethodGet, "/api/v1/analytics/summary", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"), name)
	}
}
