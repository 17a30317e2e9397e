package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-scheduling/internal/config"
	"ms-scheduling/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("calendar-secret")

func signHMAC(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func validClaims(perms ...interface{}) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":         "user-42",
		"email":       "alice@studio.test",
		"exp":         time.Now().Add(time.Hour).Unix(),
		"permissions": perms,
	}
}

func protectedRouter(v Verifier) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", UserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(v, logger.Discard())(Require(PermissionViewCalendar)(ok))
}

func call(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_HMAC(t *testing.T) {
	h := protectedRouter(NewHMACVerifier(testSecret, "permissions"))

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(h, "").Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(h, "Token abc").Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(PermissionViewCalendar)).SignedString([]byte("other"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call(h, "Bearer "+token).Code)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims(PermissionViewCalendar)
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		assert.Equal(t, http.StatusUnauthorized, call(h, "Bearer "+signHMAC(t, claims)).Code)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := validClaims(PermissionViewCalendar)
		delete(claims, "exp")
		assert.Equal(t, http.StatusUnauthorized, call(h, "Bearer "+signHMAC(t, claims)).Code)
	})

	t.Run("missing permission", func(t *testing.T) {
		rec := call(h, "Bearer "+signHMAC(t, validClaims("edit_events")))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed", func(t *testing.T) {
		rec := call(h, "bearer "+signHMAC(t, validClaims("edit_events", PermissionViewCalendar)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-42", rec.Header().Get("X-User"))
	})
}

func TestRequire_WithoutMiddleware(t *testing.T) {
	h := Require(PermissionViewCalendar)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	assert.Equal(t, http.StatusUnauthorized, call(h, "").Code)
}

func TestHMACVerifier_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(PermissionViewCalendar)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewHMACVerifier(testSecret, "permissions").Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPermissionsAt(t *testing.T) {
	raw := map[string]interface{}{
		"scope": "openid view_calendar",
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"view_calendar", 7, "admin"},
		},
	}

	assert.Equal(t, []string{"openid", "view_calendar"}, permissionsAt(raw, "scope"))
	assert.Equal(t, []string{"view_calendar", "admin"}, permissionsAt(raw, "realm_access.roles"))
	assert.Nil(t, permissionsAt(raw, "resource_access.app.roles"))
	assert.Nil(t, permissionsAt(raw, ""))
}

func TestOIDCVerifier(t *testing.T) {
	const issuer = "https://auth.studio.test/realms/studio"
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idVerifier := oidc.NewVerifier(issuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}},
		&oidc.Config{SkipClientIDCheck: true})
	v := NewOIDCVerifier(idVerifier, "realm_access.roles")

	sign := func(iss string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":          iss,
			"sub":          "kc-user",
			"exp":          time.Now().Add(time.Hour).Unix(),
			"iat":          time.Now().Unix(),
			"realm_access": map[string]interface{}{"roles": []string{PermissionViewCalendar}},
		}).SignedString(key)
		require.NoError(t, err)
		return token
	}

	claims, err := v.Verify(context.Background(), sign(issuer))
	require.NoError(t, err)
	assert.Equal(t, "kc-user", claims.Subject)
	assert.True(t, claims.Can(PermissionViewCalendar))

	_, err = v.Verify(context.Background(), sign("https://elsewhere.test"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier(context.Background(), config.AuthConfig{JWTSecret: "s", PermissionsClaim: "permissions"})
	require.NoError(t, err)
	assert.IsType(t, &HMACVerifier{}, v)

	_, err = NewVerifier(context.Background(), config.AuthConfig{})
	assert.Error(t, err)
}
