package salesforce

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthAuthenticate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/oauth2/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.Form.Get("grant_type"))

		assertion := r.Form.Get("assertion")
		require.NotEmpty(t, assertion)
		var claims jwt.RegisteredClaims
		token, err := jwt.ParseWithClaims(assertion, &claims, func(t *jwt.Token) (any, error) {
			return &key.PublicKey, nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)
		assert.Equal(t, "clientid", claims.Issuer)
		assert.Equal(t, "user@example.com", claims.Subject)

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "sessiontoken",
			"instance_url": "https://myorg.example.com",
			"id":           "https://login.example.com/id/00D000000000001EAA/005000000000001",
			"token_type":   "Bearer",
		})
	}))
	defer server.Close()

	auth := JWTAuth{
		ClientID:   "clientid",
		Username:   "user@example.com",
		LoginURL:   server.URL,
		PrivateKey: key,
		Logger:     logger.NewTestLogger(),
	}
	token, err := auth.Authenticate(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "sessiontoken", token.AccessToken)
	assert.Equal(t, "https://myorg.example.com", token.InstanceURL)
	assert.Equal(t, "00D000000000001EAA", token.OrgID())
}

func TestJWTAuthAuthenticateFailure(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "user hasn't approved this consumer",
		})
	}))
	defer server.Close()

	auth := JWTAuth{
		ClientID:   "clientid",
		Username:   "user@example.com",
		LoginURL:   server.URL,
		PrivateKey: key,
		Logger:     logger.NewTestLogger(),
	}
	_, err = auth.Authenticate(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}
