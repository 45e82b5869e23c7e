package salesforce

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/util"
)

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// assertionLifetime is the validity window of the signed login assertion.
const assertionLifetime = 3 * time.Minute

// TokenResponse is the result of a successful token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// OrgID extracts the org id from the identity URL in the token response.
func (t *TokenResponse) OrgID() string {
	return util.OrgIDFromIdentityURL(t.ID)
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// JWTAuth performs the headless JWT bearer token exchange against the
// platform login endpoint using a pre-authorized connected app certificate.
type JWTAuth struct {
	ClientID   string
	Username   string
	LoginURL   string
	PrivateKey *rsa.PrivateKey
	Logger     logger.Logger
}

// LoadPrivateKey reads an RSA private key in PEM format from a file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading key file: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(buf)
	if err != nil {
		return nil, fmt.Errorf("error parsing key file: %w", err)
	}
	return key, nil
}

func (a *JWTAuth) assertion() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    a.ClientID,
		Subject:   a.Username,
		Audience:  jwt.ClaimStrings{a.LoginURL},
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	signed, err := token.SignedString(a.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("error signing assertion: %w", err)
	}
	return signed, nil
}

// Authenticate exchanges a signed assertion for an access token.
func (a *JWTAuth) Authenticate(ctx context.Context) (*TokenResponse, error) {
	assertion, err := a.assertion()
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimSuffix(a.LoginURL, "/")+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	retry := util.NewHTTPRetry(req, util.WithLogger(a.Logger))
	resp, err := retry.Do()
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var terr tokenError
		if err := json.Unmarshal(buf, &terr); err == nil && terr.Error != "" {
			return nil, fmt.Errorf("authentication failed (%s): %s", terr.Error, terr.ErrorDescription)
		}
		return nil, fmt.Errorf("authentication failed with status %d", resp.StatusCode)
	}
	var token TokenResponse
	if err := json.Unmarshal(buf, &token); err != nil {
		return nil, fmt.Errorf("error decoding token response: %w", err)
	}
	if a.Logger != nil {
		a.Logger.Debug("authenticated to %s as %s (token: %s)", token.InstanceURL, a.Username, util.MaskToken(token.AccessToken))
	}
	return &token, nil
}
