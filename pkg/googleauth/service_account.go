// Package googleauth exchanges Google service-account credentials for
// short-lived OAuth2 access tokens using the JWT bearer grant.
package googleauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenURI is Google's OAuth2 token endpoint.
const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// Credentials is the subset of a service-account key file the exchange needs.
type Credentials struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// assertionClaims is the JWT payload Google expects for the bearer grant.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenSource mints and caches access tokens for one service account. Safe
// for concurrent use.
type TokenSource struct {
	creds      Credentials
	scope      string
	key        *rsa.PrivateKey
	httpClient *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource parses a service-account JSON key and prepares a source for
// the given scope.
func NewTokenSource(serviceAccountJSON []byte, scope string) (*TokenSource, error) {
	var creds Credentials
	if err := json.Unmarshal(serviceAccountJSON, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("service account JSON is missing client_email or private_key")
	}
	if creds.TokenURI == "" {
		creds.TokenURI = DefaultTokenURI
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}

	return &TokenSource{
		creds: creds,
		scope: scope,
		key:   key,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Email returns the service account identity, for logs and health reports.
func (ts *TokenSource) Email() string {
	return ts.creds.ClientEmail
}

// Token returns a valid access token, refreshing once less than a minute of
// lifetime remains.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Until(ts.expires) > time.Minute {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", fmt.Errorf("failed to sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, "POST", ts.creds.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("invalid token endpoint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.AccessToken == "" {
		if result.Error != "" {
			return "", fmt.Errorf("token exchange rejected: %s (%s)", result.Error, result.ErrorDesc)
		}
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	ts.token = result.AccessToken
	ts.expires = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	return ts.token, nil
}

func (ts *TokenSource) signAssertion() (string, error) {
	now := time.Now()
	claims := assertionClaims{
		Scope: ts.scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.creds.ClientEmail,
			Audience:  jwt.ClaimStrings{ts.creds.TokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(ts.key)
}
