package warehouse

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAccount is the subset of a Google service-account JSON key the
// engine needs to mint bearer tokens.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ParseServiceAccount decodes a service-account JSON key.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("warehouse: parse service account: %w", err)
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &sa, nil
}

// TokenSource signs a short-lived RS256 JWT assertion and exchanges it for
// an OAuth2 access token, caching one token per scope until 60s before
// expiry (spec §4.1 "Authentication").
type TokenSource struct {
	sa         *ServiceAccount
	key        *rsa.PrivateKey
	httpClient *http.Client

	mu     sync.Mutex
	tokens map[string]cachedToken
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// NewTokenSource builds a TokenSource from a parsed service account.
func NewTokenSource(sa *ServiceAccount) (*TokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("warehouse: parse private key: %w", err)
	}
	return &TokenSource{
		sa:         sa,
		key:        key,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     make(map[string]cachedToken),
	}, nil
}

// Token returns a valid bearer token for scope, reusing a cached one when
// it has at least 60 seconds left.
func (t *TokenSource) Token(ctx context.Context, scope string) (string, error) {
	t.mu.Lock()
	if cached, ok := t.tokens[scope]; ok && time.Now().Before(cached.expiresAt.Add(-60*time.Second)) {
		t.mu.Unlock()
		return cached.accessToken, nil
	}
	t.mu.Unlock()

	assertion, err := t.signAssertion(scope)
	if err != nil {
		return "", err
	}
	token, expiresIn, err := t.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.tokens[scope] = cachedToken{accessToken: token, expiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second)}
	t.mu.Unlock()
	return token, nil
}

func (t *TokenSource) signAssertion(scope string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.sa.ClientEmail,
		"scope": scope,
		"aud":   t.sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(t.key)
}

func (t *TokenSource) exchange(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("warehouse: token exchange: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("warehouse: decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Error != "" {
		return "", 0, fmt.Errorf("warehouse: token exchange failed: status=%d error=%s", resp.StatusCode, body.Error)
	}
	return body.AccessToken, body.ExpiresIn, nil
}

const (
	ScopeBigQuery = "https://www.googleapis.com/auth/bigquery"
	ScopeSheets   = "https://www.googleapis.com/auth/spreadsheets.readonly"
)
