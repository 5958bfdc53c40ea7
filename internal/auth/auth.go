package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	JSONContentType       = "application/json"
	URLEncodedContentType = "application/x-www-form-urlencoded"
)

const (
	DefaultAuthURL            = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	PersonalApiScope          = "GIGACHAT_API_PERS"
	defaultRotateInterval     = time.Minute * 20
	defaultRetryInterval      = time.Second * 5
	defaultAuthRequestTimeout = time.Second * 10
)

type AuthErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   uint64 `json:"expires_at"`
}

// Options configures an AuthenticationHandler
type Options struct {
	AuthURL        string
	Scope          string
	ClientID       string
	ClientSecret   string
	RotateInterval time.Duration
	RetryInterval  time.Duration
	HTTPClient     *http.Client
}

// AuthenticationHandler obtains GigaChat access tokens and keeps them fresh
type AuthenticationHandler struct {
	authURL        string
	scope          string
	clientID       string
	clientSecret   string
	rotateInterval time.Duration
	retryInterval  time.Duration
	httpClient     *http.Client

	mu    sync.RWMutex
	token Token
}

func NewAuthenticationHandler(opts Options) *AuthenticationHandler {
	ah := &AuthenticationHandler{
		authURL:        opts.AuthURL,
		scope:          opts.Scope,
		clientID:       opts.ClientID,
		clientSecret:   opts.ClientSecret,
		rotateInterval: opts.RotateInterval,
		retryInterval:  opts.RetryInterval,
		httpClient:     opts.HTTPClient,
	}
	if ah.authURL == "" {
		ah.authURL = DefaultAuthURL
	}
	if ah.scope == "" {
		ah.scope = PersonalApiScope
	}
	if ah.rotateInterval <= 0 {
		ah.rotateInterval = defaultRotateInterval
	}
	if ah.retryInterval <= 0 {
		ah.retryInterval = defaultRetryInterval
	}
	if ah.httpClient == nil {
		ah.httpClient = &http.Client{Timeout: defaultAuthRequestTimeout}
	}
	return ah
}

// Token returns the current access token, empty until the first fetch succeeds
func (ah *AuthenticationHandler) Token() string {
	ah.mu.RLock()
	defer ah.mu.RUnlock()
	return ah.token.AccessToken
}

// HasToken reports whether an access token has been obtained
func (ah *AuthenticationHandler) HasToken() bool {
	return ah.Token() != ""
}

func (ah *AuthenticationHandler) setToken(token Token) {
	ah.mu.Lock()
	defer ah.mu.Unlock()
	ah.token = token
}

func (ah *AuthenticationHandler) getAccessToken(ctx context.Context) (*Token, error) {
	payload := strings.NewReader("scope=" + ah.scope)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ah.authURL, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}

	authSecret := generateAuthSecret(ah.clientID, ah.clientSecret)
	req.Header.Add("Content-Type", URLEncodedContentType)
	req.Header.Add("Accept", JSONContentType)
	req.Header.Add("RqUID", uuid.NewString())
	req.Header.Add("Authorization", fmt.Sprintf("Basic %s", authSecret))

	res, err := ah.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send auth request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		authErr := AuthErrorResponse{}
		if err := json.Unmarshal(body, &authErr); err != nil {
			return nil, fmt.Errorf("auth request failed: status code %d", res.StatusCode)
		}
		return nil, fmt.Errorf("auth request failed: status code %d, error code %d, message %s", res.StatusCode, authErr.Code, authErr.Message)
	}

	accessToken := Token{}
	if err := json.Unmarshal(body, &accessToken); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth response body: %w", err)
	}
	if accessToken.AccessToken == "" {
		return nil, fmt.Errorf("auth response has no access token")
	}
	return &accessToken, nil
}

// Run fetches the first token, retrying until it succeeds, and then rotates it
// periodically. It returns when ctx is done.
func (ah *AuthenticationHandler) Run(ctx context.Context) error {
	if err := ah.fetchInitialToken(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(ah.rotateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ah.rotateToken(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (ah *AuthenticationHandler) fetchInitialToken(ctx context.Context) error {
	for {
		token, err := ah.getAccessToken(ctx)
		if err == nil {
			ah.setToken(*token)
			slog.Info("Access token obtained", slog.Int("expires_at", int(token.ExpiresAt)))
			return nil
		}
		slog.Error("Failed to get Access Token", "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(ah.retryInterval):
		}
	}
}

func (ah *AuthenticationHandler) rotateToken(ctx context.Context) {
	newToken, err := ah.getAccessToken(ctx)
	if err != nil {
		slog.Error("Failed to get new access token for rotation", "error", err)
		return
	}

	ah.setToken(*newToken)
	slog.Info("Access token rotated successfully", slog.Int("expires_at", int(newToken.ExpiresAt)))
}

func generateAuthSecret(clientID, clientSecret string) string {
	authSecret := fmt.Sprintf("%s:%s", clientID, clientSecret)
	encodedAuthStr := base64.StdEncoding.EncodeToString([]byte(authSecret))
	return encodedAuthStr
}
