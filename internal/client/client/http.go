package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

const maxResponseBytes = 1 << 20

// HTTPClient is the JSON API implementation of Client and AdminClient.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger

	mu       sync.RWMutex
	tokens   *models.TokenPair
	onTokens func(*models.TokenPair)

	refreshMu sync.Mutex
}

type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.http = c }
}

func WithLogger(l logging.Logger) HTTPOption {
	return func(h *HTTPClient) { h.logger = l }
}

// WithTokenListener registers fn to be called when a silent refresh swaps the
// pair, or with nil when the server rejects the session. Tokens returned by
// sign-in calls are installed without notifying fn.
func WithTokenListener(fn func(*models.TokenPair)) HTTPOption {
	return func(h *HTTPClient) { h.onTokens = fn }
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Nop{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Tokens() *models.TokenPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// SetTokens installs t without notifying the listener.
func (c *HTTPClient) SetTokens(t *models.TokenPair) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// swapTokens installs to only if from is still the held pair, then notifies
// the listener. A pair cleared or replaced meanwhile wins.
func (c *HTTPClient) swapTokens(from, to *models.TokenPair) bool {
	c.mu.Lock()
	if c.tokens != from {
		c.mu.Unlock()
		return false
	}
	c.tokens = to
	c.mu.Unlock()

	if c.onTokens != nil {
		c.onTokens(to)
	}
	return true
}

func (c *HTTPClient) accessToken() string {
	if t := c.Tokens(); t != nil {
		return t.AccessToken
	}
	return ""
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	return c.authCall(ctx, api.PathLogin, api.LoginRequest{Email: email, Password: password})
}

func (c *HTTPClient) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	return c.authCall(ctx, api.PathRegister, req)
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, email, code string) (*api.AuthResponse, error) {
	return c.authCall(ctx, api.PathOTPVerify, api.VerifyOTPRequest{Email: email, OTP: code})
}

func (c *HTTPClient) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error) {
	return c.authCall(ctx, api.PathResetPassword, req)
}

func (c *HTTPClient) RequestOTP(ctx context.Context, email string) (string, error) {
	var out api.MessageResponse
	if err := c.do(ctx, http.MethodPost, api.PathOTPRequest, "", api.EmailRequest{Email: email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out api.MessageResponse
	if err := c.do(ctx, http.MethodPost, api.PathForgotPassword, "", api.EmailRequest{Email: email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *HTTPClient) authCall(ctx context.Context, path string, body any) (*api.AuthResponse, error) {
	var out api.AuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return nil, err
	}
	if out.Tokens != nil {
		c.SetTokens(out.Tokens)
	}
	return &out, nil
}

// Logout revokes the refresh token on a best-effort basis and always drops
// the local tokens. An expired access token is refreshed once so the
// revocation still reaches the server.
func (c *HTTPClient) Logout(ctx context.Context) error {
	defer c.SetTokens(nil)

	t := c.Tokens()
	if t == nil {
		return nil
	}
	err := c.revoke(ctx, t)
	if !isUnauthorized(err) {
		return err
	}

	if rerr := c.refresh(ctx, t.AccessToken); rerr != nil {
		return rerr
	}
	t = c.Tokens()
	if t == nil {
		return common.ErrSessionExpired
	}
	return c.revoke(ctx, t)
}

func (c *HTTPClient) revoke(ctx context.Context, t *models.TokenPair) error {
	return c.do(ctx, http.MethodPost, api.PathLogout, t.AccessToken, api.RefreshRequest{RefreshToken: t.RefreshToken}, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.authed(ctx, http.MethodGet, api.PathUser, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Ping sends the access token when one is held so the server can report the
// auth status. It never refreshes.
func (c *HTTPClient) Ping(ctx context.Context) (*api.PingResponse, error) {
	var out api.PingResponse
	if err := c.do(ctx, http.MethodGet, api.PathPing, c.accessToken(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ProvisionUser(ctx context.Context, req api.ProvisionRequest) (*models.User, error) {
	var out api.UserResponse
	if err := c.authed(ctx, http.MethodPost, api.PathAdminUsers, req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *HTTPClient) ListLogs(ctx context.Context) ([]*models.SystemLog, error) {
	var out []*models.SystemLog
	if err := c.authed(ctx, http.MethodGet, api.PathAdminLogs, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ArchiveLogs(ctx context.Context) (*api.ArchiveResponse, error) {
	var out api.ArchiveResponse
	if err := c.authed(ctx, http.MethodPost, api.PathArchiveLogs, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// authed performs a call that needs the access token. On 401 it refreshes the
// pair once and retries once.
func (c *HTTPClient) authed(ctx context.Context, method, path string, body, out any) error {
	token := c.accessToken()
	if token == "" {
		return common.ErrSessionExpired
	}

	err := c.do(ctx, method, path, token, body, out)
	if !isUnauthorized(err) {
		return err
	}

	c.logger.Debug(ctx, "access token rejected, refreshing", "path", path)
	if rerr := c.refresh(ctx, token); rerr != nil {
		return rerr
	}

	cur := c.Tokens()
	if cur == nil {
		return common.ErrSessionExpired
	}
	err = c.do(ctx, method, path, cur.AccessToken, body, out)
	if isUnauthorized(err) {
		c.swapTokens(cur, nil)
		return common.ErrSessionExpired
	}
	return err
}

// refresh swaps the pair unless another call already did so after stale was
// rejected.
func (c *HTTPClient) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	t := c.Tokens()
	if t == nil {
		return common.ErrSessionExpired
	}
	if t.AccessToken != stale {
		return nil
	}

	var out api.TokensResponse
	err := c.do(ctx, http.MethodPost, api.PathRefresh, "", api.RefreshRequest{RefreshToken: t.RefreshToken}, &out)
	switch {
	case isUnauthorized(err):
		c.swapTokens(t, nil)
		return common.ErrSessionExpired
	case err != nil:
		return err
	case out.Tokens == nil:
		return fmt.Errorf("refresh: %w", common.ErrorInternal)
	}
	if !c.swapTokens(t, out.Tokens) {
		c.logger.Debug(ctx, "discarding refreshed tokens, session changed meanwhile")
		return common.ErrSessionExpired
	}
	return nil
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug(ctx, "request failed", "path", path, "error", err)
		return fmt.Errorf("%s: %w", path, common.ErrTransport)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: %w", path, common.ErrTransport)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		if json.Unmarshal(data, &e) != nil {
			return newAPIError(resp.StatusCode, nil)
		}
		return newAPIError(resp.StatusCode, &e)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, common.ErrorInternal)
	}
	return nil
}
