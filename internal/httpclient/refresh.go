package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// ErrRefreshFailed is returned to every request queued behind a refresh that
// was rejected or hit a network fault.
var ErrRefreshFailed = errors.New("token refresh failed")

// Tokens is the pair handed to the persistence hook after a refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Hooks are supplied by the caller; token storage (cookies, local storage,
// cross-tab sync) lives outside this package.
type Hooks struct {
	GetAccessToken  func() string
	GetRefreshToken func() string
	OnTokenRefresh  func(Tokens)
	OnUnauthorized  func()
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Message      string `json:"message"`
}

// Coordinator attaches the current access token to outbound requests and
// refreshes it on 401 with single-flight semantics: however many requests
// fail concurrently, exactly one refresh call goes out, and every queued
// request is replayed once the new token is stored.
type Coordinator struct {
	client     *Client
	refreshURL string
	hooks      Hooks
	logger     *zap.Logger

	mu         sync.Mutex
	refreshing bool
	waiters    []chan error
}

// NewCoordinator wraps the retry client with refresh handling.
func NewCoordinator(client *Client, refreshURL string, hooks Hooks, logger *zap.Logger) *Coordinator {
	return &Coordinator{client: client, refreshURL: refreshURL, hooks: hooks, logger: logger}
}

// Do sends the request with the current access token. On 401 it waits for a
// (possibly shared) refresh and replays the request once with the new token;
// a second 401 is returned to the caller as-is. Errors unrelated to auth pass
// through unchanged.
func (c *Coordinator) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, false)
}

func (c *Coordinator) do(req *http.Request, retried bool) (*http.Response, error) {
	if token := c.hooks.GetAccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || retried {
		return resp, nil
	}
	resp.Body.Close()

	if err := c.awaitRefresh(req); err != nil {
		return nil, err
	}
	if err := rewindBody(req); err != nil {
		return nil, err
	}
	return c.do(req, true)
}

// awaitRefresh queues the caller behind the in-flight refresh, starting one
// if none is running. FIFO queue; each waiter is resolved exactly once.
func (c *Coordinator) awaitRefresh(req *http.Request) error {
	ch := make(chan error, 1)

	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	if !c.refreshing {
		c.refreshing = true
		go c.runRefresh()
	}
	c.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

func (c *Coordinator) runRefresh() {
	err := c.refresh()

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
}

// refresh posts the stored refresh token to the refresh endpoint. The call
// deliberately bypasses Do so the stale access token is never attached.
func (c *Coordinator) refresh() error {
	refreshToken := c.hooks.GetRefreshToken()
	if refreshToken == "" {
		c.logger.Warn("no refresh token stored")
		c.hooks.OnUnauthorized()
		return ErrRefreshFailed
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		c.hooks.OnUnauthorized()
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		c.hooks.OnUnauthorized()
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("refresh call failed", zap.Error(err))
		c.hooks.OnUnauthorized()
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.hooks.OnUnauthorized()
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Success || parsed.AccessToken == "" {
		c.logger.Warn("refresh rejected", zap.Int("status", resp.StatusCode), zap.String("message", parsed.Message))
		c.hooks.OnUnauthorized()
		if parsed.Message != "" {
			return fmt.Errorf("%w: %s", ErrRefreshFailed, parsed.Message)
		}
		return ErrRefreshFailed
	}

	tokens := Tokens{AccessToken: parsed.AccessToken, RefreshToken: parsed.RefreshToken}
	if tokens.RefreshToken == "" {
		// Server did not rotate the refresh token; keep the current one.
		tokens.RefreshToken = refreshToken
	}
	c.hooks.OnTokenRefresh(tokens)
	return nil
}
