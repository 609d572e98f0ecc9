package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"bskyfollow/pkg/config"
	errs "bskyfollow/pkg/errors"
	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
	"bskyfollow/pkg/retry"
)

// Client talks to a Bluesky PDS over XRPC. It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	limiter     ratelimit.Limiter
	retryConfig *retry.Config
	clock       ratelimit.Clock
	logger      logger.Logger

	mu      sync.RWMutex
	session *Session
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the request limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryConfig replaces the retry policy for reads
func WithRetryConfig(cfg *retry.Config) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// WithClock sets the clock used for timestamps and retry waits
func WithClock(clock ratelimit.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// NewClient creates a client for the PDS at baseURL
func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = DefaultService
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    ratelimit.NewSlidingWindow(2500, 5*time.Minute),
		clock:      ratelimit.RealClock{},
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retryConfig == nil {
		c.retryConfig = retry.DefaultConfig()
	}
	c.retryConfig.Clock = c.clock
	c.retryConfig.Logger = log
	return c
}

// NewClientFromConfig creates a client from the loaded configuration
func NewClientFromConfig(cfg *config.Config, log logger.Logger) *Client {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.HTTP.MaxAttempts
	rc.PerType = retry.NewErrorTypeBackoff(cfg.HTTP.RetryDelay)

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.Limits.RequestsPerWindow > 0 && cfg.Limits.Window > 0 {
		limiter = ratelimit.NewSlidingWindow(cfg.Limits.RequestsPerWindow, cfg.Limits.Window)
	}

	return NewClient(cfg.Bluesky.Service, cfg.HTTP.Timeout, log,
		WithLimiter(limiter),
		WithRetryConfig(rc),
	)
}

// Session returns a copy of the current session, or nil before login
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SetSession installs a previously created session
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// ClearSession forgets the current session
func (c *Client) ClearSession() {
	c.SetSession(nil)
}

func (c *Client) requireSession() (*Session, error) {
	s := c.Session()
	if s == nil || s.AccessJwt == "" || s.DID == "" {
		return nil, errs.ErrNotAuthenticated
	}
	return s, nil
}

// CreateSession logs in with a handle or email and an app password.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	c.logger.DebugWithFields("creating session", map[string]interface{}{
		"identifier": identifier,
	})

	var s Session
	req := createSessionRequest{Identifier: identifier, Password: password}
	if err := c.call(ctx, http.MethodPost, NSIDCreateSession, nil, req, &s, ""); err != nil {
		var apiErr *errs.Error
		if stderrors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code != http.StatusTooManyRequests {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeAuth,
				Message: "login failed: " + apiErr.Message,
				Code:    apiErr.Code,
				XRPC:    apiErr.XRPC,
			}
		}
		return nil, err
	}
	if s.AccessJwt == "" || s.DID == "" {
		return nil, &errs.Error{Type: errs.ErrorTypeAuth, Message: "login failed: incomplete session"}
	}

	c.SetSession(&s)
	c.logger.InfoWithFields("session created", map[string]interface{}{
		"handle": s.Handle,
		"did":    s.DID,
	})
	return &s, nil
}

// RefreshSession exchanges the refresh token for a new access token.
func (c *Client) RefreshSession(ctx context.Context) error {
	cur := c.Session()
	if cur == nil || cur.RefreshJwt == "" {
		return errs.ErrNotAuthenticated
	}

	var s Session
	if err := c.call(ctx, http.MethodPost, NSIDRefreshSession, nil, nil, &s, cur.RefreshJwt); err != nil {
		return err
	}
	if s.DID == "" {
		s.DID = cur.DID
	}
	if s.Handle == "" {
		s.Handle = cur.Handle
	}
	c.SetSession(&s)
	c.logger.Debug("session refreshed")
	return nil
}

// GetFollows returns every account actor follows, in server order.
func (c *Client) GetFollows(ctx context.Context, actor string) ([]models.Account, error) {
	var accounts []models.Account
	cursor := ""
	for {
		page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*followsPage, error) {
			var p followsPage
			return &p, c.authed(ctx, http.MethodGet, NSIDGetFollows, pageParams(actor, cursor), nil, &p)
		}, c.retryConfig)
		if err != nil {
			c.logger.ErrorWithFields("failed to fetch follows", map[string]interface{}{
				"actor":   actor,
				"fetched": len(accounts),
				"error":   err.Error(),
			})
			return nil, err
		}
		for _, p := range page.Follows {
			accounts = append(accounts, p.account())
		}
		if page.Cursor == "" || len(page.Follows) == 0 {
			break
		}
		cursor = page.Cursor
	}

	c.logger.DebugWithFields("fetched follows", map[string]interface{}{
		"actor": actor,
		"count": len(accounts),
	})
	return accounts, nil
}

// GetFollowers returns every account following actor, in server order.
func (c *Client) GetFollowers(ctx context.Context, actor string) ([]models.Account, error) {
	var accounts []models.Account
	cursor := ""
	for {
		page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*followersPage, error) {
			var p followersPage
			return &p, c.authed(ctx, http.MethodGet, NSIDGetFollowers, pageParams(actor, cursor), nil, &p)
		}, c.retryConfig)
		if err != nil {
			c.logger.ErrorWithFields("failed to fetch followers", map[string]interface{}{
				"actor":   actor,
				"fetched": len(accounts),
				"error":   err.Error(),
			})
			return nil, err
		}
		for _, p := range page.Followers {
			accounts = append(accounts, p.account())
		}
		if page.Cursor == "" || len(page.Followers) == 0 {
			break
		}
		cursor = page.Cursor
	}

	c.logger.DebugWithFields("fetched followers", map[string]interface{}{
		"actor": actor,
		"count": len(accounts),
	})
	return accounts, nil
}

// GetProfile fetches the detailed profile of actor with its counters filled in
func (c *Client) GetProfile(ctx context.Context, actor string) (*models.Account, error) {
	params := url.Values{}
	params.Set("actor", actor)

	p, err := retry.DoWithResult(ctx, func(ctx context.Context) (*profileView, error) {
		var p profileView
		return &p, c.authed(ctx, http.MethodGet, NSIDGetProfile, params, nil, &p)
	}, c.retryConfig)
	if err != nil {
		return nil, err
	}

	a := p.account()
	if p.FollowsCount != nil {
		a.FollowsCount = *p.FollowsCount
	}
	if p.FollowersCount != nil {
		a.FollowersCount = *p.FollowersCount
	}
	if p.PostsCount != nil {
		a.PostsCount = *p.PostsCount
	}
	a.Enriched = true
	return &a, nil
}

// Follow creates a follow record for did and returns its URI
func (c *Client) Follow(ctx context.Context, did string) (string, error) {
	return c.createRecord(ctx, CollectionFollow, followRecord{
		Type:      CollectionFollow,
		Subject:   did,
		CreatedAt: c.timestamp(),
	})
}

// Unfollow deletes the follow record named by followURI
func (c *Client) Unfollow(ctx context.Context, followURI string) error {
	s, err := c.requireSession()
	if err != nil {
		return err
	}
	uri, err := models.ParseATURI(followURI)
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypeInvalidRequest, Message: err.Error()}
	}

	req := deleteRecordRequest{
		Repo:       s.DID,
		Collection: CollectionFollow,
		RKey:       uri.RKey,
	}
	return c.authed(ctx, http.MethodPost, NSIDDeleteRecord, nil, req, nil)
}

// CreateList creates a curation list and returns its URI
func (c *Client) CreateList(ctx context.Context, name, description string) (string, error) {
	return c.createRecord(ctx, CollectionList, listRecord{
		Type:        CollectionList,
		Name:        name,
		Description: description,
		Purpose:     ListPurposeCurate,
		CreatedAt:   c.timestamp(),
	})
}

// AddListItem adds did to the list at listURI
func (c *Client) AddListItem(ctx context.Context, listURI, did string) error {
	_, err := c.createRecord(ctx, CollectionListItem, listItemRecord{
		Type:      CollectionListItem,
		Subject:   did,
		List:      listURI,
		CreatedAt: c.timestamp(),
	})
	return err
}

func (c *Client) createRecord(ctx context.Context, collection string, record interface{}) (string, error) {
	s, err := c.requireSession()
	if err != nil {
		return "", err
	}

	var resp createRecordResponse
	req := createRecordRequest{Repo: s.DID, Collection: collection, Record: record}
	if err := c.authed(ctx, http.MethodPost, NSIDCreateRecord, nil, req, &resp); err != nil {
		return "", err
	}
	return resp.URI, nil
}

func (c *Client) timestamp() string {
	return c.clock.Now().UTC().Format(createdAtLayout)
}

// authed performs a request with the session's access token. An expired
// token is refreshed once and the request repeated.
func (c *Client) authed(ctx context.Context, method, nsid string, params url.Values, in, out interface{}) error {
	s, err := c.requireSession()
	if err != nil {
		return err
	}

	err = c.call(ctx, method, nsid, params, in, out, s.AccessJwt)
	var apiErr *errs.Error
	if err == nil || !stderrors.As(err, &apiErr) || apiErr.XRPC != "ExpiredToken" || s.RefreshJwt == "" {
		return err
	}

	if rerr := c.RefreshSession(ctx); rerr != nil {
		c.logger.WithError(rerr).Warn("session refresh failed")
		return err
	}
	return c.call(ctx, method, nsid, params, in, out, c.Session().AccessJwt)
}

// call performs one XRPC round trip. A nil in sends no body, a nil out
// discards the response body.
func (c *Client) call(ctx context.Context, method, nsid string, params url.Values, in, out interface{}, token string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errs.Parsing(err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, XRPCURL(c.baseURL, nsid, params), body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogRequest(c.logger, method, nsid, 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	logger.LogRequest(c.logger, method, nsid, resp.StatusCode, time.Since(start))
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.FromResponse(resp.StatusCode, data, resp.Header)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"nsid":         nsid,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return nil
}
