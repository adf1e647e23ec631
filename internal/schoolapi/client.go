package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"school-admin-core/internal/config"
	"school-admin-core/internal/logger"
	"school-admin-core/pkg/errors"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Client talks to the remote school API. Every request carries the bearer
// token and the school-scope header.
type Client struct {
	cfg        config.SchoolAPIConfig
	httpClient *http.Client
	tokens     TokenSource
	log        zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	httpClient := &http.Client{Timeout: cfg.SchoolAPI.Timeout}
	log := logger.Component("schoolapi")

	var tokens TokenSource
	if cfg.SchoolAPI.StaticToken != "" {
		tokens = StaticToken(cfg.SchoolAPI.StaticToken)
	} else {
		tokens = NewAuthManager(cfg.SchoolAPI, httpClient, log)
	}

	return NewClientWithTokens(cfg.SchoolAPI, httpClient, tokens, log)
}

func NewClientWithTokens(cfg config.SchoolAPIConfig, httpClient *http.Client, tokens TokenSource, log zerolog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     tokens,
		log:        log,
	}
}

func (c *Client) GetCurrentSession(ctx context.Context) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodGet, c.cfg.Endpoints.CurrentSession, nil, nil, &session)
	if err != nil {
		var remote errors.RemoteError
		if errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound {
			return nil, errors.ErrNotProvisioned
		}
		return nil, err
	}
	if session.ID == 0 && session.CurrentSession == "" {
		return nil, errors.ErrNotProvisioned
	}
	return &session, nil
}

func (c *Client) UpdateSession(ctx context.Context, req SessionUpdateRequest) error {
	return c.do(ctx, http.MethodPut, c.cfg.Endpoints.UpdateSession, nil, req, nil)
}

func (c *Client) UpdateSessionDates(ctx context.Context, req SessionDatesRequest) (string, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPut, c.cfg.Endpoints.UpdateSessionDates, nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) NextSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.cfg.Endpoints.NextSession, nil, nil, nil)
}

func (c *Client) NextTerm(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.cfg.Endpoints.NextTerm, nil, nil, nil)
}

// CreateResult posts one result. The API creates or updates the record for
// the (student, subject, term, session) identity.
func (c *Client) CreateResult(ctx context.Context, result Result) (*Result, error) {
	var created Result
	if err := c.do(ctx, http.MethodPost, c.cfg.Endpoints.Results, nil, result, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListResults(ctx context.Context) ([]Result, error) {
	var results []Result
	if err := c.do(ctx, http.MethodGet, c.cfg.Endpoints.Results, nil, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) DeleteResult(ctx context.Context, id string) error {
	path := strings.TrimRight(c.cfg.Endpoints.Results, "/") + "/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	fullURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(c.cfg.SchoolHeader, c.cfg.SchoolID)

	c.log.Debug().Str("method", method).Str("path", path).Msg("Calling school API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewRetryableError(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.NewRetryableError(err, "failed to read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Token might be expired, the next call logs in again
		c.tokens.Invalidate()
		return errors.NewRemoteError(resp.StatusCode, extractMessage(respBody))
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		return errors.NewRetryableError(errors.NewRemoteError(resp.StatusCode, extractMessage(respBody)), "school API unavailable")
	default:
		return errors.NewRemoteError(resp.StatusCode, extractMessage(respBody))
	}
}
