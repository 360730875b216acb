// Package api wraps the schedule REST service: authenticated CRUD for
// schedule items plus the auth and profile endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"schedule-cli/internal/log"
	"schedule-cli/internal/model"
	"schedule-cli/internal/session"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultServer  = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 8 << 20
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session

	lists singleflight.Group
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New returns a client for baseURL. The session token is read on every call.
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultServer
	}
	if sess == nil {
		sess, _ = session.New(nil)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		session: sess,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Session() *session.Session { return c.session }

// do sends one request and returns the response body for 2xx statuses.
// A 401 on an authenticated call logs the session out before returning.
func (c *Client) do(ctx context.Context, op, method, path string, in any, authed bool) ([]byte, int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if err := c.session.Require(); err != nil {
			return nil, 0, err
		}
		req.Header.Set("Authorization", c.session.BearerHeader())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", "op", op, "method", method, "path", path, "request_id", reqID, "err", err)
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s: read response: %w", op, err)
	}
	log.Debug("request", "op", op, "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, Method: method, Path: path, Status: resp.StatusCode, Message: messageFrom(respBody)}
		if authed && resp.StatusCode == http.StatusUnauthorized {
			log.Info("session expired", "op", op)
			if lerr := c.session.Logout(); lerr != nil {
				log.Warn("clear session", "err", lerr)
			}
		}
		return nil, resp.StatusCode, apiErr
	}
	return respBody, resp.StatusCode, nil
}

// decodeItem returns the item in body, or nil when the body is an
// acknowledgement rather than a saved record.
func decodeItem(body []byte) *model.ScheduleItem {
	b := bytes.TrimSpace(body)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var it model.ScheduleItem
	if err := json.Unmarshal(b, &it); err != nil || it.ID == 0 {
		return nil
	}
	it.Priority = it.Priority.Normalize()
	return &it
}

// ListItems fetches all items of the current user. Concurrent calls share
// one request; the request runs detached from any single caller's context,
// and each caller stops waiting when its own ctx is done.
func (c *Client) ListItems(ctx context.Context) ([]model.ScheduleItem, error) {
	ch := c.lists.DoChan("list", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout())
		defer cancel()
		body, _, err := c.do(fetchCtx, "list items", http.MethodGet, "/api/schedule/list", nil, true)
		if err != nil {
			return nil, err
		}
		var items []model.ScheduleItem
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &items); err != nil {
				return nil, fmt.Errorf("list items: decode: %w", err)
			}
		}
		for i := range items {
			items[i].Priority = items[i].Priority.Normalize()
		}
		return items, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]model.ScheduleItem)
	return append([]model.ScheduleItem(nil), shared...), nil
}

func (c *Client) timeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return DefaultTimeout
}

// ListEvents returns the calendar projection of ListItems, sorted.
func (c *Client) ListEvents(ctx context.Context) ([]model.CalendarEvent, error) {
	items, err := c.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	evs := model.Events(items)
	model.SortEvents(evs)
	return evs, nil
}

// GetItem finds one item by id. The service has no single-item endpoint.
func (c *Client) GetItem(ctx context.Context, id int64) (model.ScheduleItem, error) {
	items, err := c.ListItems(ctx)
	if err != nil {
		return model.ScheduleItem{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.ScheduleItem{}, &Error{
		Op:      "get item",
		Method:  http.MethodGet,
		Path:    "/api/schedule/list",
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("schedule item %d not found", id),
	}
}

// CreateItem saves a new item. The returned item is nil when the service
// only acknowledged the write.
func (c *Client) CreateItem(ctx context.Context, it model.ScheduleItem) (*model.ScheduleItem, error) {
	it.ID = 0
	it.Priority = it.Priority.Normalize()
	body, _, err := c.do(ctx, "create item", http.MethodPost, "/api/schedule/add", it, true)
	if err != nil {
		return nil, err
	}
	return decodeItem(body), nil
}

// UpdateItem replaces item id. The returned item is nil when the service
// only acknowledged the write.
func (c *Client) UpdateItem(ctx context.Context, id int64, it model.ScheduleItem) (*model.ScheduleItem, error) {
	it.ID = id
	it.Priority = it.Priority.Normalize()
	path := "/api/schedule/update/" + strconv.FormatInt(id, 10)
	body, _, err := c.do(ctx, "update item", http.MethodPut, path, it, true)
	if err != nil {
		return nil, err
	}
	return decodeItem(body), nil
}

func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	path := "/api/schedule/delete/" + strconv.FormatInt(id, 10)
	_, _, err := c.do(ctx, "delete item", http.MethodDelete, path, nil, true)
	return err
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, creds model.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	body, _, err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", creds, false)
	if err != nil {
		return err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("login: decode: %w", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return fmt.Errorf("login: response carried no token")
	}
	if err := c.session.Login(out.Token); err != nil {
		return fmt.Errorf("login: store session: %w", err)
	}
	log.Info("logged in", "email", creds.Email)
	return nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg model.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	_, _, err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", reg, false)
	return err
}

// Logout clears the session. The service keeps no server-side session.
func (c *Client) Logout() error {
	return c.session.Logout()
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	body, _, err := c.do(ctx, "get profile", http.MethodGet, "/api/user/me", nil, true)
	if err != nil {
		return model.User{}, err
	}
	var u model.User
	if err := json.Unmarshal(body, &u); err != nil {
		return model.User{}, fmt.Errorf("get profile: decode: %w", err)
	}
	return u, nil
}

func (c *Client) UpdateMe(ctx context.Context, upd model.UserUpdate) error {
	_, _, err := c.do(ctx, "update profile", http.MethodPut, "/api/user/me", upd, true)
	return err
}
