// Package resttodo implements the service.Service interface against the
// todo REST API.
package resttodo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"tdsync/internal/config"
	"tdsync/internal/service"
)

// Client implements service.Service over HTTP.
type Client struct {
	base    string
	http    *http.Client
	tokens  oauth2.TokenSource
	timeout time.Duration
}

// New creates a client for the configured base URL. tokens may be nil for
// a purely anonymous client; when it yields a token, every request carries
// it as a bearer credential.
func New(cfg *config.Config, tokens oauth2.TokenSource) *Client {
	return &Client{
		base:    cfg.Settings.BaseURL,
		http:    &http.Client{},
		tokens:  tokens,
		timeout: cfg.Timeout(),
	}
}

// taskBody is the wire shape of a task.
type taskBody struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	IsDone      bool       `json:"is_done"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func (b taskBody) task() service.Task {
	t := service.Task{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		IsDone:      b.IsDone,
		CreatedAt:   b.CreatedAt,
	}
	if b.UpdatedAt != nil {
		t.UpdatedAt = *b.UpdatedAt
	}
	return t
}

// Login performs the password grant against POST /auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// The login endpoint speaks the OAuth2 password grant: form-encoded
	// username/password in, {access_token} out.
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.base + "/auth/login",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := conf.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", grantError(re)
		}
		return "", netError(ctx, err)
	}
	return tok.AccessToken, nil
}

// Register requests account creation via POST /auth/register.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/register", nil, body, nil)
}

// CurrentUser fetches the authenticated profile via GET /auth/me.
func (c *Client) CurrentUser(ctx context.Context) (service.User, error) {
	var out struct {
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return service.User{}, err
	}
	return service.User{Email: out.Email}, nil
}

// ListTasks fetches tasks matching the query via GET /todos.
func (c *Client) ListTasks(ctx context.Context, q service.ListQuery) (service.Snapshot, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	switch q.Status {
	case service.StatusCompleted:
		params.Set("is_done", "true")
	case service.StatusPending:
		params.Set("is_done", "false")
	}
	if q.Sort != "" {
		params.Set("sort", string(q.Sort))
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	var out struct {
		Items []taskBody `json:"items"`
		Total *int       `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/todos", params, nil, &out); err != nil {
		return service.Snapshot{}, err
	}

	snap := service.Snapshot{Items: make([]service.Task, 0, len(out.Items))}
	for _, item := range out.Items {
		snap.Items = append(snap.Items, item.task())
	}
	if out.Total != nil {
		snap.Total = *out.Total
	} else {
		// Legacy list shape without a total.
		snap.Total = len(snap.Items)
	}
	return snap, nil
}

// CreateTask creates a task via POST /todos.
func (c *Client) CreateTask(ctx context.Context, title, description string) (service.Task, error) {
	body := map[string]string{"title": title}
	if description != "" {
		body["description"] = description
	}
	var out taskBody
	if err := c.do(ctx, http.MethodPost, "/todos", nil, body, &out); err != nil {
		return service.Task{}, err
	}
	return out.task(), nil
}

// SetDone updates a task's completion status via PATCH /todos/{id}.
// The body is partial: only is_done is sent.
func (c *Client) SetDone(ctx context.Context, id int64, isDone bool) (service.Task, error) {
	body := map[string]bool{"is_done": isDone}
	var out taskBody
	path := fmt.Sprintf("/todos/%d", id)
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &out); err != nil {
		return service.Task{}, err
	}
	return out.task(), nil
}

// DeleteTask deletes a task via DELETE /todos/{id}.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/todos/%d", id), nil, nil, nil)
}

// do performs one request and decodes the response into out (if non-nil).
// Every failure yields a typed *service.Error.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return service.Errf(service.KindValidation, err.Error())
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return service.Errf(service.KindNetwork, err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok, err := c.tokens.Token(); err == nil {
			tok.SetAuthHeader(req)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return netError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return service.Errf(service.KindServer, fmt.Sprintf("invalid response: %v", err))
		}
	}
	return nil
}

// netError maps a transport failure to a typed network error.
func netError(ctx context.Context, err error) *service.Error {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return service.Errf(service.KindNetwork, "request timed out")
	}
	return service.Errf(service.KindNetwork, fmt.Sprintf("network error: %v", err))
}

// statusError maps an HTTP error response to a typed error, extracting the
// server's {detail} message when present.
func statusError(resp *http.Response) *service.Error {
	detail := readDetail(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if detail == "" {
			detail = "unauthorized"
		}
		return service.Errf(service.KindUnauthorized, detail)
	case resp.StatusCode == http.StatusNotFound:
		if detail == "" {
			detail = "not found"
		}
		return service.Errf(service.KindNotFound, detail)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		if detail == "" {
			detail = "invalid request"
		}
		return service.Errf(service.KindValidation, detail)
	case resp.StatusCode >= 500:
		return service.Errf(service.KindServer, fmt.Sprintf("server error (status %d)", resp.StatusCode))
	default:
		if detail == "" {
			detail = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return service.Errf(service.KindServer, detail)
	}
}

// grantError maps an OAuth2 token endpoint failure to a typed error.
func grantError(re *oauth2.RetrieveError) *service.Error {
	detail := readDetail(bytes.NewReader(re.Body))
	fake := &http.Response{StatusCode: http.StatusInternalServerError}
	if re.Response != nil {
		fake = re.Response
	}

	switch {
	case fake.StatusCode == http.StatusUnauthorized:
		if detail == "" {
			detail = "invalid credentials"
		}
		return service.Errf(service.KindUnauthorized, detail)
	case fake.StatusCode >= 400 && fake.StatusCode < 500:
		if detail == "" {
			detail = "invalid request"
		}
		return service.Errf(service.KindValidation, detail)
	default:
		return service.Errf(service.KindServer, fmt.Sprintf("server error (status %d)", fake.StatusCode))
	}
}

// readDetail extracts {"detail": ...} from an error body. Validation
// failures may carry a structured detail; it is flattened to text.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil {
		return ""
	}
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Detail == nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", body.Detail)
}
