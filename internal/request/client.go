package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"codechallenge/internal/session"

	"golang.org/x/net/publicsuffix"
)

// RefreshPath is the credential renewal endpoint, relative to the base URL.
const RefreshPath = "api/auth/refresh"

const DefaultTimeout = 30 * time.Second

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes = 8 << 20

// Request describes one outbound call. JSON and Form are mutually exclusive.
type Request struct {
	Method      string
	Path        string
	Credentials bool
	JSON        string
	Form        *Form
}

func (r Request) Validate() error {
	switch r.Method {
	case http.MethodGet:
		if r.JSON != "" || r.Form != nil {
			return errors.New("GET request cannot carry a body")
		}
	case http.MethodPost:
		if r.JSON != "" && r.Form != nil {
			return errors.New("request body must be JSON or form, not both")
		}
	default:
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if strings.TrimSpace(r.Path) == "" {
		return errors.New("request path is required")
	}
	return nil
}

func (r Request) body() (io.Reader, string, error) {
	switch {
	case r.Form != nil:
		return r.Form.Encode()
	case r.JSON != "":
		return strings.NewReader(r.JSON), "application/json", nil
	default:
		return nil, "", nil
	}
}

type Options struct {
	BaseURL string
	Session *session.State
	// Jar defaults to an in-memory cookie jar.
	Jar     http.CookieJar
	Timeout time.Duration
	Logger  Logger
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// MaxResponseBytes defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// Client is the shared transport behind every Task, Refresh and Requestor.
type Client struct {
	base    *url.URL
	session *session.State
	jar     http.CookieJar
	timeout time.Duration
	maxBody int64
	logger  Logger

	// authed attaches cookies; anon only accepts the ones a server sets.
	authed *http.Client
	anon   *http.Client

	refresher *Refresher

	wakeMu sync.Mutex
	wake   func()
}

func NewClient(opts Options) (*Client, error) {
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Session == nil {
		return nil, errors.New("session state is required")
	}
	jar := opts.Jar
	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var logger Logger = nopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}
	c := &Client{
		base:    base,
		session: opts.Session,
		jar:     jar,
		timeout: timeout,
		maxBody: maxBody,
		logger:  logger,
		authed:  &http.Client{Jar: jar, Transport: transport},
		anon:    &http.Client{Jar: acceptOnlyJar{jar: jar}, Transport: transport},
	}
	c.refresher = &Refresher{client: c}
	return c, nil
}

// ParseBaseURL validates a backend URL and normalizes it to end in a slash.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("backend url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url has no host: %q", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func (c *Client) Session() *session.State { return c.session }

func (c *Client) Jar() http.CookieJar { return c.jar }

func (c *Client) Refresher() *Refresher { return c.refresher }

// URL resolves a path against the base URL. Absolute URLs pass through.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base.String() + strings.TrimLeft(path, "/")
}

// SetWake installs the hook called whenever a task or refresh completes.
// The UI uses it to schedule a redraw instead of polling on a timer.
func (c *Client) SetWake(fn func()) {
	c.wakeMu.Lock()
	defer c.wakeMu.Unlock()
	c.wake = fn
}

func (c *Client) notify() {
	c.wakeMu.Lock()
	fn := c.wake
	c.wakeMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) Get(path string, credentials bool) *Requestor {
	return c.NewRequestor(Request{Method: http.MethodGet, Path: path, Credentials: credentials})
}

func (c *Client) Post(path string, credentials bool) *Requestor {
	return c.NewRequestor(Request{Method: http.MethodPost, Path: path, Credentials: credentials})
}

func (c *Client) PostJSON(path string, credentials bool, body string) *Requestor {
	return c.NewRequestor(Request{Method: http.MethodPost, Path: path, Credentials: credentials, JSON: body})
}

func (c *Client) PostForm(path string, credentials bool, form *Form) *Requestor {
	return c.NewRequestor(Request{Method: http.MethodPost, Path: path, Credentials: credentials, Form: form})
}

// do performs one HTTP exchange synchronously. It runs on a task goroutine,
// never on the caller of Send or CheckPromise.
func (c *Client) do(ctx context.Context, req Request, id string) outcome {
	if err := req.Validate(); err != nil {
		return outcome{kind: kindFailed, text: err.Error()}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := req.body()
	if err != nil {
		return outcome{kind: kindFailed, text: err.Error()}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req.Path), body)
	if err != nil {
		return outcome{kind: kindFailed, text: err.Error()}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", id)

	hc := c.anon
	if req.Credentials {
		hc = c.authed
	}
	started := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		c.logger.Error("request.transport_failed", map[string]any{"id": id, "path": req.Path, "error": err.Error()})
		return outcome{kind: kindFailed, text: err.Error()}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return outcome{kind: kindFailed, text: fmt.Sprintf("read response: %v", err), code: resp.StatusCode}
	}
	if int64(len(data)) > c.maxBody {
		c.logger.Error("request.response_too_large", map[string]any{"id": id, "path": req.Path, "limit": c.maxBody})
		return outcome{kind: kindFailed, text: fmt.Sprintf("response exceeds %d bytes", c.maxBody), code: resp.StatusCode}
	}
	text := string(data)
	c.logger.Debug("request.done", map[string]any{
		"id":       id,
		"method":   req.Method,
		"path":     req.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	})

	switch resp.StatusCode {
	case http.StatusOK:
		return outcome{kind: kindSuccess, text: text, code: resp.StatusCode}
	case http.StatusUnauthorized:
		c.logger.Warn("request.unauthorized", map[string]any{"id": id, "path": req.Path, "body": strings.TrimSpace(text)})
		return outcome{kind: kindUnauthorized, text: text, code: resp.StatusCode}
	default:
		msg := strings.TrimSpace(text)
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Error("request.failed", map[string]any{"id": id, "path": req.Path, "status": resp.StatusCode, "body": msg})
		return outcome{kind: kindFailed, text: msg, code: resp.StatusCode}
	}
}

// acceptOnlyJar keeps cookies a server sets without ever sending any.
type acceptOnlyJar struct {
	jar http.CookieJar
}

func (j acceptOnlyJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
}

func (acceptOnlyJar) Cookies(*url.URL) []*http.Cookie { return nil }
