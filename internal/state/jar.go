package state

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

type Logger interface {
	Warn(msg string, fields map[string]any)
}

type cookieKey struct {
	name, path, domain string
}

// CookieJar is an http.CookieJar that mirrors the backend's cookies into
// the store, so separate invocations share one login. Cookies keep their
// own path, domain and expiry across restarts.
type CookieJar struct {
	inner  *cookiejar.Jar
	store  Store
	base   *url.URL
	logger Logger
	now    func() time.Time

	mu    sync.Mutex
	saved map[cookieKey]Cookie
}

func NewCookieJar(ctx context.Context, store Store, base *url.URL, logger Logger) (*CookieJar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	stored, err := store.LoadCookies(ctx)
	if err != nil {
		return nil, err
	}
	root := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	j := &CookieJar{
		inner:  inner,
		store:  store,
		base:   root,
		logger: logger,
		now:    time.Now,
		saved:  make(map[cookieKey]Cookie, len(stored)),
	}
	now := j.now()
	for _, c := range stored {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		j.saved[c.key()] = c
		u := &url.URL{Scheme: root.Scheme, Host: root.Host, Path: c.Path}
		inner.SetCookies(u, []*http.Cookie{c.httpCookie()})
	}
	return j, nil
}

func (c Cookie) key() cookieKey {
	return cookieKey{name: c.Name, path: c.Path, domain: c.Domain}
}

func (c Cookie) httpCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// defaultCookiePath is the RFC 6265 default-path of a request URL.
func defaultCookiePath(u *url.URL) string {
	p := u.Path
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
	if u.Host != j.base.Host || len(cookies) == 0 {
		return
	}

	now := j.now().UTC()
	for _, hc := range cookies {
		c := Cookie{
			Name:      hc.Name,
			Value:     hc.Value,
			Path:      hc.Path,
			Domain:    strings.ToLower(strings.TrimPrefix(hc.Domain, ".")),
			Secure:    hc.Secure,
			HttpOnly:  hc.HttpOnly,
			UpdatedTS: now,
		}
		if c.Path == "" || c.Path[0] != '/' {
			c.Path = defaultCookiePath(u)
		}
		switch {
		case hc.MaxAge < 0:
			delete(j.saved, c.key())
			continue
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		case !hc.Expires.IsZero():
			if !hc.Expires.After(now) {
				delete(j.saved, c.key())
				continue
			}
			c.Expires = hc.Expires.UTC()
		}
		j.saved[c.key()] = c
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.store.SaveCookies(ctx, j.snapshot()); err != nil && j.logger != nil {
		j.logger.Warn("state.cookies_save_failed", map[string]any{"error": err.Error()})
	}
}

func (j *CookieJar) snapshot() []Cookie {
	out := make([]Cookie, 0, len(j.saved))
	for _, c := range j.saved {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].Path < out[b].Path
	})
	return out
}

// Clear forgets every cookie, in memory and on disk.
func (j *CookieJar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	j.inner = inner
	j.saved = make(map[cookieKey]Cookie)
	return j.store.SaveCookies(ctx, nil)
}
