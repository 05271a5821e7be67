package httpclient

import (
	"maps"
	"net/http"
	"time"

	"github.com/agentmesh/meshchat/pkg/useragent"
)

type options struct {
	headers map[string]string
	timeout time.Duration
	base    http.RoundTripper
}

type Opt func(*options)

// WithHeaders adds static headers to every request.
func WithHeaders(headers map[string]string) Opt {
	return func(o *options) {
		maps.Copy(o.headers, headers)
	}
}

// WithBearerToken sets the Authorization header. Empty tokens are ignored.
func WithBearerToken(token string) Opt {
	return func(o *options) {
		if token != "" {
			o.headers["Authorization"] = "Bearer " + token
		}
	}
}

// WithTimeout bounds a whole request. Streaming clients leave it unset.
func WithTimeout(d time.Duration) Opt {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Opt {
	return func(o *options) {
		o.base = rt
	}
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (h *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	r2.Header.Set("User-Agent", useragent.Header)
	for k, v := range h.headers {
		r2.Header.Set(k, v)
	}
	return h.rt.RoundTrip(r2)
}

func NewHTTPClient(opts ...Opt) *http.Client {
	o := options{
		headers: map[string]string{},
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &http.Client{
		Timeout: o.timeout,
		Transport: &headerTransport{
			headers: o.headers,
			rt:      o.base,
		},
	}
}
