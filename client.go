package rapid

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Doer is the transport collaborator: anything that can send an
// *http.Request and produce an *http.Response. *http.Client satisfies it.
// Connection pooling, TLS, redirects, retries and timeouts all belong to the
// transport; this package never wraps its errors.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// defaultValidator validates request and model structs when a client does not
// carry its own instance.
var defaultValidator = validator.New()

// Client owns the transport handles and the configuration shared by every
// endpoint call. Configure it with the fluent With* methods at construction;
// a Client is safe for concurrent use once calls have started.
//
//	client := rapid.NewClient().
//	    WithBaseURL("https://api.example.com").
//	    WithHeader("User-Agent", "my-app/1.0")
type Client struct {
	baseURL        string
	headers        map[string]string
	timeout        time.Duration
	logger         *slog.Logger
	validate       *validator.Validate
	interceptors   []Interceptor
	transport      Doer
	asyncTransport Doer

	defaultOnce      sync.Once
	defaultTransport Doer
}

// NewClient creates a client. Without WithHTTPClient or WithTransport, a
// default *http.Client is built lazily on first use from the configured
// timeout.
func NewClient() *Client {
	return &Client{headers: make(map[string]string)}
}

// WithBaseURL sets the URL prefix joined with every endpoint path.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithHeader adds a default header sent with every request. Endpoint static
// headers and call-time header bindings override it key by key.
func (c *Client) WithHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

// WithHeaders adds several default headers at once.
func (c *Client) WithHeaders(headers map[string]string) *Client {
	for k, v := range headers {
		c.headers[k] = v
	}
	return c
}

// WithTimeout sets the timeout used when the default transport is built.
// It has no effect on transports supplied explicitly.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// WithHTTPClient supplies a pre-built *http.Client as the transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.transport = hc
	return c
}

// WithTransport supplies an arbitrary transport used for synchronous calls
// (and asynchronous ones unless WithAsyncTransport is also set).
func (c *Client) WithTransport(t Doer) *Client {
	c.transport = t
	return c
}

// WithAsyncTransport supplies a transport used exclusively by Endpoint.Go.
func (c *Client) WithAsyncTransport(t Doer) *Client {
	c.asyncTransport = t
	return c
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithValidator replaces the validator instance used for request and model
// structs, e.g. to register custom validations.
func (c *Client) WithValidator(v *validator.Validate) *Client {
	c.validate = v
	return c
}

// WithInterceptor adds an interceptor around the transport call. The first
// one added is the outermost.
func (c *Client) WithInterceptor(i Interceptor) *Client {
	c.interceptors = append(c.interceptors, i)
	return c
}

func (c *Client) validatorInstance() *validator.Validate {
	if c.validate != nil {
		return c.validate
	}
	return defaultValidator
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// transportFor selects the handle for one dispatch. The default transport is
// constructed at most once and then shared; nothing mutates a handle after
// construction.
func (c *Client) transportFor(async bool) Doer {
	if async && c.asyncTransport != nil {
		return c.asyncTransport
	}
	if c.transport != nil {
		return c.transport
	}
	c.defaultOnce.Do(func() {
		c.defaultTransport = &http.Client{Timeout: c.timeout}
	})
	return c.defaultTransport
}

// send dispatches a built request through the interceptor chain and the
// selected transport. Transport errors propagate unchanged.
func (c *Client) send(ctx context.Context, req *http.Request, async bool) (*http.Response, error) {
	t := c.transportFor(async)
	c.log().DebugContext(ctx, "sending request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Bool("async", async))
	return chainInterceptors(c.interceptors, t.Do)(ctx, req)
}
