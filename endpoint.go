package rapid

import (
	"context"
	"net/http"
	"reflect"
	"sync"
	"time"
)

// Endpoint binds a request struct type and a result type to one HTTP
// operation. Declare endpoints as package-level values and configure them
// with the fluent With* methods before first use; the binding plan is
// computed once on the first call and cached for the lifetime of the value.
//
//	type SearchParams struct {
//	    Q    string `api:"query" validate:"required"`
//	    Page *int   `api:"query" default:"1"`
//	}
//
//	var search = rapid.Get[SearchParams, SearchResult]("/search")
type Endpoint[Req, Res any] struct {
	cfg     endpointConfig
	timeout time.Duration
	plan    func() (*plan, error)
}

// NewEndpoint creates an endpoint for an arbitrary HTTP method. The path may
// contain {token} placeholders resolved from `api:"path"` fields.
func NewEndpoint[Req, Res any](method, path string) *Endpoint[Req, Res] {
	e := &Endpoint[Req, Res]{cfg: endpointConfig{method: method, path: path}}
	e.plan = sync.OnceValues(func() (*plan, error) {
		return analyze(e.cfg, reflect.TypeOf((*Req)(nil)).Elem(), reflect.TypeOf((*Res)(nil)).Elem())
	})
	return e
}

// Get creates a GET endpoint.
func Get[Req, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodGet, path)
}

// Post creates a POST endpoint.
func Post[Req, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodPost, path)
}

// Put creates a PUT endpoint.
func Put[Req, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodPut, path)
}

// Patch creates a PATCH endpoint.
func Patch[Req, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodPatch, path)
}

// Delete creates a DELETE endpoint.
func Delete[Req, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodDelete, path)
}

// Head creates a HEAD endpoint.
func Head[Req, Res any](path string) *Endpoint[Req, Res] {
	return NewEndpoint[Req, Res](http.MethodHead, path)
}

// WithName sets the endpoint name used in declaration errors and logs.
// It defaults to "METHOD path".
func (e *Endpoint[Req, Res]) WithName(name string) *Endpoint[Req, Res] {
	e.cfg.name = name
	return e
}

// WithHeader adds a static header sent with every call. Call-time header
// bindings with the same key win over static headers.
func (e *Endpoint[Req, Res]) WithHeader(key, value string) *Endpoint[Req, Res] {
	if e.cfg.headers == nil {
		e.cfg.headers = make(map[string]string)
	}
	e.cfg.headers[key] = value
	return e
}

// WithHeaders adds several static headers at once.
func (e *Endpoint[Req, Res]) WithHeaders(headers map[string]string) *Endpoint[Req, Res] {
	for k, v := range headers {
		e.WithHeader(k, v)
	}
	return e
}

// WithRaiseForStatus overrides the raise policy. true forces a StatusError on
// non-2xx even for raw-response results; false disables it even for typed
// results, leaving conversion to run against whatever body came back.
func (e *Endpoint[Req, Res]) WithRaiseForStatus(raise bool) *Endpoint[Req, Res] {
	e.cfg.raise = &raise
	return e
}

// WithTimeout bounds each call of this endpoint with a per-call deadline.
func (e *Endpoint[Req, Res]) WithTimeout(d time.Duration) *Endpoint[Req, Res] {
	e.timeout = d
	return e
}

// WithDefaultFunc registers a default factory for the named request field.
// The factory runs on every call where the field is absent and takes
// precedence over the field's `default` tag, so mutable or computed defaults
// never alias between calls.
func (e *Endpoint[Req, Res]) WithDefaultFunc(field string, fn func() any) *Endpoint[Req, Res] {
	if e.cfg.factories == nil {
		e.cfg.factories = make(map[string]func() any)
	}
	e.cfg.factories[field] = fn
	return e
}

// Do performs the call synchronously: bind arguments, build the request,
// dispatch through the client's transport and resolve the response.
func (e *Endpoint[Req, Res]) Do(ctx context.Context, c *Client, req Req) (Res, error) {
	var zero Res
	p, err := e.plan()
	if err != nil {
		return zero, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	httpReq, err := p.buildRequest(ctx, c, reflect.ValueOf(req))
	if err != nil {
		return zero, err
	}
	resp, err := c.send(ctx, httpReq, false)
	if err != nil {
		return zero, err
	}
	return resolveResponse[Res](p, c, resp)
}

// Result carries the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// Go performs the call asynchronously and returns a channel that yields
// exactly one Result and is then closed. Binding and request building run
// synchronously before Go returns, exactly as in Do; only the transport
// round-trip and response resolution run in the background. When the client
// carries a dedicated async transport, Go dispatches through it.
func (e *Endpoint[Req, Res]) Go(ctx context.Context, c *Client, req Req) <-chan Result[Res] {
	out := make(chan Result[Res], 1)
	fail := func(err error) <-chan Result[Res] {
		out <- Result[Res]{Err: err}
		close(out)
		return out
	}

	p, err := e.plan()
	if err != nil {
		return fail(err)
	}
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	httpReq, err := p.buildRequest(ctx, c, reflect.ValueOf(req))
	if err != nil {
		cancel()
		return fail(err)
	}

	go func() {
		defer close(out)
		defer cancel()
		resp, err := c.send(ctx, httpReq, true)
		if err != nil {
			out <- Result[Res]{Err: err}
			return
		}
		res, err := resolveResponse[Res](p, c, resp)
		out <- Result[Res]{Value: res, Err: err}
	}()
	return out
}
