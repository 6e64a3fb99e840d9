package rapid

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gorilla/schema"
	"github.com/samber/lo"

	"github.com/essembeh/rapid-api-client/internal/tags"
)

// schemaEncoder flattens struct-valued query and form fields into url.Values.
// Fields follow gorilla/schema conventions (`schema:"name"` tags).
var schemaEncoder = schema.NewEncoder()

// buildRequest turns the plan plus one call's argument struct into a concrete
// *http.Request. The request is call-scoped; nothing in it is shared with
// other invocations.
func (p *plan) buildRequest(ctx context.Context, c *Client, req reflect.Value) (*http.Request, error) {
	if err := c.validatorInstance().Struct(req.Interface()); err != nil {
		return nil, &SerializationError{Err: errors.New(validationMessage(err))}
	}

	path := p.path
	for _, idx := range p.pathIdx {
		b := &p.bindings[idx]
		v, present := b.value(req)
		if !present {
			return nil, &MissingPathParameterError{Token: b.key}
		}
		path = strings.ReplaceAll(path, "{"+b.key+"}", url.PathEscape(stringify(v)))
	}

	query, err := p.buildQuery(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := p.buildBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, p.method, joinURL(c.baseURL, path), body)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		httpReq.URL.RawQuery = strings.Join(query, "&")
	}

	// Header precedence, lowest to highest: client defaults, endpoint static
	// headers, the body's content type, call-time header bindings.
	for k, v := range lo.Assign(c.headers, p.headers) {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set(headerContentType, contentType)
	}
	for _, idx := range p.headerIdx {
		b := &p.bindings[idx]
		if v, present := b.value(req); present {
			httpReq.Header.Set(b.key, stringify(v))
		}
	}
	return httpReq, nil
}

// buildQuery assembles the escaped key=value pairs in declared field order.
// url.Values.Encode is avoided on the top level because it sorts keys.
func (p *plan) buildQuery(req reflect.Value) ([]string, error) {
	var pairs []string
	for _, idx := range p.queryIdx {
		b := &p.bindings[idx]
		v, present := b.value(req)
		if !present {
			continue
		}
		v = deref(v)
		switch {
		case v.Kind() == reflect.Struct && !isStringer(v):
			vals := url.Values{}
			if err := schemaEncoder.Encode(v.Interface(), vals); err != nil {
				return nil, &SerializationError{Field: b.name, Err: err}
			}
			pairs = appendValues(pairs, vals)
		case v.Kind() == reflect.Map:
			pairs = appendMap(pairs, v)
		case v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8:
			for i := 0; i < v.Len(); i++ {
				pairs = appendPair(pairs, b.key, stringify(v.Index(i)))
			}
		default:
			pairs = appendPair(pairs, b.key, stringify(v))
		}
	}
	return pairs, nil
}

// buildBody serializes the body bindings using the strategy selected by the
// declared body kind. It never sniffs the runtime value to pick a strategy.
func (p *plan) buildBody(req reflect.Value) (io.Reader, string, error) {
	if p.bodyKind == tags.KindNone {
		return nil, "", nil
	}
	for _, idx := range p.bodyIdx {
		if p.bindings[idx].kind != p.bodyKind {
			return nil, "", &BodyConflictError{
				Reason: fmt.Sprintf("%s and %s on the same request", p.bindings[idx].kind, p.bodyKind),
			}
		}
	}

	switch p.bodyKind {
	case tags.KindBodyRaw:
		b := &p.bindings[p.bodyIdx[0]]
		v, present := b.value(req)
		if !present {
			return nil, "", nil
		}
		switch val := deref(v).Interface().(type) {
		case string:
			return strings.NewReader(val), "", nil
		case []byte:
			return bytes.NewReader(val), "", nil
		case io.Reader:
			return val, "", nil
		default:
			return nil, "", &SerializationError{Field: b.name, Err: fmt.Errorf("unsupported raw body type %T", val)}
		}

	case tags.KindBodyJSON:
		b := &p.bindings[p.bodyIdx[0]]
		v, present := b.value(req)
		if !present {
			return nil, "", nil
		}
		data, err := jsonCodec.Marshal(v.Interface())
		if err != nil {
			return nil, "", &SerializationError{Field: b.name, Err: err}
		}
		return bytes.NewReader(data), contentTypeJSON, nil

	case tags.KindBodyXML:
		b := &p.bindings[p.bodyIdx[0]]
		v, present := b.value(req)
		if !present {
			return nil, "", nil
		}
		data, err := xml.Marshal(v.Interface())
		if err != nil {
			return nil, "", &SerializationError{Field: b.name, Err: err}
		}
		return bytes.NewReader(data), contentTypeXML, nil

	case tags.KindBodyForm:
		pairs, err := p.buildForm(req)
		if err != nil || len(pairs) == 0 {
			return nil, "", err
		}
		return strings.NewReader(strings.Join(pairs, "&")), contentTypeForm, nil

	case tags.KindBodyFile:
		return p.buildMultipart(req)
	}
	return nil, "", nil
}

// buildForm merges all form bindings into one URL-encoded body. Maps and
// schema-encoded structs contribute their entries; scalars contribute a
// single alias-or-name keyed value.
func (p *plan) buildForm(req reflect.Value) ([]string, error) {
	var pairs []string
	for _, idx := range p.bodyIdx {
		b := &p.bindings[idx]
		v, present := b.value(req)
		if !present {
			continue
		}
		v = deref(v)
		switch {
		case v.Kind() == reflect.Map:
			pairs = appendMap(pairs, v)
		case v.Kind() == reflect.Struct && !isStringer(v):
			vals := url.Values{}
			if err := schemaEncoder.Encode(v.Interface(), vals); err != nil {
				return nil, &SerializationError{Field: b.name, Err: err}
			}
			pairs = appendValues(pairs, vals)
		default:
			pairs = appendPair(pairs, b.key, stringify(v))
		}
	}
	return pairs, nil
}

func appendPair(pairs []string, key, val string) []string {
	return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(val))
}

// appendValues flattens url.Values with sorted keys for determinism.
func appendValues(pairs []string, vals url.Values) []string {
	keys := lo.Keys(vals)
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range vals[k] {
			pairs = appendPair(pairs, k, v)
		}
	}
	return pairs
}

func appendMap(pairs []string, v reflect.Value) []string {
	keys := make([]string, 0, v.Len())
	byKey := make(map[string]reflect.Value, v.Len())
	for _, k := range v.MapKeys() {
		ks := stringify(k)
		keys = append(keys, ks)
		byKey[ks] = v.MapIndex(k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = appendPair(pairs, k, stringify(byKey[k]))
	}
	return pairs
}

// stringify converts a bound value to its wire form: fmt.Stringer wins,
// everything else goes through the default %v formatting. Stringification
// happens before any URL escaping.
func stringify(v reflect.Value) string {
	v = deref(v)
	if !v.IsValid() {
		return ""
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func isStringer(v reflect.Value) bool {
	_, ok := v.Interface().(fmt.Stringer)
	return ok
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
