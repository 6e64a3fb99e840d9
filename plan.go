package rapid

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"

	"github.com/essembeh/rapid-api-client/internal/tags"
)

// responseKind classifies what an endpoint's result type expects from the
// raw response.
type responseKind int

const (
	kindRawResponse responseKind = iota // *http.Response, returned untouched
	kindText                            // string
	kindBytes                           // []byte
	kindJSONModel                       // struct parsed from JSON
	kindXMLModel                        // struct parsed from XML (embeds XML)
	kindAdapted                         // any other type, parsed from JSON
)

func (k responseKind) String() string {
	switch k {
	case kindRawResponse:
		return "raw response"
	case kindText:
		return "text"
	case kindBytes:
		return "bytes"
	case kindJSONModel:
		return "json model"
	case kindXMLModel:
		return "xml model"
	default:
		return "adapted"
	}
}

// binding describes how one request struct field is written into a request.
// Bindings are immutable once the plan is computed.
type binding struct {
	field   int    // index into the request struct
	name    string // Go field name
	key     string // wire key: alias or snake_case field name
	kind    tags.Kind
	typ     reflect.Type
	defval  reflect.Value // parsed `default` tag, invalid Value when unset
	factory func() any    // default factory, takes precedence over defval
}

// value resolves the call-time value of the binding. The second result is
// false when the field is absent (nil pointer/map/slice/interface) and no
// default applies. Non-nilable fields are always present.
func (b *binding) value(req reflect.Value) (reflect.Value, bool) {
	v := req.Field(b.field)
	if !isAbsent(v) {
		return v, true
	}
	// Resolution order: factory, then the default tag, then absent. A factory
	// returning nil falls through rather than forcing absence.
	if b.factory != nil {
		if out := b.factory(); out != nil {
			fv := reflect.ValueOf(out)
			if fv.Type().ConvertibleTo(b.typ) {
				return fv.Convert(b.typ), true
			}
			return fv, true
		}
	}
	if b.defval.IsValid() {
		return b.defval, true
	}
	return v, false
}

func isAbsent(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// plan is the cached per-endpoint derivation of how to build a request and
// interpret its response. It is computed once, read-only afterwards, and
// safely shared across concurrent calls.
type plan struct {
	method   string
	path     string
	name     string
	tokens   []string // path template tokens, in template order
	bindings []binding

	// Index slices into bindings, preserving declared field order.
	pathIdx   []int
	queryIdx  []int
	headerIdx []int
	bodyIdx   []int

	bodyKind tags.Kind // KindNone when the request has no body
	respKind responseKind
	raise    *bool // raise-on-error override, nil means kind-dependent default
	headers  map[string]string
}

// endpointConfig carries the declaration-time knobs an Endpoint feeds into
// analysis.
type endpointConfig struct {
	method    string
	path      string
	name      string
	headers   map[string]string
	raise     *bool
	factories map[string]func() any
}

var pathTokenRE = regexp.MustCompile(`\{([^{}]+)\}`)

var (
	httpResponseType = reflect.TypeOf((*http.Response)(nil))
	readerType       = reflect.TypeOf((*io.Reader)(nil)).Elem()
	xmlFlavorType    = reflect.TypeOf((*xmlFlavored)(nil)).Elem()
	fileType         = reflect.TypeOf(File{})
)

// analyze inspects the request and result types and produces the binding
// plan. It is deterministic for a given declaration and has no side effects.
func analyze(cfg endpointConfig, reqType, resType reflect.Type) (*plan, error) {
	name := cfg.name
	if name == "" {
		name = cfg.method + " " + cfg.path
	}
	declErr := func(field, format string, args ...any) error {
		return &DeclarationError{Endpoint: name, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if reqType.Kind() != reflect.Struct {
		return nil, declErr("", "request type must be a struct, got %s", reqType)
	}

	p := &plan{
		method:   cfg.method,
		path:     cfg.path,
		name:     name,
		raise:    cfg.raise,
		headers:  cfg.headers,
		respKind: responseKindOf(resType),
	}
	for _, m := range pathTokenRE.FindAllStringSubmatch(cfg.path, -1) {
		p.tokens = append(p.tokens, m[1])
	}

	seen := map[tags.Kind]map[string]bool{}
	fieldNames := map[string]bool{}
	for i := 0; i < reqType.NumField(); i++ {
		f := reqType.Field(i)
		raw := f.Tag.Get("api")
		if tags.Ignored(raw) {
			continue
		}
		spec, ok, err := tags.Parse(raw)
		if err != nil {
			return nil, declErr(f.Name, "%v", err)
		}
		if !ok {
			if f.IsExported() && !f.Anonymous {
				return nil, declErr(f.Name, "exported field has no placement tag, use api:\"-\" to ignore it")
			}
			continue
		}
		if !f.IsExported() {
			return nil, declErr(f.Name, "placement tag on unexported field")
		}

		key := spec.Alias
		if key == "" {
			key = tags.SnakeCase(f.Name)
		}
		if seen[spec.Kind] == nil {
			seen[spec.Kind] = map[string]bool{}
		}
		if seen[spec.Kind][key] {
			return nil, declErr(f.Name, "duplicate %s key %q", spec.Kind, key)
		}
		seen[spec.Kind][key] = true

		fieldNames[f.Name] = true
		b := binding{field: i, name: f.Name, key: key, kind: spec.Kind, typ: f.Type}
		if lit, has := f.Tag.Lookup("default"); has {
			if !nilable(f.Type) {
				return nil, declErr(f.Name, "default on a field that is always present, use a pointer type")
			}
			b.defval, err = parseDefault(lit, f.Type)
			if err != nil {
				return nil, declErr(f.Name, "bad default %q: %v", lit, err)
			}
		}
		if cfg.factories != nil {
			b.factory = cfg.factories[f.Name]
			if b.factory != nil && !nilable(f.Type) {
				return nil, declErr(f.Name, "default factory on a field that is always present, use a pointer type")
			}
		}

		idx := len(p.bindings)
		switch spec.Kind {
		case tags.KindPath:
			p.pathIdx = append(p.pathIdx, idx)
		case tags.KindQuery:
			p.queryIdx = append(p.queryIdx, idx)
		case tags.KindHeader:
			p.headerIdx = append(p.headerIdx, idx)
		default:
			if err := checkBodyType(spec.Kind, f.Type); err != nil {
				return nil, declErr(f.Name, "%v", err)
			}
			if p.bodyKind == tags.KindNone {
				p.bodyKind = spec.Kind
			} else if p.bodyKind != spec.Kind {
				return nil, declErr(f.Name, "body kind %s conflicts with %s declared earlier", spec.Kind, p.bodyKind)
			} else if !spec.Kind.Multi() {
				return nil, declErr(f.Name, "only one %s parameter allowed", spec.Kind)
			}
			p.bodyIdx = append(p.bodyIdx, idx)
		}
		p.bindings = append(p.bindings, b)
	}

	// A factory key that matches no bound field is a typo, not a no-op.
	for fname := range cfg.factories {
		if !fieldNames[fname] {
			return nil, declErr(fname, "default factory matches no bound field")
		}
	}

	// Cross-check path bindings against the template tokens.
	tokens := map[string]bool{}
	for _, tok := range p.tokens {
		tokens[tok] = true
	}
	bound := map[string]bool{}
	for _, i := range p.pathIdx {
		b := &p.bindings[i]
		if !tokens[b.key] {
			return nil, declErr(b.name, "path parameter %q has no {%s} token in %q", b.key, b.key, cfg.path)
		}
		bound[b.key] = true
	}
	for _, tok := range p.tokens {
		if !bound[tok] {
			return nil, declErr("", "path token {%s} has no bound parameter", tok)
		}
	}

	return p, nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

// responseKindOf maps a declared result type to its conversion strategy.
func responseKindOf(t reflect.Type) responseKind {
	if t == httpResponseType {
		return kindRawResponse
	}
	switch t.Kind() {
	case reflect.String:
		return kindText
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return kindBytes
		}
	}
	s := t
	if s.Kind() == reflect.Pointer {
		s = s.Elem()
	}
	if s.Kind() == reflect.Struct {
		if s.Implements(xmlFlavorType) || reflect.PointerTo(s).Implements(xmlFlavorType) {
			return kindXMLModel
		}
		return kindJSONModel
	}
	return kindAdapted
}

// checkBodyType rejects field types the body kind's serialization strategy
// cannot handle. The request builder still re-checks dynamic values hiding
// behind interface types.
func checkBodyType(kind tags.Kind, t reflect.Type) error {
	elem := t
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	isAny := t.Kind() == reflect.Interface && t.NumMethod() == 0
	switch kind {
	case tags.KindBodyRaw:
		if !isAny && !byteLike(t) && !t.Implements(readerType) {
			return fmt.Errorf("body requires string, []byte or io.Reader, got %s", t)
		}
	case tags.KindBodyFile:
		if !isAny && !byteLike(t) && !t.Implements(readerType) && elem != fileType {
			return fmt.Errorf("file requires string, []byte, io.Reader or rapid.File, got %s", t)
		}
	case tags.KindBodyXML:
		if !isAny && elem.Kind() != reflect.Struct {
			return fmt.Errorf("xml requires a struct, got %s", t)
		}
	case tags.KindBodyJSON:
		if elem.Kind() == reflect.Chan || elem.Kind() == reflect.Func {
			return fmt.Errorf("json cannot serialize %s", t)
		}
	case tags.KindBodyForm:
		switch {
		case isAny, byteLike(t):
		case elem.Kind() == reflect.Struct, elem.Kind() == reflect.Map:
		case scalar(elem):
		default:
			return fmt.Errorf("form requires a scalar, map or struct, got %s", t)
		}
	}
	return nil
}

func byteLike(t reflect.Type) bool {
	if t.Kind() == reflect.String {
		return true
	}
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func scalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// parseDefault parses a `default` tag literal against the field type at
// analysis time, so malformed defaults surface as declaration errors rather
// than per-call failures.
func parseDefault(lit string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		ev, err := parseDefault(lit, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		return p, nil
	}
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(lit)
	case reflect.Bool:
		b, err := strconv.ParseBool(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(lit, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(lit, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(lit, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("defaults are not supported for %s", t)
	}
	return v, nil
}
