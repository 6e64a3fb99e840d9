// Package tags parses the `api` struct tag that declares where a request
// field is written into an outgoing HTTP request.
//
// Grammar: `api:"<kind>[=alias]"` where kind is one of path, query, header,
// body, json, xml, form, file. The alias overrides the wire key; without it
// the key is the snake_case form of the Go field name.
package tags

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind is the placement of a request field.
type Kind int

const (
	// KindNone marks a field that carries no placement; analysis rejects
	// exported fields without a placement.
	KindNone Kind = iota
	KindPath
	KindQuery
	KindHeader
	KindBodyRaw
	KindBodyJSON
	KindBodyXML
	KindBodyForm
	KindBodyFile
)

var kindNames = map[string]Kind{
	"path":   KindPath,
	"query":  KindQuery,
	"header": KindHeader,
	"body":   KindBodyRaw,
	"json":   KindBodyJSON,
	"xml":    KindBodyXML,
	"form":   KindBodyForm,
	"file":   KindBodyFile,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "none"
}

// IsBody reports whether the kind writes into the request body.
func (k Kind) IsBody() bool {
	switch k {
	case KindBodyRaw, KindBodyJSON, KindBodyXML, KindBodyForm, KindBodyFile:
		return true
	}
	return false
}

// Multi reports whether several fields of this kind may share one body.
func (k Kind) Multi() bool {
	return k == KindBodyForm || k == KindBodyFile
}

// Spec is the parsed form of one `api` tag.
type Spec struct {
	Kind  Kind
	Alias string
}

// Ignored reports whether the tag is the explicit ignore marker "-".
// An ignored field carries no placement and is skipped entirely.
func Ignored(tag string) bool {
	return strings.TrimSpace(tag) == "-"
}

// Parse parses the raw value of an `api` tag. It returns ok=false for an
// empty tag or the ignore marker "-"; check Ignored first to tell the two
// apart.
func Parse(tag string) (Spec, bool, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "-" {
		return Spec{}, false, nil
	}
	name, alias, hasAlias := strings.Cut(tag, "=")
	kind, known := kindNames[strings.TrimSpace(name)]
	if !known {
		return Spec{}, false, fmt.Errorf("unknown placement %q", name)
	}
	spec := Spec{Kind: kind}
	if hasAlias {
		spec.Alias = strings.TrimSpace(alias)
		if spec.Alias == "" {
			return Spec{}, false, fmt.Errorf("empty alias in tag %q", tag)
		}
	}
	return spec, true, nil
}

// SnakeCase converts a Go field name to its default wire key, e.g.
// "UserID" -> "user_id", "PerPage" -> "per_page".
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Start a new word at a lower->upper boundary, or at the end of
			// an acronym run ("APIKey" -> "api_key").
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
