package rapid

import (
	"net/http"
	"reflect"
	"strings"
	"testing"
)

type listParams struct {
	Page  *int `api:"query" default:"1"`
	Limit *int `api:"query" default:"10"`
}

func TestPlanComputedOnce(t *testing.T) {
	e := Get[listParams, string]("/users")
	p1, err := e.plan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := e.plan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1 != p2 {
		t.Error("expected the same plan instance on repeated retrieval")
	}
}

func TestPlanErrorCached(t *testing.T) {
	e := Get[struct{ Name string }, string]("/users")
	_, err1 := e.plan()
	if err1 == nil {
		t.Fatal("expected declaration error")
	}
	_, err2 := e.plan()
	if err1 != err2 {
		t.Error("expected the same error instance on repeated retrieval")
	}
}

type jsonUser struct {
	Name string `json:"name"`
}

type xmlUser struct {
	XML
	Name string `xml:"name"`
}

func TestResponseKindOf(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want responseKind
	}{
		{reflect.TypeOf(&http.Response{}), kindRawResponse},
		{reflect.TypeOf(""), kindText},
		{reflect.TypeOf([]byte(nil)), kindBytes},
		{reflect.TypeOf(jsonUser{}), kindJSONModel},
		{reflect.TypeOf(&jsonUser{}), kindJSONModel},
		{reflect.TypeOf(xmlUser{}), kindXMLModel},
		{reflect.TypeOf(&xmlUser{}), kindXMLModel},
		{reflect.TypeOf(map[string]int{}), kindAdapted},
		{reflect.TypeOf([]int{}), kindAdapted},
	}
	for _, tt := range tests {
		if got := responseKindOf(tt.typ); got != tt.want {
			t.Errorf("responseKindOf(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestAnalyzeDeclarationErrors(t *testing.T) {
	check := func(t *testing.T, err error, wantReason string) {
		t.Helper()
		if err == nil {
			t.Fatal("expected a declaration error")
		}
		declErr, ok := err.(*DeclarationError)
		if !ok {
			t.Fatalf("expected *DeclarationError, got %T: %v", err, err)
		}
		if !strings.Contains(declErr.Reason, wantReason) {
			t.Errorf("reason %q does not contain %q", declErr.Reason, wantReason)
		}
	}

	t.Run("untagged exported field", func(t *testing.T) {
		type params struct{ Name string }
		_, err := Get[params, string]("/x").plan()
		check(t, err, "no placement tag")
	})

	t.Run("unknown placement", func(t *testing.T) {
		type params struct {
			C string `api:"cookie"`
		}
		_, err := Get[params, string]("/x").plan()
		check(t, err, "unknown placement")
	})

	t.Run("duplicate key", func(t *testing.T) {
		type params struct {
			A string `api:"query=q"`
			B string `api:"query=q"`
		}
		_, err := Get[params, string]("/x").plan()
		check(t, err, "duplicate")
	})

	t.Run("mixed body kinds", func(t *testing.T) {
		type params struct {
			A map[string]any `api:"json"`
			B string         `api:"form"`
		}
		_, err := Post[params, string]("/x").plan()
		check(t, err, "conflicts")
	})

	t.Run("two json bodies", func(t *testing.T) {
		type params struct {
			A map[string]any `api:"json"`
			B map[string]any `api:"json"`
		}
		_, err := Post[params, string]("/x").plan()
		check(t, err, "only one")
	})

	t.Run("default on non-pointer", func(t *testing.T) {
		type params struct {
			Page int `api:"query" default:"1"`
		}
		_, err := Get[params, string]("/x").plan()
		check(t, err, "always present")
	})

	t.Run("unparseable default", func(t *testing.T) {
		type params struct {
			Page *int `api:"query" default:"abc"`
		}
		_, err := Get[params, string]("/x").plan()
		check(t, err, "bad default")
	})

	t.Run("file body on incompatible type", func(t *testing.T) {
		type params struct {
			N bool `api:"file"`
		}
		_, err := Post[params, string]("/x").plan()
		check(t, err, "file requires")
	})

	t.Run("raw body on incompatible type", func(t *testing.T) {
		type params struct {
			N int `api:"body"`
		}
		_, err := Post[params, string]("/x").plan()
		check(t, err, "body requires")
	})

	t.Run("path token without binding", func(t *testing.T) {
		type params struct{}
		_, err := Get[params, string]("/users/{user_id}").plan()
		check(t, err, "no bound parameter")
	})

	t.Run("path binding without token", func(t *testing.T) {
		type params struct {
			UserID int `api:"path"`
		}
		_, err := Get[params, string]("/users").plan()
		check(t, err, "no {user_id} token")
	})

	t.Run("non-struct request type", func(t *testing.T) {
		_, err := Get[int, string]("/x").plan()
		check(t, err, "must be a struct")
	})

	t.Run("factory on unknown field", func(t *testing.T) {
		type params struct {
			Page *int `api:"query"`
		}
		_, err := Get[params, string]("/x").
			WithDefaultFunc("Pages", func() any { return 1 }).
			plan()
		check(t, err, "matches no bound field")
	})

	t.Run("tag on unexported field", func(t *testing.T) {
		type params struct {
			name string `api:"query"`
		}
		_, err := Get[params, string]("/x").plan()
		check(t, err, "unexported")
		_ = params{name: ""}
	})
}

func TestAnalyzeIgnoredField(t *testing.T) {
	type params struct {
		UserID   int    `api:"path"`
		Internal string `api:"-"`
	}
	p, err := Get[params, string]("/users/{user_id}").plan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.bindings) != 1 {
		t.Fatalf("bindings = %d, want 1", len(p.bindings))
	}
	if p.bindings[0].name != "UserID" {
		t.Errorf("bound field = %q", p.bindings[0].name)
	}
}

func TestAnalyzeOrdering(t *testing.T) {
	type params struct {
		B *string `api:"query"`
		A *string `api:"query"`
		C *string `api:"query"`
	}
	p, err := Get[params, string]("/x").plan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var keys []string
	for _, idx := range p.queryIdx {
		keys = append(keys, p.bindings[idx].key)
	}
	if got, want := strings.Join(keys, ","), "b,a,c"; got != want {
		t.Errorf("query order = %q, want declared order %q", got, want)
	}
}

func TestAnalyzeStaticConfig(t *testing.T) {
	type params struct {
		UserID int `api:"path"`
	}
	e := Get[params, jsonUser]("/users/{user_id}").
		WithName("GetUser").
		WithHeader("X-Api-Version", "2")
	p, err := e.plan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.name != "GetUser" {
		t.Errorf("name = %q", p.name)
	}
	if p.headers["X-Api-Version"] != "2" {
		t.Errorf("static headers = %v", p.headers)
	}
	if p.respKind != kindJSONModel {
		t.Errorf("response kind = %v", p.respKind)
	}
	if len(p.tokens) != 1 || p.tokens[0] != "user_id" {
		t.Errorf("tokens = %v", p.tokens)
	}
}
