package rapid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/essembeh/rapid-api-client/testutil"
)

type user struct {
	Model
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type product struct {
	XML
	SKU   string  `xml:"sku"`
	Price float64 `xml:"price"`
}

func TestResolveJSONModel(t *testing.T) {
	type params struct {
		UserID int `api:"path"`
	}
	stub := testutil.NewStub()
	stub.RespondJSON(200, map[string]any{"id": 42, "name": "Alice"})
	e := Get[params, user]("/users/{user_id}")

	u, err := e.Do(context.Background(), newTestClient(stub), params{UserID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 42 || u.Name != "Alice" {
		t.Errorf("user = %+v", u)
	}
	resp := u.HTTPResponse()
	if resp == nil {
		t.Fatal("expected response back-reference")
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestResolveJSONModelPointer(t *testing.T) {
	stub := testutil.NewStub()
	stub.RespondJSON(200, map[string]any{"id": 7, "name": "Bob"})
	e := Get[struct{}, *user]("/me")

	u, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 7 {
		t.Errorf("user = %+v", u)
	}
	if u.HTTPResponse() == nil {
		t.Error("expected response back-reference")
	}
}

func TestResolveXMLModel(t *testing.T) {
	stub := testutil.NewStub()
	stub.Respond(200, `<product><sku>ABC-1</sku><price>9.99</price></product>`)
	e := Get[struct{}, product]("/product")

	p, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SKU != "ABC-1" || p.Price != 9.99 {
		t.Errorf("product = %+v", p)
	}
}

func TestResolveText(t *testing.T) {
	stub := testutil.NewStub()
	stub.Respond(200, "pong")
	e := Get[struct{}, string]("/ping")

	s, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "pong" {
		t.Errorf("got %q", s)
	}
}

func TestResolveNamedTextType(t *testing.T) {
	type token string
	stub := testutil.NewStub()
	stub.Respond(200, "secret")
	e := Get[struct{}, token]("/token")

	got, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != token("secret") {
		t.Errorf("got %q", got)
	}
}

func TestResolveBytes(t *testing.T) {
	stub := testutil.NewStub()
	stub.Respond(200, "\x00\x01binary")
	e := Get[struct{}, []byte]("/blob")

	b, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "\x00\x01binary" {
		t.Errorf("got %q", b)
	}
}

func TestResolveAdapted(t *testing.T) {
	stub := testutil.NewStub()
	stub.RespondJSON(200, []string{"a", "b"})
	e := Get[struct{}, []string]("/list")

	got, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("got %v", got)
	}
}

func TestResolveRawResponse(t *testing.T) {
	stub := testutil.NewStub()
	stub.Respond(404, "not found")
	e := Get[struct{}, *http.Response]("/missing")

	resp, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("raw result must not raise by default, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "not found" {
		t.Errorf("body = %q", body)
	}
}

func TestResolveRawResponseForcedRaise(t *testing.T) {
	stub := testutil.NewStub()
	stub.Respond(500, "boom")
	e := Get[struct{}, *http.Response]("/unstable").WithRaiseForStatus(true)

	_, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode() != 500 {
		t.Errorf("status = %d", statusErr.StatusCode())
	}
	if string(statusErr.Body) != "boom" {
		t.Errorf("body = %q", statusErr.Body)
	}
}

func TestResolveStatusErrorCarriesBody(t *testing.T) {
	stub := testutil.NewStub()
	stub.RespondJSON(404, map[string]string{"error": "no such user"})
	e := Get[struct{}, user]("/users/999")

	_, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode() != 404 {
		t.Errorf("status = %d", statusErr.StatusCode())
	}
	if len(statusErr.Body) == 0 {
		t.Error("expected error body to be preserved")
	}
}

func TestResolveRaiseDisabledStillParses(t *testing.T) {
	stub := testutil.NewStub()
	stub.RespondJSON(404, map[string]any{"id": 0, "name": "nobody"})
	e := Get[struct{}, user]("/users/0").WithRaiseForStatus(false)

	u, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "nobody" {
		t.Errorf("user = %+v", u)
	}
}

func TestResolveParseError(t *testing.T) {
	stub := testutil.NewStub()
	stub.Respond(200, "this is not json")
	e := Get[struct{}, user]("/users/1")

	_, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	var parseErr *ResponseParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ResponseParseError, got %v", err)
	}
}

func TestResolveModelValidation(t *testing.T) {
	type strictUser struct {
		Model
		Email string `json:"email" validate:"required,email"`
	}
	stub := testutil.NewStub()
	stub.RespondJSON(200, map[string]string{"email": "nope"})
	e := Get[struct{}, strictUser]("/me")

	_, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	var parseErr *ResponseParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ResponseParseError, got %v", err)
	}
}

func TestResolveTransportErrorUnwrapped(t *testing.T) {
	stub := testutil.NewStub()
	sentinel := errors.New("connection refused")
	stub.RespondError(sentinel)
	e := Get[struct{}, string]("/down")

	_, err := e.Do(context.Background(), newTestClient(stub), struct{}{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("transport error must pass through, got %v", err)
	}
}
