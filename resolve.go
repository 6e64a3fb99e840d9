package rapid

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// resolveResponse converts a completed raw response into the endpoint's
// declared result type, applying the raise policy first.
//
// Raise policy: a raw-response result never raises unless the endpoint forced
// it with WithRaiseForStatus(true); every other kind raises on non-2xx unless
// the endpoint disabled it, in which case conversion is attempted against
// whatever body came back.
func resolveResponse[Res any](p *plan, c *Client, resp *http.Response) (Res, error) {
	var zero Res

	if p.respKind == kindRawResponse {
		if p.raise != nil && *p.raise && !successful(resp) {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(body))
			return zero, &StatusError{Response: resp, Body: body}
		}
		// Body intentionally left unread; the caller owns the response.
		return any(resp).(Res), nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return zero, err
	}
	if (p.raise == nil || *p.raise) && !successful(resp) {
		return zero, &StatusError{Response: resp, Body: body}
	}

	rt := reflect.TypeOf((*Res)(nil)).Elem()
	switch p.respKind {
	case kindText:
		return reflect.ValueOf(string(body)).Convert(rt).Interface().(Res), nil
	case kindBytes:
		return reflect.ValueOf(body).Convert(rt).Interface().(Res), nil
	case kindJSONModel:
		return decodeModel[Res](p, c, resp, body, jsonCodec.Unmarshal)
	case kindXMLModel:
		return decodeModel[Res](p, c, resp, body, xml.Unmarshal)
	default: // kindAdapted
		var out Res
		if err := jsonCodec.Unmarshal(body, &out); err != nil {
			return zero, &ResponseParseError{Kind: p.respKind.String(), Err: err}
		}
		return out, nil
	}
}

// decodeModel parses a struct result, runs it through the validator, and
// attaches the raw response when the model embeds Model.
func decodeModel[Res any](p *plan, c *Client, resp *http.Response, body []byte, unmarshal func([]byte, any) error) (Res, error) {
	var zero Res
	rt := reflect.TypeOf((*Res)(nil)).Elem()

	var target reflect.Value // always a pointer to the struct
	if rt.Kind() == reflect.Pointer {
		target = reflect.New(rt.Elem())
	} else {
		target = reflect.New(rt)
	}
	if err := unmarshal(body, target.Interface()); err != nil {
		return zero, &ResponseParseError{Kind: p.respKind.String(), Err: err}
	}
	if err := c.validatorInstance().Struct(target.Interface()); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			return zero, &ResponseParseError{Kind: p.respKind.String(), Err: err}
		}
	}
	if carrier, ok := target.Interface().(responseCarrier); ok {
		carrier.attachResponse(resp)
	}
	if rt.Kind() == reflect.Pointer {
		return target.Interface().(Res), nil
	}
	return target.Elem().Interface().(Res), nil
}

func successful(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
