package rapid

import "net/http"

// Model is an embeddable base for result structs that need access to the raw
// HTTP response alongside the parsed data. After a successful parse the
// resolver attaches the *http.Response; read it with HTTPResponse.
//
// The reference is non-owning: the response body has already been read and
// closed by the time the model is populated.
//
//	type User struct {
//	    rapid.Model
//	    ID   int    `json:"id"`
//	    Name string `json:"name"`
//	}
//
//	user, err := getUser.Do(ctx, client, params)
//	status := user.HTTPResponse().StatusCode
type Model struct {
	response *http.Response
}

func (m *Model) attachResponse(r *http.Response) { m.response = r }

// HTTPResponse returns the response this model was parsed from, or nil when
// the model was not produced by an endpoint call.
func (m *Model) HTTPResponse() *http.Response { return m.response }

// responseCarrier is satisfied by any struct embedding Model.
type responseCarrier interface {
	attachResponse(*http.Response)
}

// XML is an embeddable marker that switches a model to the XML flavor: a
// result struct embedding XML is parsed with encoding/xml instead of JSON,
// and an `api:"xml"` body field carrying it is serialized the same way.
//
//	type Feed struct {
//	    rapid.XML
//	    XMLName xml.Name `xml:"feed"`
//	    Title   string   `xml:"title"`
//	}
type XML struct{}

func (XML) xmlFlavor() {}

// xmlFlavored is satisfied by any struct embedding XML.
type xmlFlavored interface {
	xmlFlavor()
}
