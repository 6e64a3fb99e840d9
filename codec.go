package rapid

import jsoniter "github.com/json-iterator/go"

// jsonCodec is the JSON flavor of the serialization collaborator. The
// stdlib-compatible config keeps struct tag semantics identical to
// encoding/json while being considerably faster on large payloads.
var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	contentTypeJSON = "application/json"
	contentTypeXML  = "application/xml"
	contentTypeForm = "application/x-www-form-urlencoded"

	headerContentType = "Content-Type"
)
