package rapid

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"reflect"

	"github.com/gabriel-vasile/mimetype"
)

// File is an explicit multipart part for `api:"file"` fields, used when the
// filename or content type matters. Plain string, []byte and io.Reader fields
// work too; their part is named after the field's alias-or-name and the
// content type is sniffed from the content.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

// buildMultipart merges all file bindings into a single multipart/form-data
// body, one part per bound field. Absent fields contribute no part; when
// every field is absent the request carries no body at all.
func (p *plan) buildMultipart(req reflect.Value) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	parts := 0
	for _, idx := range p.bodyIdx {
		b := &p.bindings[idx]
		v, present := b.value(req)
		if !present {
			continue
		}
		part := File{Filename: b.key}
		switch val := deref(v).Interface().(type) {
		case File:
			part.Content = val.Content
			part.ContentType = val.ContentType
			if val.Filename != "" {
				part.Filename = val.Filename
			}
		case string:
			part.Content = []byte(val)
		case []byte:
			part.Content = val
		case io.Reader:
			data, err := io.ReadAll(val)
			if err != nil {
				return nil, "", &SerializationError{Field: b.name, Err: err}
			}
			part.Content = data
		default:
			return nil, "", &SerializationError{Field: b.name, Err: fmt.Errorf("unsupported file type %T", val)}
		}
		if part.ContentType == "" {
			part.ContentType = mimetype.Detect(part.Content).String()
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, b.key, part.Filename))
		h.Set(headerContentType, part.ContentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", &SerializationError{Field: b.name, Err: err}
		}
		if _, err := pw.Write(part.Content); err != nil {
			return nil, "", &SerializationError{Field: b.name, Err: err}
		}
		parts++
	}
	if err := w.Close(); err != nil {
		return nil, "", &SerializationError{Err: err}
	}
	if parts == 0 {
		return nil, "", nil
	}
	return buf, w.FormDataContentType(), nil
}
