package transfer

import (
	"bytes"
	"mime/multipart"

	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
)

type mimePart struct {
	name string
	data []byte
}

// Mime is a multipart/form-data body made of inline named parts.
type Mime struct {
	parts []mimePart
	freed bool
}

var _ ports.MimeForm = (*Mime)(nil)

// AddPart appends a part. The data is copied.
func (m *Mime) AddPart(name string, data []byte) error {
	if m.freed {
		return newErrorf(BadFunctionArgument, "mime form was freed")
	}
	m.parts = append(m.parts, mimePart{name: name, data: append([]byte(nil), data...)})
	return nil
}

// Len returns the number of parts.
func (m *Mime) Len() int {
	return len(m.parts)
}

// Free drops every part. A freed form rejects new parts.
func (m *Mime) Free() {
	m.parts = nil
	m.freed = true
}

// encode renders the form and returns the body with its Content-Type.
func (m *Mime) encode() ([]byte, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range m.parts {
		fw, err := w.CreateFormField(p.name)
		if err != nil {
			return nil, "", newError(OutOfMemory, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return nil, "", newError(OutOfMemory, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", newError(OutOfMemory, err)
	}
	return body.Bytes(), w.FormDataContentType(), nil
}
