package session

import (
	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
)

// Part is one form-data field.
type Part struct {
	Name string
	Data []byte
}

// MultipartForm collects form-data parts until the next perform.
// Populated only goes from false to true; a fresh form starts unpopulated.
type MultipartForm struct {
	parts     []Part
	populated bool
}

// AddPart appends a part with a copy of data and marks the form populated.
func (f *MultipartForm) AddPart(name string, data []byte) {
	f.parts = append(f.parts, Part{Name: name, Data: append([]byte(nil), data...)})
	f.populated = true
}

// Populated reports whether any part was added since the form was created.
func (f *MultipartForm) Populated() bool {
	return f.populated
}

// Parts returns the parts in insertion order.
func (f *MultipartForm) Parts() []Part {
	return f.parts
}

// Build creates an engine mime object holding the parts in insertion order.
func (f *MultipartForm) Build(h ports.EasyHandle) (ports.MimeForm, error) {
	mime := h.NewMime()
	for _, p := range f.parts {
		if err := mime.AddPart(p.Name, p.Data); err != nil {
			mime.Free()
			return nil, err
		}
	}
	return mime, nil
}
