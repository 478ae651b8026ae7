package request

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

type formField struct {
	name     string
	value    string
	filename string
	data     []byte
	file     bool
}

// Form is a multipart body that can be encoded any number of times, so a
// request can be re-sent after a session refresh.
type Form struct {
	fields []formField
}

func NewForm() *Form { return &Form{} }

func (f *Form) Field(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

func (f *Form) File(name, filename string, data []byte) *Form {
	f.fields = append(f.fields, formField{name: name, filename: filename, data: append([]byte(nil), data...), file: true})
	return f
}

func (f *Form) Has(name string) bool {
	if f == nil {
		return false
	}
	for _, fld := range f.fields {
		if fld.name == name {
			return true
		}
	}
	return false
}

// Encode returns the body and its Content-Type header value.
func (f *Form) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.fields {
		if !fld.file {
			if err := w.WriteField(fld.name, fld.value); err != nil {
				return nil, "", fmt.Errorf("encode form field %s: %w", fld.name, err)
			}
			continue
		}
		part, err := w.CreateFormFile(fld.name, fld.filename)
		if err != nil {
			return nil, "", fmt.Errorf("encode form file %s: %w", fld.name, err)
		}
		if _, err := part.Write(fld.data); err != nil {
			return nil, "", fmt.Errorf("encode form file %s: %w", fld.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
