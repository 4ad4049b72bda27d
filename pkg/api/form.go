package api

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Form accumulates fields and files for a multipart request body.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	name     string
	filename string
	content  io.Reader
}

// NewForm creates an empty multipart form.
func NewForm() *Form { return &Form{} }

// Field adds a plain text field.
func (f *Form) Field(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// File adds a file part read from content.
func (f *Form) File(name, filename string, content io.Reader) *Form {
	f.files = append(f.files, formFile{name: name, filename: filename, content: content})
	return f
}

// encode renders the form to a body and its boundary-bearing content type.
func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.name, file.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
