package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"blogclient/internal/app/media"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Form is a multipart/form-data body under construction.
type Form struct {
	fields []formField
	files  []*media.File
}

type formField struct {
	name  string
	value string
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// Set adds a text field. Empty values are skipped.
func (f *Form) Set(name, value string) *Form {
	if value != "" {
		f.fields = append(f.fields, formField{name: name, value: value})
	}
	return f
}

// SetJSON adds a field holding the JSON encoding of v. Nil values are skipped.
func (f *Form) SetJSON(name string, v any) error {
	if v == nil {
		return nil
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode form field %s: %w", name, err)
	}

	f.fields = append(f.fields, formField{name: name, value: string(encoded)})
	return nil
}

// AddFile attaches file under its field name.
func (f *Form) AddFile(file *media.File) *Form {
	if file != nil {
		f.files = append(f.files, file)
	}
	return f
}

// Encode renders the form and returns the body and its Content-Type.
func (f *Form) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field.name, err)
		}
	}

	for _, file := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.FieldName()), quoteEscaper.Replace(file.Name)))
		h.Set("Content-Type", file.MimeType())

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %s: %w", file.Name, err)
		}

		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write form file %s: %w", file.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
