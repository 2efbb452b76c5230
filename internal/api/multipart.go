package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/lectio/admin-console/pkg/models"
)

// form wraps a multipart writer and remembers the first write error.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) optional(name string, value *string) {
	if value != nil {
		f.field(name, *value)
	}
}

func (f *form) file(name string, up models.Upload) {
	if f.err != nil {
		return
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, up.Filename))
	h.Set("Content-Type", contentType)

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(up.Data)
}

func (f *form) close() (*bytes.Buffer, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("failed to encode form: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &f.buf, f.w.FormDataContentType(), nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// EncodeCreateForm builds the multipart body for a new material.
func EncodeCreateForm(m models.CreateMaterial) (*bytes.Buffer, string, error) {
	f := newForm()
	f.field("title", m.Input.Title)
	f.field("description", m.Input.Description)
	f.field("material_type", m.Input.MaterialType)
	f.field("price_dzd", formatPrice(m.Input.PriceDZD))
	f.field("study_year", m.Input.StudyYear)
	f.field("specialite", m.Input.Specialite)
	if m.Input.Module != "" {
		f.field("module", m.Input.Module)
	}
	f.file("file", m.File)
	for _, img := range m.Images {
		f.file("images", img)
	}
	return f.close()
}

// EncodeEditForm builds the multipart body for a material update. Only
// fields present in the patch are sent. Every kept image URL is repeated
// under existing_image_urls so the backend can drop the others.
func EncodeEditForm(e models.EditMaterial) (*bytes.Buffer, string, error) {
	f := newForm()
	p := e.Patch
	f.optional("title", p.Title)
	f.optional("description", p.Description)
	f.optional("material_type", p.MaterialType)
	if p.PriceDZD != nil {
		f.field("price_dzd", formatPrice(*p.PriceDZD))
	}
	// The update route reads the study year under a different name.
	f.optional("year_study", p.StudyYear)
	f.optional("specialite", p.Specialite)
	f.optional("module", p.Module)

	for _, u := range e.ExistingImageURLs {
		f.field("existing_image_urls", u)
	}
	for _, img := range e.NewImages {
		f.file("images", img)
	}
	if e.NewFile != nil {
		f.file("file", *e.NewFile)
	}
	f.field("remove_pdf", strconv.FormatBool(e.RemovePDF))
	return f.close()
}
