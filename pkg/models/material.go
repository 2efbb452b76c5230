package models

import "encoding/json"

const (
	MaterialBook      = "book"
	MaterialPolycopie = "polycopie"
	MaterialPDF       = "pdf"
	MaterialHandout   = "handout"
)

type Material struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	MaterialType string    `json:"material_type"`
	PriceDZD     float64   `json:"price_dzd"`
	StudyYear    string    `json:"study_year,omitempty"`
	Specialite   string    `json:"specialite,omitempty"`
	Module       string    `json:"module,omitempty"`
	ImageURLs    []string  `json:"image_urls"`
	PDFURL       string    `json:"pdf_url,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
}

func (m *Material) UnmarshalJSON(data []byte) error {
	type alias Material
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = aux.LegacyID
	}
	if m.ImageURLs == nil {
		m.ImageURLs = []string{}
	}
	return nil
}

// MaterialInput carries the scalar fields of a material creation form.
type MaterialInput struct {
	Title        string  `validate:"required,max=200"`
	Description  string  `validate:"required"`
	MaterialType string  `validate:"required,oneof=book polycopie pdf handout"`
	PriceDZD     float64 `validate:"gte=0"`
	StudyYear    string  `validate:"required"`
	Specialite   string  `validate:"required"`
	Module       string
}

// MaterialPatch holds the fields of a partial edit; nil fields are left untouched.
type MaterialPatch struct {
	Title        *string `validate:"omitempty,min=1,max=200"`
	Description  *string
	MaterialType *string  `validate:"omitempty,oneof=book polycopie pdf handout"`
	PriceDZD     *float64 `validate:"omitempty,gte=0"`
	StudyYear    *string
	Specialite   *string
	Module       *string
}

// Upload is one file attached to a multipart submission.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type CreateMaterial struct {
	Input  MaterialInput
	File   Upload
	Images []Upload
}

// EditMaterial describes a material update. ExistingImageURLs lists the
// images to keep; NewImages are appended by the backend.
type EditMaterial struct {
	ID                string `validate:"required"`
	Patch             MaterialPatch
	ExistingImageURLs []string
	NewImages         []Upload
	NewFile           *Upload
	RemovePDF         bool
}

// Download is a raw file served by the materials endpoints.
type Download struct {
	ContentType string
	Data        []byte
}
