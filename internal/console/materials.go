package console

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/internal/views"
	"github.com/lectio/admin-console/pkg/models"
)

const maxUploadMemory = 32 << 20

func (s *Server) listMaterials(w http.ResponseWriter, r *http.Request) {
	filter, err := views.ParseMaterialFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	skip, limit, err := pageParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	materials, err := s.service.Materials(r.Context(), skip, limit)
	if err != nil {
		s.fail(w, r, err, "materials")
		return
	}
	respondWithView(w, views.BuildMaterials(materials, filter))
}

func (s *Server) getMaterial(w http.ResponseWriter, r *http.Request) {
	material, err := s.service.Material(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, "material")
		return
	}
	respondWithView(w, material)
}

func (s *Server) createMaterial(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	form := r.MultipartForm

	price, err := parsePrice(form.Value["price_dzd"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := models.CreateMaterial{
		Input: models.MaterialInput{
			Title:        first(form.Value["title"]),
			Description:  first(form.Value["description"]),
			MaterialType: first(form.Value["material_type"]),
			PriceDZD:     price,
			StudyYear:    first(form.Value["study_year"]),
			Specialite:   first(form.Value["specialite"]),
			Module:       first(form.Value["module"]),
		},
	}
	if files := form.File["file"]; len(files) > 0 {
		if in.File, err = readUpload(files[0]); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if in.Images, err = readUploads(form.File["images"]); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.CreateMaterial(r.Context(), in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusCreated, "Material created")
}

// editMaterial forwards only the fields present in the form.
func (s *Server) editMaterial(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	form := r.MultipartForm

	edit := models.EditMaterial{ID: mux.Vars(r)["id"]}
	edit.Patch.Title = optional(form.Value, "title")
	edit.Patch.Description = optional(form.Value, "description")
	edit.Patch.MaterialType = optional(form.Value, "material_type")
	edit.Patch.StudyYear = optional(form.Value, "study_year")
	if edit.Patch.StudyYear == nil {
		edit.Patch.StudyYear = optional(form.Value, "year_study")
	}
	edit.Patch.Specialite = optional(form.Value, "specialite")
	edit.Patch.Module = optional(form.Value, "module")
	if raw, ok := form.Value["price_dzd"]; ok {
		price, err := parsePrice(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		edit.Patch.PriceDZD = &price
	}

	for _, u := range form.Value["existing_image_urls"] {
		edit.ExistingImageURLs = append(edit.ExistingImageURLs, storedName(u))
	}
	if v := first(form.Value["remove_pdf"]); v != "" {
		remove, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "remove_pdf must be a boolean")
			return
		}
		edit.RemovePDF = remove
	}

	var err error
	if edit.NewImages, err = readUploads(form.File["images"]); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if files := form.File["file"]; len(files) > 0 {
		upload, err := readUpload(files[0])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		edit.NewFile = &upload
	}

	if err := s.service.EditMaterial(r.Context(), edit); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusOK, "Material updated")
}

func (s *Server) deleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMaterial(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, "")
		return
	}
	respondWithMessage(w, http.StatusOK, "Material deleted")
}

// materialFile proxies a stored image or PDF. Downloads bypass the query
// cache.
func (s *Server) materialFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	materials := s.service.API().Materials

	var (
		download models.Download
		err      error
	)
	if vars["kind"] == "file" {
		download, err = materials.File(r.Context(), vars["fileID"])
	} else {
		download, err = materials.Image(r.Context(), vars["fileID"])
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(download.Data)
}

// storedName turns an asset URL handed out by a read back into the file
// name the backend stores.
func storedName(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.EscapedPath()
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	n := len(parts)
	switch {
	case n >= 5 && parts[n-5] == "api" && parts[n-4] == "materials" && parts[n-3] == "files":
		if name, err := url.PathUnescape(parts[n-2]); err == nil {
			return name
		}
	case n >= 3 && parts[n-3] == "materials" && (parts[n-1] == "get_image" || parts[n-1] == "get_file"):
		if name, err := url.PathUnescape(parts[n-2]); err == nil {
			return name
		}
	}
	return u
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func optional(values map[string][]string, name string) *string {
	v, ok := values[name]
	if !ok || len(v) == 0 {
		return nil
	}
	s := strings.TrimSpace(v[0])
	return &s
}

func parsePrice(values []string) (float64, error) {
	raw := first(values)
	if raw == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("price_dzd must be a number")
	}
	return price, nil
}

func readUploads(files []*multipart.FileHeader) ([]models.Upload, error) {
	uploads := make([]models.Upload, 0, len(files))
	for _, fh := range files {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (models.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.Upload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return models.Upload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}
