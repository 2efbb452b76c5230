package fakebackend

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 32 << 20

func (s *Server) listMaterials(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)

	s.mu.RLock()
	materials := make([]models.Material, 0, len(s.materialOrder))
	for _, id := range s.materialOrder {
		materials = append(materials, *s.materials[id])
	}
	s.mu.RUnlock()

	from, to := window(len(materials), skip, limit)
	respondWithJSON(w, http.StatusOK, materials[from:to])
}

func (s *Server) getMaterial(w http.ResponseWriter, r *http.Request, _ *models.User) {
	s.mu.RLock()
	m, ok := s.materials[mux.Vars(r)["id"]]
	var out models.Material
	if ok {
		out = *m
	}
	s.mu.RUnlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "Material not found")
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) createMaterial(w http.ResponseWriter, r *http.Request, _ *models.User) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Expected multipart form")
		return
	}
	form := r.MultipartForm

	price, err := strconv.ParseFloat(r.FormValue("price_dzd"), 64)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "price_dzd must be a number")
		return
	}
	files := form.File["file"]
	if r.FormValue("title") == "" || len(files) == 0 {
		respondWithError(w, http.StatusUnprocessableEntity, "title and file are required")
		return
	}

	m := models.Material{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		MaterialType: r.FormValue("material_type"),
		PriceDZD:     price,
		StudyYear:    r.FormValue("study_year"),
		Specialite:   r.FormValue("specialite"),
		Module:       r.FormValue("module"),
	}

	s.mu.Lock()
	if m.PDFURL, err = s.storeFileLocked(files[0]); err == nil {
		for _, img := range form.File["images"] {
			var id string
			if id, err = s.storeFileLocked(img); err != nil {
				break
			}
			m.ImageURLs = append(m.ImageURLs, id)
		}
	}
	s.mu.Unlock()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read upload")
		return
	}

	created := s.AddMaterial(m)
	s.logger.WithField("material_id", created.ID).Info("Material created")
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) updateMaterial(w http.ResponseWriter, r *http.Request, _ *models.User) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Expected multipart form")
		return
	}
	form := r.MultipartForm
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.materials[id]
	if !ok {
		respondWithError(w, http.StatusNotFound, "Material not found")
		return
	}

	set := func(field string, dst *string) {
		if v, ok := form.Value[field]; ok && len(v) > 0 {
			*dst = v[0]
		}
	}
	set("title", &m.Title)
	set("description", &m.Description)
	set("material_type", &m.MaterialType)
	set("year_study", &m.StudyYear)
	set("specialite", &m.Specialite)
	set("module", &m.Module)
	if v, ok := form.Value["price_dzd"]; ok && len(v) > 0 {
		price, err := strconv.ParseFloat(v[0], 64)
		if err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "price_dzd must be a number")
			return
		}
		m.PriceDZD = price
	}

	keep := make(map[string]bool)
	for _, u := range form.Value["existing_image_urls"] {
		keep[u] = true
	}
	images := make([]string, 0, len(m.ImageURLs))
	for _, u := range m.ImageURLs {
		if keep[u] {
			images = append(images, u)
		}
	}
	for _, img := range form.File["images"] {
		fileID, err := s.storeFileLocked(img)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Could not read upload")
			return
		}
		images = append(images, fileID)
	}
	m.ImageURLs = images

	if r.FormValue("remove_pdf") == "true" {
		m.PDFURL = ""
	}
	if files := form.File["file"]; len(files) > 0 {
		fileID, err := s.storeFileLocked(files[0])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Could not read upload")
			return
		}
		m.PDFURL = fileID
	}

	s.logger.WithFields(logrus.Fields{
		"material_id": id,
		"images":      len(m.ImageURLs),
	}).Info("Material updated")
	respondWithJSON(w, http.StatusOK, *m)
}

func (s *Server) deleteMaterial(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.materials[id]
	if ok {
		delete(s.materials, id)
		order := s.materialOrder[:0]
		for _, mid := range s.materialOrder {
			if mid != id {
				order = append(order, mid)
			}
		}
		s.materialOrder = order
	}
	s.mu.Unlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "Material not found")
		return
	}
	respondWithJSON(w, http.StatusOK, models.MessageResponse{Message: "Material deleted"})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	file, ok := s.files[mux.Vars(r)["id"]]
	s.mu.RUnlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Write(file.Data)
}

func (s *Server) storeFileLocked(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	id := newID()
	s.files[id] = models.Download{ContentType: contentType, Data: data}
	return id, nil
}
