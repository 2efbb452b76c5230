package api

import (
	"context"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/pkg/models"
	"github.com/sirupsen/logrus"
)

type Materials struct {
	client *apiclient.Client
	logger *logrus.Logger
}

func (m *Materials) List(ctx context.Context, page Page) ([]models.Material, error) {
	var materials []models.Material
	req := apiclient.Request{Endpoint: endpoints.Materials.List, Query: page.Query()}
	if err := fetch(ctx, m.client, req, &materials, "No materials found"); err != nil {
		return nil, err
	}
	return clip(materials, page), nil
}

// Get returns the admin view of a single material.
func (m *Materials) Get(ctx context.Context, id string) (models.Material, error) {
	var material models.Material
	if err := requireID("id", id); err != nil {
		return material, err
	}
	err := fetch(ctx, m.client, apiclient.Request{Endpoint: endpoints.Materials.AdminByID.With(id)}, &material, "Material not found")
	return material, err
}

func (m *Materials) Create(ctx context.Context, in models.CreateMaterial) error {
	if err := validateStruct(in.Input); err != nil {
		return err
	}
	if len(in.File.Data) == 0 {
		return &ValidationError{Fields: map[string]string{"File": "This field is required"}}
	}

	body, contentType, err := EncodeCreateForm(in)
	if err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"title":  in.Input.Title,
		"type":   in.Input.MaterialType,
		"images": len(in.Images),
	}).Info("Creating material")

	return send(ctx, m.client, apiclient.Request{
		Endpoint:    endpoints.Materials.Create,
		Body:        body,
		ContentType: contentType,
	})
}

func (m *Materials) Edit(ctx context.Context, in models.EditMaterial) error {
	if err := requireID("ID", in.ID); err != nil {
		return err
	}
	if err := validateStruct(in.Patch); err != nil {
		return err
	}

	body, contentType, err := EncodeEditForm(in)
	if err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"material_id": in.ID,
		"kept_images": len(in.ExistingImageURLs),
		"new_images":  len(in.NewImages),
		"remove_pdf":  in.RemovePDF,
	}).Info("Updating material")

	return send(ctx, m.client, apiclient.Request{
		Endpoint:    endpoints.Materials.Update.With(in.ID),
		Body:        body,
		ContentType: contentType,
	})
}

func (m *Materials) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	m.logger.WithField("material_id", id).Info("Deleting material")
	return send(ctx, m.client, apiclient.Request{Endpoint: endpoints.Materials.Delete.With(id)})
}

// Image downloads a stored material image by file id.
func (m *Materials) Image(ctx context.Context, fileID string) (models.Download, error) {
	return m.download(ctx, endpoints.Materials.Image, fileID, "Image not found")
}

// File downloads a stored material document by file id.
func (m *Materials) File(ctx context.Context, fileID string) (models.Download, error) {
	return m.download(ctx, endpoints.Materials.File, fileID, "File not found")
}

func (m *Materials) download(ctx context.Context, e endpoints.Endpoint, fileID, notFound string) (models.Download, error) {
	if err := requireID("file_id", fileID); err != nil {
		return models.Download{}, err
	}
	resp, err := m.client.Do(ctx, apiclient.Request{Endpoint: e.With(fileID)})
	if err != nil {
		return models.Download{}, err
	}
	if len(resp.Body) == 0 {
		return models.Download{}, apiclient.NotFound(notFound)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return models.Download{ContentType: contentType, Data: resp.Body}, nil
}
