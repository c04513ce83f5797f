package handlers

import (
	"net/http"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

type annotationsRequest struct {
	Annotations []models.Annotation `json:"annotations"`
}

// decodeShapes reads and validates a shape list body.
func decodeShapes(w http.ResponseWriter, r *http.Request) ([]models.Annotation, bool) {
	var req annotationsRequest
	if !decode(w, r, &req) {
		return nil, false
	}
	for _, a := range req.Annotations {
		if err := a.Validate(); err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, err.Error())
			return nil, false
		}
	}
	if req.Annotations == nil {
		req.Annotations = []models.Annotation{}
	}
	return req.Annotations, true
}

// imageVisible reports whether the caller can see the image. It writes the
// error response when not.
func (s *Server) imageVisible(w http.ResponseWriter, u models.User, imageID string) bool {
	if u.IsGuest {
		if s.Guest.GetImage(u.ID, imageID) == nil {
			notFound(w, "Image")
			return false
		}
		return true
	}
	if _, err := s.Repos.Images.Get(imageID); err != nil {
		repoError(w, err, "Image")
		return false
	}
	return true
}

// ListAnnotations returns every annotation document the caller can see.
// GET /annotations
func (s *Server) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.IsGuest {
		utils.WriteJSON(w, http.StatusOK, s.Guest.ListAnnotationDocs(u.ID))
		return
	}

	datasets, err := s.Repos.Datasets.ListActive()
	if err != nil {
		repoError(w, err, "Dataset")
		return
	}
	ids := make([]string, len(datasets))
	for i, d := range datasets {
		ids[i] = d.ID
	}
	docs, err := s.Repos.Annotations.ListForDatasets(ids)
	if err != nil {
		repoError(w, err, "Annotations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, docs)
}

// GET /images/{id}/annotations
func (s *Server) GetAnnotations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		doc := s.Guest.GetAnnotations(u.ID, id)
		if doc == nil {
			notFound(w, "Annotations")
			return
		}
		utils.WriteJSON(w, http.StatusOK, doc)
		return
	}

	doc, err := s.Repos.Annotations.GetByImage(id)
	if err != nil {
		repoError(w, err, "Annotations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, doc)
}

// CreateAnnotations stores the first document of an image. Uploads already
// create an empty one, so this mostly serves images whose document was deleted.
// POST /images/{id}/annotations
func (s *Server) CreateAnnotations(w http.ResponseWriter, r *http.Request) {
	shapes, ok := decodeShapes(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if !s.imageVisible(w, u, id) {
		return
	}

	if u.IsGuest {
		doc, created := s.Guest.CreateAnnotationsIfAbsent(u.ID, id, shapes)
		if !created {
			utils.WriteError(w, http.StatusConflict, utils.ErrResourceConflict, "Annotations already exists.")
			return
		}
		utils.WriteJSON(w, http.StatusCreated, doc)
		return
	}

	doc, err := s.Repos.Annotations.Create(id, shapes)
	if err != nil {
		repoError(w, err, "Annotations")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, doc)
}

// PUT /images/{id}/annotations
func (s *Server) UpdateAnnotations(w http.ResponseWriter, r *http.Request) {
	shapes, ok := decodeShapes(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.UpdateAnnotations(u.ID, id, shapes) {
			notFound(w, "Annotations")
			return
		}
		utils.WriteJSON(w, http.StatusOK, s.Guest.GetAnnotations(u.ID, id))
		return
	}

	doc, err := s.Repos.Annotations.Update(id, shapes)
	if err != nil {
		repoError(w, err, "Annotations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, doc)
}

// DELETE /images/{id}/annotations
func (s *Server) DeleteAnnotations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.DeleteAnnotations(u.ID, id) {
			notFound(w, "Annotations")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.Repos.Annotations.Delete(id); err != nil {
		repoError(w, err, "Annotations")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddShape appends a single shape, creating the image's document if needed.
// POST /images/{id}/annotations/shapes
func (s *Server) AddShape(w http.ResponseWriter, r *http.Request) {
	var shape models.Annotation
	if !decode(w, r, &shape) {
		return
	}
	if err := shape.Validate(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, err.Error())
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if !s.imageVisible(w, u, id) {
		return
	}

	if u.IsGuest {
		utils.WriteJSON(w, http.StatusCreated, s.Guest.AddShape(u.ID, id, shape))
		return
	}

	stored, err := s.Repos.Annotations.AddShape(id, shape)
	if err != nil {
		repoError(w, err, "Annotations")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, stored)
}

// DELETE /images/{id}/annotations/shapes/{shapeId}
func (s *Server) DeleteShape(w http.ResponseWriter, r *http.Request) {
	id, shapeID := r.PathValue("id"), r.PathValue("shapeId")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.DeleteShape(u.ID, id, shapeID) {
			notFound(w, "Shape")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.Repos.Annotations.DeleteShape(id, shapeID); err != nil {
		repoError(w, err, "Shape")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
