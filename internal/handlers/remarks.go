package handlers

import (
	"net/http"
	"strings"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// Remarks are reviewer feedback on a single shape. Guests never reach these
// handlers; the routes are registered-only.

// POST /remarks
func (s *Server) CreateRemark(w http.ResponseWriter, r *http.Request) {
	var in models.RemarkInput
	if !decode(w, r, &in) {
		return
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.ImageID == "" || in.AnnotationID == "" || in.Message == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "imageId, annotationId and message are required.")
		return
	}

	img, err := s.Repos.Images.Get(in.ImageID)
	if err != nil {
		repoError(w, err, "Image")
		return
	}
	if in.DatasetID == "" {
		in.DatasetID = img.DatasetID
	}

	u := currentUser(r)
	rm, err := s.Repos.Remarks.Create(u.ID, in)
	if err != nil {
		repoError(w, err, "Remark")
		return
	}
	s.audit(u.ID, "remark_created", rm.ID)
	utils.WriteJSON(w, http.StatusCreated, rm)
}

// GET /images/{id}/remarks
func (s *Server) ListRemarks(w http.ResponseWriter, r *http.Request) {
	list, err := s.Repos.Remarks.ListByImage(r.PathValue("id"))
	if err != nil {
		repoError(w, err, "Remark")
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// PATCH /remarks/{id}
func (s *Server) UpdateRemark(w http.ResponseWriter, r *http.Request) {
	var patch models.RemarkPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.Message == nil && patch.Status == nil && patch.Reply == nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "No fields to update.")
		return
	}

	rm, err := s.Repos.Remarks.Update(r.PathValue("id"), patch)
	if err != nil {
		repoError(w, err, "Remark")
		return
	}
	utils.WriteJSON(w, http.StatusOK, rm)
}

// DELETE /remarks/{id}
func (s *Server) DeleteRemark(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Repos.Remarks.Delete(id); err != nil {
		repoError(w, err, "Remark")
		return
	}
	s.audit(currentUser(r).ID, "remark_deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
