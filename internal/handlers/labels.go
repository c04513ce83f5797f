package handlers

import (
	"net/http"
	"strings"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// POST /datasets/{id}/labels
func (s *Server) CreateLabel(w http.ResponseWriter, r *http.Request) {
	var in models.LabelInput
	if !decode(w, r, &in) {
		return
	}
	in.LabelName = strings.TrimSpace(in.LabelName)
	if in.LabelName == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "labelName is required.")
		return
	}

	datasetID := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if s.Guest.GetDataset(u.ID, datasetID) == nil {
			notFound(w, "Dataset")
			return
		}
		id := s.Guest.CreateLabel(u.ID, datasetID, in)
		utils.WriteJSON(w, http.StatusCreated, s.Guest.GetLabel(u.ID, id))
		return
	}

	if _, err := s.Repos.Datasets.Get(datasetID); err != nil {
		repoError(w, err, "Dataset")
		return
	}
	l, err := s.Repos.Labels.Create(datasetID, in)
	if err != nil {
		repoError(w, err, "Label")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, l)
}

// ListLabels returns the labels of every dataset the caller can see.
// GET /labels
func (s *Server) ListLabels(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.IsGuest {
		utils.WriteJSON(w, http.StatusOK, s.Guest.ListLabels(u.ID))
		return
	}

	datasets, err := s.Repos.Datasets.ListActive()
	if err != nil {
		repoError(w, err, "Dataset")
		return
	}
	out := []models.Label{}
	for _, d := range datasets {
		labels, err := s.Repos.Labels.ListByDataset(d.ID)
		if err != nil {
			repoError(w, err, "Label")
			return
		}
		out = append(out, labels...)
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// GET /datasets/{id}/labels
func (s *Server) ListDatasetLabels(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		utils.WriteJSON(w, http.StatusOK, s.Guest.ListDatasetLabels(u.ID, datasetID))
		return
	}

	labels, err := s.Repos.Labels.ListByDataset(datasetID)
	if err != nil {
		repoError(w, err, "Label")
		return
	}
	utils.WriteJSON(w, http.StatusOK, labels)
}

// DELETE /datasets/{id}/labels
func (s *Server) DeleteDatasetLabels(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.DeleteDatasetLabels(u.ID, datasetID) {
			notFound(w, "Labels")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	n, err := s.Repos.Labels.DeleteAllForDataset(datasetID)
	if err != nil {
		repoError(w, err, "Label")
		return
	}
	if n == 0 {
		notFound(w, "Labels")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /labels/{id}
func (s *Server) GetLabel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		l := s.Guest.GetLabel(u.ID, id)
		if l == nil {
			notFound(w, "Label")
			return
		}
		utils.WriteJSON(w, http.StatusOK, l)
		return
	}

	l, err := s.Repos.Labels.Get(id)
	if err != nil {
		repoError(w, err, "Label")
		return
	}
	utils.WriteJSON(w, http.StatusOK, l)
}

// PATCH /labels/{id}
func (s *Server) UpdateLabel(w http.ResponseWriter, r *http.Request) {
	var patch models.LabelPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.Empty() {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "No fields to update.")
		return
	}
	if patch.LabelName != nil && strings.TrimSpace(*patch.LabelName) == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "labelName cannot be empty.")
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.UpdateLabel(u.ID, id, patch) {
			notFound(w, "Label")
			return
		}
		utils.WriteJSON(w, http.StatusOK, s.Guest.GetLabel(u.ID, id))
		return
	}

	l, err := s.Repos.Labels.Update(id, patch)
	if err != nil {
		repoError(w, err, "Label")
		return
	}
	utils.WriteJSON(w, http.StatusOK, l)
}

// DELETE /labels/{id}
func (s *Server) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.DeleteLabel(u.ID, id) {
			notFound(w, "Label")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.Repos.Labels.Delete(id); err != nil {
		repoError(w, err, "Label")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
