package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/storage"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

func validStatus(s string) bool {
	switch s {
	case models.StatusNotStarted, models.StatusInProgress, models.StatusCompleted:
		return true
	}
	return false
}

// POST /datasets
func (s *Server) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var in models.DatasetInput
	if !decode(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "Dataset name is required.")
		return
	}
	if in.Status != "" && !validStatus(in.Status) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "Unknown dataset status.")
		return
	}

	u := currentUser(r)
	if u.IsGuest {
		id := s.Guest.CreateDataset(u.ID, in)
		utils.WriteJSON(w, http.StatusCreated, s.Guest.GetDataset(u.ID, id))
		return
	}

	d, err := s.Repos.Datasets.Create(u.ID, in)
	if err != nil {
		repoError(w, err, "Dataset")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, d)
}

// GET /datasets
func (s *Server) ListDatasets(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.IsGuest {
		utils.WriteJSON(w, http.StatusOK, s.Guest.ListDatasets(u.ID))
		return
	}

	list, err := s.Repos.Datasets.ListActive()
	if err != nil {
		repoError(w, err, "Dataset")
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// GET /datasets/{id}
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		d := s.Guest.GetDataset(u.ID, id)
		if d == nil {
			notFound(w, "Dataset")
			return
		}
		utils.WriteJSON(w, http.StatusOK, d)
		return
	}

	d, err := s.Repos.Datasets.Get(id)
	if err != nil {
		repoError(w, err, "Dataset")
		return
	}
	utils.WriteJSON(w, http.StatusOK, d)
}

// PATCH /datasets/{id}
func (s *Server) UpdateDataset(w http.ResponseWriter, r *http.Request) {
	var patch models.DatasetPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.Empty() {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "No fields to update.")
		return
	}
	if patch.Status != nil && !validStatus(*patch.Status) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "Unknown dataset status.")
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.UpdateDataset(u.ID, id, patch) {
			notFound(w, "Dataset")
			return
		}
		utils.WriteJSON(w, http.StatusOK, s.Guest.GetDataset(u.ID, id))
		return
	}

	d, err := s.Repos.Datasets.Update(id, patch)
	if err != nil {
		repoError(w, err, "Dataset")
		return
	}
	utils.WriteJSON(w, http.StatusOK, d)
}

// DeleteDataset hard-deletes a guest dataset with its images. Registered
// datasets are soft-deleted; ?hard=true removes them for admins.
// DELETE /datasets/{id}
func (s *Server) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.DeleteDataset(u.ID, id) {
			notFound(w, "Dataset")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Query().Get("hard") != "true" {
		if err := s.Repos.Datasets.SoftDelete(id); err != nil {
			repoError(w, err, "Dataset")
			return
		}
		s.audit(u.ID, "dataset_deleted", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if u.Role != models.RoleAdmin {
		utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "Only admins can purge datasets.")
		return
	}
	images, _ := s.Repos.Datasets.ObjectKeys(id)
	if err := s.Repos.Datasets.HardDelete(id); err != nil {
		repoError(w, err, "Dataset")
		return
	}
	s.purgeObjects(r.Context(), images)

	s.audit(u.ID, "dataset_purged", id)
	w.WriteHeader(http.StatusNoContent)
}

// purgeObjects removes stored objects after their rows are gone. Failures
// only leave orphans behind, so they are logged and skipped.
func (s *Server) purgeObjects(ctx context.Context, keys []string) {
	if s.Storage == nil {
		return
	}
	for _, key := range keys {
		if err := s.Storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			logger.LogWarn("Failed to delete object %s: %v", key, err)
		}
	}
}
