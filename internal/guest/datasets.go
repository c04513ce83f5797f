package guest

import (
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

// CreateDataset stores a new dataset owned by guestID and returns its id.
func (st *Store) CreateDataset(guestID string, in models.DatasetInput) string {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	now := st.clock.Now()
	ds := &models.Dataset{
		ID:                   newID("guest_dataset_"),
		Name:                 in.Name,
		Description:          in.Description,
		CreatedBy:            guestID,
		Status:               in.Status,
		AssignedTo:           append([]string{}, in.AssignedTo...),
		LocationOfCollection: in.LocationOfCollection,
		CreatedAt:            now,
		UpdatedAt:            now,
		IsActive:             true,
	}
	if ds.Status == "" {
		ds.Status = models.StatusNotStarted
	}
	if in.DateOfCollection != nil {
		t := *in.DateOfCollection
		ds.DateOfCollection = &t
	}

	s.datasets.put(ds.ID, ds)
	logger.LogDebug("Guest %s created dataset %s", guestID, ds.ID)
	return ds.ID
}

// ListDatasets returns every dataset of the session that is not deleted.
func (st *Store) ListDatasets(guestID string) []models.Dataset {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	out := make([]models.Dataset, 0, s.datasets.len())
	s.datasets.each(func(_ string, ds *models.Dataset) bool {
		if !ds.IsDeleted {
			out = append(out, ds.Clone())
		}
		return true
	})
	return out
}

// GetDataset returns nil when the dataset is absent or deleted.
func (st *Store) GetDataset(guestID, datasetID string) *models.Dataset {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	ds, ok := s.liveDataset(datasetID)
	if !ok {
		return nil
	}
	cp := ds.Clone()
	return &cp
}

// UpdateDataset applies patch and refreshes updatedAt. It returns false for
// an unknown id.
func (st *Store) UpdateDataset(guestID, datasetID string, patch models.DatasetPatch) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	ds, ok := s.datasets.get(datasetID)
	if !ok {
		return false
	}
	patch.Apply(ds)
	ds.UpdatedAt = st.clock.Now()
	return true
}

// DeleteDataset removes the dataset and every image that belongs to it.
// Annotation documents and labels follow only when the matching cascade
// rule is enabled.
func (st *Store) DeleteDataset(guestID, datasetID string) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	if _, ok := s.datasets.get(datasetID); !ok {
		return false
	}

	var imageIDs []string
	s.images.each(func(id string, rec *imageRecord) bool {
		if rec.meta.DatasetID == datasetID {
			imageIDs = append(imageIDs, id)
		}
		return true
	})
	for _, id := range imageIDs {
		st.dropImage(s, id)
		if st.cascade.DatasetAnnotations {
			s.deleteAnnotationDoc(id)
		}
	}

	labels := 0
	if st.cascade.DatasetLabels {
		labels = s.deleteLabelsFor(datasetID)
	}

	s.datasets.del(datasetID)
	logger.LogDebug("Guest %s deleted dataset %s (%d images, %d labels)", guestID, datasetID, len(imageIDs), labels)
	return true
}

func (s *session) liveDataset(id string) (*models.Dataset, bool) {
	ds, ok := s.datasets.get(id)
	if !ok || ds.IsDeleted {
		return nil, false
	}
	return ds, true
}

// recount derives total_Images from the live images of the dataset.
func (s *session) recount(datasetID string) {
	ds, ok := s.datasets.get(datasetID)
	if !ok {
		return
	}
	n := 0
	s.images.each(func(_ string, rec *imageRecord) bool {
		if rec.meta.DatasetID == datasetID && rec.meta.IsActive {
			n++
		}
		return true
	})
	ds.TotalImages = n
}
