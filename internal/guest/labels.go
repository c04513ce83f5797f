package guest

import (
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

// CreateLabel stores a label under datasetID and returns its id.
func (st *Store) CreateLabel(guestID, datasetID string, in models.LabelInput) string {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	l := &models.Label{
		ID:          newID("guest_label_"),
		DatasetID:   datasetID,
		LabelName:   in.LabelName,
		Description: in.Description,
	}
	s.labels.put(l.ID, l)
	return l.ID
}

// ListLabels returns every label in the session regardless of dataset.
func (st *Store) ListLabels(guestID string) []models.Label {
	return st.labelsWhere(guestID, func(*models.Label) bool { return true })
}

// ListDatasetLabels returns the labels of one dataset.
func (st *Store) ListDatasetLabels(guestID, datasetID string) []models.Label {
	return st.labelsWhere(guestID, func(l *models.Label) bool { return l.DatasetID == datasetID })
}

func (st *Store) labelsWhere(guestID string, keep func(*models.Label) bool) []models.Label {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	out := []models.Label{}
	s.labels.each(func(_ string, l *models.Label) bool {
		if keep(l) {
			out = append(out, *l)
		}
		return true
	})
	return out
}

func (st *Store) GetLabel(guestID, labelID string) *models.Label {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	l, ok := s.labels.get(labelID)
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

func (st *Store) UpdateLabel(guestID, labelID string, patch models.LabelPatch) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	l, ok := s.labels.get(labelID)
	if !ok {
		return false
	}
	patch.Apply(l)
	return true
}

func (st *Store) DeleteLabel(guestID, labelID string) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	return s.labels.del(labelID)
}

// DeleteDatasetLabels removes every label of datasetID. It reports whether
// anything was removed.
func (st *Store) DeleteDatasetLabels(guestID, datasetID string) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	return s.deleteLabelsFor(datasetID) > 0
}

func (s *session) deleteLabelsFor(datasetID string) int {
	var ids []string
	s.labels.each(func(id string, l *models.Label) bool {
		if l.DatasetID == datasetID {
			ids = append(ids, id)
		}
		return true
	})
	for _, id := range ids {
		s.labels.del(id)
	}
	return len(ids)
}
