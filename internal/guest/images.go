package guest

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// AddImages stores every file inline under datasetID. Files that do not
// decode as images are kept with zero dimensions and the "binary" type.
// Each new image gets an empty annotation document. It fails with
// ErrDatasetNotFound when the dataset is not in the session.
func (st *Store) AddImages(guestID, datasetID string, files []models.UploadFile) ([]models.Image, error) {
	// Probe outside the session lock; decoding is the slow part.
	metas := make([]utils.ImageMeta, len(files))
	for i, f := range files {
		metas[i], _ = utils.ProbeImage(f.Data)
	}

	s := st.acquire(guestID)
	defer s.mu.Unlock()

	if _, ok := s.liveDataset(datasetID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}

	now := st.clock.Now()
	out := make([]models.Image, 0, len(files))
	for i, f := range files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(f.Data)
		}

		rec := &imageRecord{
			meta: models.Image{
				ID:          uuid.NewString(),
				DatasetID:   datasetID,
				FileName:    f.Filename,
				Width:       metas[i].Width,
				Height:      metas[i].Height,
				FileSize:    metas[i].Size,
				FileType:    metas[i].Format,
				ContentType: contentType,
				CreatedBy:   guestID,
				CreatedAt:   now,
				UpdatedAt:   now,
				IsActive:    true,
			},
			payload: base64.StdEncoding.EncodeToString(f.Data),
			size:    int64(len(f.Data)),
		}

		s.images.put(rec.meta.ID, rec)
		s.bytes += rec.size
		st.images.Add(1)
		st.bytes.Add(rec.size)

		doc := &models.ImageAnnotations{
			ID:          newID("guest_ann_"),
			ImageID:     rec.meta.ID,
			Annotations: []models.Annotation{},
		}
		s.annotations.put(doc.ID, doc)

		out = append(out, rec.meta)
	}

	s.recount(datasetID)
	if ds, ok := s.datasets.get(datasetID); ok {
		ds.UpdatedAt = now
	}

	logger.LogDebug("Guest %s added %d images to dataset %s", guestID, len(out), datasetID)
	return out, nil
}

// ListImages returns the active images of one dataset.
func (st *Store) ListImages(guestID, datasetID string) []models.Image {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	out := []models.Image{}
	s.images.each(func(_ string, rec *imageRecord) bool {
		if rec.meta.DatasetID == datasetID && rec.meta.IsActive {
			out = append(out, rec.meta)
		}
		return true
	})
	return out
}

// GetImage returns the metadata of one image, or nil.
func (st *Store) GetImage(guestID, imageID string) *models.Image {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	rec, ok := s.images.get(imageID)
	if !ok {
		return nil
	}
	meta := rec.meta
	return &meta
}

// GetBytes decodes the stored payload of an image.
func (st *Store) GetBytes(guestID, imageID string) ([]byte, string, error) {
	s := st.acquire(guestID)
	rec, ok := s.images.get(imageID)
	var payload, contentType string
	if ok {
		payload, contentType = rec.payload, rec.meta.ContentType
	}
	s.mu.Unlock()

	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrImageNotFound, imageID)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image %s: %w", imageID, err)
	}
	return data, contentType, nil
}

// DeleteImages removes the listed images that belong to datasetID, together
// with their annotation documents, and returns how many were removed.
func (st *Store) DeleteImages(guestID, datasetID string, imageIDs []string) int {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	n := 0
	for _, id := range imageIDs {
		if s.deleteImageIn(st, datasetID, id) {
			n++
		}
	}
	if n > 0 {
		s.recount(datasetID)
	}
	return n
}

// DeleteImage is the single-image form of DeleteImages.
func (st *Store) DeleteImage(guestID, datasetID, imageID string) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	if !s.deleteImageIn(st, datasetID, imageID) {
		return false
	}
	s.recount(datasetID)
	return true
}

func (s *session) deleteImageIn(st *Store, datasetID, imageID string) bool {
	rec, ok := s.images.get(imageID)
	if !ok || rec.meta.DatasetID != datasetID {
		return false
	}
	st.dropImage(s, imageID)
	s.deleteAnnotationDoc(imageID)
	return true
}

// dropImage removes one image record and its byte accounting.
func (st *Store) dropImage(s *session, imageID string) {
	rec, ok := s.images.get(imageID)
	if !ok {
		return
	}
	s.images.del(imageID)
	s.bytes -= rec.size
	st.images.Add(-1)
	st.bytes.Add(-rec.size)
}
