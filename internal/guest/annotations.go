package guest

import (
	"github.com/google/uuid"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

// Annotation documents are looked up by scanning for imageId. With the
// one-document-per-image coupling there is a single match; should two ever
// exist, every operation here acts on the first one created.

// CreateAnnotations stores shapes as a new document for imageID and returns
// the document id. It does not check for an existing document.
func (st *Store) CreateAnnotations(guestID, imageID string, shapes []models.Annotation) string {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	doc := &models.ImageAnnotations{
		ID:          newID("guest_ann_"),
		ImageID:     imageID,
		Annotations: withShapeIDs(shapes),
	}
	s.annotations.put(doc.ID, doc)
	return doc.ID
}

// CreateAnnotationsIfAbsent stores shapes for imageID unless the image
// already has a document. The check and the insert share one session lock.
// It returns the document now on record and whether it was created.
func (st *Store) CreateAnnotationsIfAbsent(guestID, imageID string, shapes []models.Annotation) (models.ImageAnnotations, bool) {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	if doc := s.findAnnotationDoc(imageID); doc != nil {
		return doc.Clone(), false
	}
	doc := &models.ImageAnnotations{
		ID:          newID("guest_ann_"),
		ImageID:     imageID,
		Annotations: withShapeIDs(shapes),
	}
	s.annotations.put(doc.ID, doc)
	return doc.Clone(), true
}

// GetAnnotations returns the document of imageID, or nil.
func (st *Store) GetAnnotations(guestID, imageID string) *models.ImageAnnotations {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	doc := s.findAnnotationDoc(imageID)
	if doc == nil {
		return nil
	}
	cp := doc.Clone()
	return &cp
}

// ListAnnotationDocs returns every annotation document of the session.
func (st *Store) ListAnnotationDocs(guestID string) []models.ImageAnnotations {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	out := make([]models.ImageAnnotations, 0, s.annotations.len())
	s.annotations.each(func(_ string, doc *models.ImageAnnotations) bool {
		out = append(out, doc.Clone())
		return true
	})
	return out
}

// UpdateAnnotations replaces the shape list of the image's document, keeping
// its id. It returns false when the image has no document.
func (st *Store) UpdateAnnotations(guestID, imageID string, shapes []models.Annotation) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	doc := s.findAnnotationDoc(imageID)
	if doc == nil {
		return false
	}
	doc.Annotations = withShapeIDs(shapes)
	return true
}

// DeleteAnnotations removes the document of imageID.
func (st *Store) DeleteAnnotations(guestID, imageID string) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	return s.deleteAnnotationDoc(imageID)
}

// AddShape appends one shape to the image's document, creating the document
// when the image has none. The stored shape is returned with its id set.
func (st *Store) AddShape(guestID, imageID string, shape models.Annotation) models.Annotation {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	shape = shape.Clone()
	if shape.ID == "" {
		shape.ID = uuid.NewString()
	}

	doc := s.findAnnotationDoc(imageID)
	if doc == nil {
		doc = &models.ImageAnnotations{ID: newID("guest_ann_"), ImageID: imageID}
		s.annotations.put(doc.ID, doc)
	}
	doc.Annotations = append(doc.Annotations, shape)
	return shape.Clone()
}

// DeleteShape removes one shape from the image's document.
func (st *Store) DeleteShape(guestID, imageID, shapeID string) bool {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	doc := s.findAnnotationDoc(imageID)
	if doc == nil {
		return false
	}
	for i, a := range doc.Annotations {
		if a.ID == shapeID {
			doc.Annotations = append(doc.Annotations[:i], doc.Annotations[i+1:]...)
			return true
		}
	}
	return false
}

func (s *session) findAnnotationDoc(imageID string) *models.ImageAnnotations {
	var found *models.ImageAnnotations
	s.annotations.each(func(_ string, doc *models.ImageAnnotations) bool {
		if doc.ImageID == imageID {
			found = doc
			return false
		}
		return true
	})
	return found
}

func (s *session) deleteAnnotationDoc(imageID string) bool {
	doc := s.findAnnotationDoc(imageID)
	if doc == nil {
		return false
	}
	return s.annotations.del(doc.ID)
}

// withShapeIDs deep-copies shapes and fills in missing ids.
func withShapeIDs(shapes []models.Annotation) []models.Annotation {
	out := models.CloneAnnotations(shapes)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}
