package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type Remarks struct {
	db *gorm.DB
}

func (r *Remarks) Create(createdBy string, in models.RemarkInput) (models.Remark, error) {
	row := Remark{
		ID:           uuid.NewString(),
		AnnotationID: in.AnnotationID,
		ImageID:      in.ImageID,
		DatasetID:    in.DatasetID,
		Message:      in.Message,
		CreatedBy:    createdBy,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return models.Remark{}, errors.Wrap(err, "inserting remark")
	}
	return row.toModel(), nil
}

func (r *Remarks) ListByImage(imageID string) ([]models.Remark, error) {
	var rows []Remark
	if err := r.db.Where("image_id = ?", imageID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing remarks")
	}
	out := make([]models.Remark, len(rows))
	for i, rm := range rows {
		out[i] = rm.toModel()
	}
	return out, nil
}

func (r *Remarks) Get(id string) (models.Remark, error) {
	var row Remark
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		return models.Remark{}, notFound(err, "finding remark")
	}
	return row.toModel(), nil
}

func (r *Remarks) Update(id string, patch models.RemarkPatch) (models.Remark, error) {
	var row Remark
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		return models.Remark{}, notFound(err, "finding remark")
	}

	m := row.toModel()
	patch.Apply(&m)
	row.Message = m.Message
	row.Status = m.Status
	row.Reply = m.Reply

	if err := r.db.Save(&row).Error; err != nil {
		return models.Remark{}, errors.Wrap(err, "updating remark")
	}
	return row.toModel(), nil
}

func (r *Remarks) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&Remark{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting remark")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
