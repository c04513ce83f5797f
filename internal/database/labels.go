package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type Labels struct {
	db *gorm.DB
}

func (r *Labels) Create(datasetID string, in models.LabelInput) (models.Label, error) {
	row := Label{
		ID:          uuid.NewString(),
		DatasetID:   datasetID,
		LabelName:   in.LabelName,
		Description: in.Description,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return models.Label{}, errors.Wrap(err, "inserting label")
	}
	return row.toModel(), nil
}

func (r *Labels) ListByDataset(datasetID string) ([]models.Label, error) {
	var rows []Label
	if err := r.db.Where("dataset_id = ?", datasetID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing labels")
	}
	out := make([]models.Label, len(rows))
	for i, l := range rows {
		out[i] = l.toModel()
	}
	return out, nil
}

func (r *Labels) Get(id string) (models.Label, error) {
	var row Label
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		return models.Label{}, notFound(err, "finding label")
	}
	return row.toModel(), nil
}

func (r *Labels) Update(id string, patch models.LabelPatch) (models.Label, error) {
	var row Label
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		return models.Label{}, notFound(err, "finding label")
	}

	m := row.toModel()
	patch.Apply(&m)
	row.LabelName = m.LabelName
	row.Description = m.Description

	if err := r.db.Save(&row).Error; err != nil {
		return models.Label{}, errors.Wrap(err, "updating label")
	}
	return row.toModel(), nil
}

func (r *Labels) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&Label{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting label")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForDataset returns how many labels were removed.
func (r *Labels) DeleteAllForDataset(datasetID string) (int, error) {
	res := r.db.Where("dataset_id = ?", datasetID).Delete(&Label{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting labels")
	}
	return int(res.RowsAffected), nil
}
