package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type AuditLogs struct {
	db *gorm.DB
}

func (r *AuditLogs) Append(userID, action, details string) error {
	row := AuditLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: r.db.NowFunc(),
	}
	if err := r.db.Create(&row).Error; err != nil {
		return errors.Wrap(err, "inserting audit log")
	}
	return nil
}

// List returns the newest entries first.
func (r *AuditLogs) List(limit, offset int) ([]models.AuditLog, error) {
	var rows []AuditLog
	err := r.db.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing audit logs")
	}
	out := make([]models.AuditLog, len(rows))
	for i, a := range rows {
		out[i] = a.toModel()
	}
	return out, nil
}

// PruneOlderThan deletes entries stamped before cutoff and returns how many.
func (r *AuditLogs) PruneOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("timestamp < ?", cutoff).Delete(&AuditLog{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "pruning audit logs")
	}
	return res.RowsAffected, nil
}
