package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrTokenExpired is returned when a reset token is used after its expiry.
var ErrTokenExpired = errors.New("reset token expired")

type PasswordResets struct {
	db *gorm.DB
}

func (r *PasswordResets) Create(token, userID string, expiresAt time.Time) error {
	row := PasswordReset{Token: token, UserID: userID, ExpiresAt: expiresAt}
	if err := r.db.Create(&row).Error; err != nil {
		return errors.Wrap(err, "inserting password reset")
	}
	return nil
}

// Consume marks the token used and returns its user. A token works once.
func (r *PasswordResets) Consume(token string, now time.Time) (string, error) {
	var userID string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var row PasswordReset
		if err := tx.Where("token = ? AND used_at IS NULL", token).First(&row).Error; err != nil {
			return notFound(err, "finding password reset")
		}
		if !now.Before(row.ExpiresAt) {
			return ErrTokenExpired
		}
		if err := tx.Model(&row).Update("used_at", now).Error; err != nil {
			return errors.Wrap(err, "consuming password reset")
		}
		userID = row.UserID
		return nil
	})
	return userID, err
}
