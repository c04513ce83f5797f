package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type Users struct {
	db *gorm.DB
}

// Create inserts an active user. passwordHash must already be a bcrypt hash.
func (r *Users) Create(username, email, passwordHash, role string) (models.User, error) {
	var n int64
	if err := r.db.Model(&User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return models.User{}, errors.Wrap(err, "checking username")
	}
	if n > 0 {
		return models.User{}, ErrConflict
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	if err := r.db.Create(&u).Error; err != nil {
		return models.User{}, errors.Wrap(err, "inserting user")
	}
	return u.toModel(), nil
}

func (r *Users) GetByID(id string) (models.User, error) {
	var u User
	if err := r.db.Where("id = ?", id).First(&u).Error; err != nil {
		return models.User{}, notFound(err, "finding user")
	}
	return u.toModel(), nil
}

// GetByUsername also returns the stored password hash for login.
func (r *Users) GetByUsername(username string) (models.User, string, error) {
	var u User
	if err := r.db.Where("username = ?", username).First(&u).Error; err != nil {
		return models.User{}, "", notFound(err, "finding user")
	}
	return u.toModel(), u.PasswordHash, nil
}

func (r *Users) GetByEmail(email string) (models.User, error) {
	var u User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		return models.User{}, notFound(err, "finding user")
	}
	return u.toModel(), nil
}

func (r *Users) List() ([]models.User, error) {
	var rows []User
	if err := r.db.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	out := make([]models.User, len(rows))
	for i, u := range rows {
		out[i] = u.toModel()
	}
	return out, nil
}

func (r *Users) SetRole(id, role string) error {
	return r.update(id, "role", role)
}

func (r *Users) SetActive(id string, active bool) error {
	return r.update(id, "is_active", active)
}

func (r *Users) SetPassword(id, passwordHash string) error {
	return r.update(id, "password_hash", passwordHash)
}

func (r *Users) update(id, column string, value interface{}) error {
	res := r.db.Model(&User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "updating user %s", column)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
