package database

import (
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;type:text"`
	Email        string `gorm:"index;type:text"`
	PasswordHash string
	Role         string `gorm:"type:text"`
	IsActive     bool
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (u User) toModel() models.User {
	return models.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

type Dataset struct {
	ID                   string `gorm:"primaryKey;type:text"`
	Name                 string
	Description          string
	CreatedBy            string `gorm:"index;type:text"`
	Status               string
	TotalImages          int
	CompletedImages      int
	Locked               bool
	AssignedTo           []string `gorm:"serializer:json"`
	DateOfCollection     *time.Time
	LocationOfCollection string
	IsActive             bool      `gorm:"index"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (d Dataset) toModel() models.Dataset {
	out := models.Dataset{
		ID:                   d.ID,
		Name:                 d.Name,
		Description:          d.Description,
		CreatedBy:            d.CreatedBy,
		Status:               d.Status,
		TotalImages:          d.TotalImages,
		CompletedImages:      d.CompletedImages,
		Locked:               d.Locked,
		AssignedTo:           d.AssignedTo,
		DateOfCollection:     d.DateOfCollection,
		LocationOfCollection: d.LocationOfCollection,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
		IsActive:             d.IsActive,
	}
	if out.AssignedTo == nil {
		out.AssignedTo = []string{}
	}
	return out
}

func (d *Dataset) fromModel(m models.Dataset) {
	d.Name = m.Name
	d.Description = m.Description
	d.Status = m.Status
	d.CompletedImages = m.CompletedImages
	d.Locked = m.Locked
	d.AssignedTo = m.AssignedTo
	d.DateOfCollection = m.DateOfCollection
	d.LocationOfCollection = m.LocationOfCollection
	d.IsActive = m.IsActive
}

type Image struct {
	ID          string `gorm:"primaryKey;type:text"`
	DatasetID   string `gorm:"type:text"`
	FileName    string
	FolderPath  string
	ObjectKey   string `gorm:"type:text"`
	Width       int
	Height      int
	FileSize    int64
	FileType    string
	ContentType string
	CreatedBy   string `gorm:"type:text"`
	IsActive    bool
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (i Image) toModel() models.Image {
	return models.Image{
		ID:          i.ID,
		DatasetID:   i.DatasetID,
		FileName:    i.FileName,
		FolderPath:  i.FolderPath,
		ObjectKey:   i.ObjectKey,
		Width:       i.Width,
		Height:      i.Height,
		FileSize:    i.FileSize,
		FileType:    i.FileType,
		ContentType: i.ContentType,
		CreatedBy:   i.CreatedBy,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		IsActive:    i.IsActive,
	}
}

// AnnotationDoc stores the shape list of one image as JSON text.
type AnnotationDoc struct {
	ID          string              `gorm:"primaryKey;type:text"`
	ImageID     string              `gorm:"uniqueIndex;type:text"`
	Annotations []models.Annotation `gorm:"serializer:json"`
	CreatedAt   time.Time           `gorm:"autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime"`
}

func (AnnotationDoc) TableName() string { return "image_annotations" }

func (a AnnotationDoc) toModel() models.ImageAnnotations {
	return models.ImageAnnotations{
		ID:          a.ID,
		ImageID:     a.ImageID,
		Annotations: models.CloneAnnotations(a.Annotations),
	}
}

type Label struct {
	ID          string `gorm:"primaryKey;type:text"`
	DatasetID   string `gorm:"index;type:text"`
	LabelName   string
	Description string
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (l Label) toModel() models.Label {
	return models.Label{
		ID:          l.ID,
		DatasetID:   l.DatasetID,
		LabelName:   l.LabelName,
		Description: l.Description,
	}
}

type Remark struct {
	ID           string `gorm:"primaryKey;type:text"`
	AnnotationID string `gorm:"type:text"`
	ImageID      string `gorm:"index;type:text"`
	DatasetID    string `gorm:"type:text"`
	Message      string
	Status       bool
	Reply        *string
	CreatedBy    string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (r Remark) toModel() models.Remark {
	return models.Remark{
		ID:           r.ID,
		AnnotationID: r.AnnotationID,
		ImageID:      r.ImageID,
		DatasetID:    r.DatasetID,
		Message:      r.Message,
		Status:       r.Status,
		Reply:        r.Reply,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type AuditLog struct {
	ID        string `gorm:"primaryKey;type:text"`
	UserID    string `gorm:"index;type:text"`
	Action    string
	Details   string
	Timestamp time.Time
}

func (a AuditLog) toModel() models.AuditLog {
	return models.AuditLog{
		ID:        a.ID,
		UserID:    a.UserID,
		Action:    a.Action,
		Timestamp: a.Timestamp,
		Details:   a.Details,
	}
}

// PasswordReset is a single-use token mailed to a user.
type PasswordReset struct {
	Token     string `gorm:"primaryKey;type:text"`
	UserID    string `gorm:"index;type:text"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
