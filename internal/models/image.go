package models

import "time"

// Image is the metadata record of an uploaded image. Guest images keep their
// bytes inside the session store; registered images live in object storage
// under ObjectKey.
type Image struct {
	ID          string    `json:"id"`
	DatasetID   string    `json:"datasetId"`
	FileName    string    `json:"fileName"`
	FolderPath  string    `json:"folderPath,omitempty"`
	ObjectKey   string    `json:"objectKey,omitempty"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FileSize    int64     `json:"fileSize"`
	FileType    string    `json:"fileType"`
	ContentType string    `json:"contentType"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsActive    bool      `json:"is_active"`
}

// UploadFile is one file of a multipart upload, already read into memory.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
