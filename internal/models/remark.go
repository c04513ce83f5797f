package models

import "time"

// Remark is reviewer feedback attached to an annotation shape.
type Remark struct {
	ID           string    `json:"id"`
	AnnotationID string    `json:"annotationId"`
	ImageID      string    `json:"imageId"`
	DatasetID    string    `json:"datasetId"`
	Message      string    `json:"message"`
	Status       bool      `json:"status"`
	Reply        *string   `json:"reply"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RemarkInput struct {
	AnnotationID string `json:"annotationId"`
	ImageID      string `json:"imageId"`
	DatasetID    string `json:"datasetId"`
	Message      string `json:"message"`
}

type RemarkPatch struct {
	Message *string `json:"message"`
	Status  *bool   `json:"status"`
	Reply   *string `json:"reply"`
}

func (p RemarkPatch) Apply(r *Remark) {
	if p.Message != nil {
		r.Message = *p.Message
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Reply != nil {
		reply := *p.Reply
		r.Reply = &reply
	}
}
