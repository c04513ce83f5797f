// Package models holds the response shapes shared by the guest session store
// and the persistent repositories. Handlers serialize these directly, so the
// two backends stay interchangeable field for field.
package models

import "time"

// Dataset statuses.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Dataset struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	CreatedBy            string     `json:"createdBy"`
	Status               string     `json:"status"`
	TotalImages          int        `json:"total_Images"`
	CompletedImages      int        `json:"completed_Images"`
	Locked               bool       `json:"locked"`
	AssignedTo           []string   `json:"assignedTo"`
	DateOfCollection     *time.Time `json:"date_of_collection,omitempty"`
	LocationOfCollection string     `json:"location_of_collection,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	IsActive             bool       `json:"is_active"`

	// IsDeleted is only ever set on guest datasets.
	IsDeleted bool `json:"is_deleted,omitempty"`
}

// Clone returns a copy that shares no slices with d. AssignedTo is never nil
// so an empty list encodes as [] like the persistent rows do.
func (d Dataset) Clone() Dataset {
	d.AssignedTo = append([]string{}, d.AssignedTo...)
	if d.DateOfCollection != nil {
		t := *d.DateOfCollection
		d.DateOfCollection = &t
	}
	return d
}

// DatasetInput carries the caller-supplied fields of a new dataset.
type DatasetInput struct {
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Status               string     `json:"status"`
	AssignedTo           []string   `json:"assignedTo"`
	DateOfCollection     *time.Time `json:"date_of_collection"`
	LocationOfCollection string     `json:"location_of_collection"`
}

// DatasetPatch is a partial update. Nil fields are left untouched.
// total_Images is derived from the stored images and cannot be patched.
type DatasetPatch struct {
	Name                 *string    `json:"name"`
	Description          *string    `json:"description"`
	Status               *string    `json:"status"`
	CompletedImages      *int       `json:"completed_Images"`
	Locked               *bool      `json:"locked"`
	AssignedTo           *[]string  `json:"assignedTo"`
	DateOfCollection     *time.Time `json:"date_of_collection"`
	LocationOfCollection *string    `json:"location_of_collection"`
	IsActive             *bool      `json:"is_active"`
}

// Apply copies every present field of p onto d.
func (p DatasetPatch) Apply(d *Dataset) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.CompletedImages != nil {
		d.CompletedImages = *p.CompletedImages
	}
	if p.Locked != nil {
		d.Locked = *p.Locked
	}
	if p.AssignedTo != nil {
		d.AssignedTo = append([]string{}, (*p.AssignedTo)...)
	}
	if p.DateOfCollection != nil {
		t := *p.DateOfCollection
		d.DateOfCollection = &t
	}
	if p.LocationOfCollection != nil {
		d.LocationOfCollection = *p.LocationOfCollection
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
}

// Empty reports whether the patch carries no fields.
func (p DatasetPatch) Empty() bool {
	return p == DatasetPatch{}
}
