package models

type Label struct {
	ID          string `json:"id"`
	DatasetID   string `json:"datasetId"`
	LabelName   string `json:"labelName"`
	Description string `json:"description,omitempty"`
}

type LabelInput struct {
	LabelName   string `json:"labelName"`
	Description string `json:"description"`
}

// LabelPatch is a partial label update.
type LabelPatch struct {
	LabelName   *string `json:"labelName"`
	Description *string `json:"description"`
}

func (p LabelPatch) Apply(l *Label) {
	if p.LabelName != nil {
		l.LabelName = *p.LabelName
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
}

func (p LabelPatch) Empty() bool {
	return p.LabelName == nil && p.Description == nil
}
