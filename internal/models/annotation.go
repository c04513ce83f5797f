package models

import (
	"encoding/json"
	"fmt"
)

// ShapeType discriminates the geometry carried by an Annotation.
type ShapeType string

const (
	ShapeBBox     ShapeType = "bbox"
	ShapePolygon  ShapeType = "polygon"
	ShapeEllipse  ShapeType = "ellipse"
	ShapeFreehand ShapeType = "freehand"
	ShapeMask     ShapeType = "mask"
)

// Point is an [x, y] pair.
type Point [2]float64

// Geometry is implemented by every concrete shape geometry.
type Geometry interface {
	Kind() ShapeType
	clone() Geometry
}

type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Polygon struct {
	Points []Point `json:"points"`
}

type Ellipse struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
}

type Freehand struct {
	Path []Point `json:"path"`
}

// Mask holds an opaque path string, typically SVG path data.
type Mask struct {
	MaskPath string `json:"maskPath"`
}

func (BBox) Kind() ShapeType     { return ShapeBBox }
func (Polygon) Kind() ShapeType  { return ShapePolygon }
func (Ellipse) Kind() ShapeType  { return ShapeEllipse }
func (Freehand) Kind() ShapeType { return ShapeFreehand }
func (Mask) Kind() ShapeType     { return ShapeMask }

func (g BBox) clone() Geometry    { return g }
func (g Ellipse) clone() Geometry { return g }
func (g Mask) clone() Geometry    { return g }
func (g Polygon) clone() Geometry {
	return Polygon{Points: append([]Point(nil), g.Points...)}
}
func (g Freehand) clone() Geometry {
	return Freehand{Path: append([]Point(nil), g.Path...)}
}

// Annotation is a single shape drawn on an image.
type Annotation struct {
	ID       string    `json:"id"`
	Label    *string   `json:"label"`
	Type     ShapeType `json:"type"`
	Geometry Geometry  `json:"geometry"`
}

// UnmarshalJSON decodes the geometry according to the type tag.
func (a *Annotation) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Label    *string         `json:"label"`
		Type     ShapeType       `json:"type"`
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var g Geometry
	switch raw.Type {
	case ShapeBBox:
		g = &BBox{}
	case ShapePolygon:
		g = &Polygon{}
	case ShapeEllipse:
		g = &Ellipse{}
	case ShapeFreehand:
		g = &Freehand{}
	case ShapeMask:
		g = &Mask{}
	default:
		return fmt.Errorf("unknown annotation type %q", raw.Type)
	}

	if len(raw.Geometry) > 0 && string(raw.Geometry) != "null" {
		if err := json.Unmarshal(raw.Geometry, g); err != nil {
			return fmt.Errorf("invalid %s geometry: %w", raw.Type, err)
		}
	}

	a.ID = raw.ID
	a.Label = raw.Label
	a.Type = raw.Type
	a.Geometry = deref(g)
	return nil
}

func deref(g Geometry) Geometry {
	switch v := g.(type) {
	case *BBox:
		return *v
	case *Polygon:
		return *v
	case *Ellipse:
		return *v
	case *Freehand:
		return *v
	case *Mask:
		return *v
	}
	return g
}

// Validate checks that the geometry matches the type tag.
func (a Annotation) Validate() error {
	if a.Geometry == nil {
		return fmt.Errorf("annotation %q has no geometry", a.ID)
	}
	if a.Geometry.Kind() != a.Type {
		return fmt.Errorf("annotation %q: type %q does not match %s geometry", a.ID, a.Type, a.Geometry.Kind())
	}
	return nil
}

// Clone returns a deep copy of a.
func (a Annotation) Clone() Annotation {
	if a.Label != nil {
		l := *a.Label
		a.Label = &l
	}
	if a.Geometry != nil {
		a.Geometry = a.Geometry.clone()
	}
	return a
}

// ImageAnnotations is the single annotation document of one image.
type ImageAnnotations struct {
	ID          string       `json:"id"`
	ImageID     string       `json:"imageId"`
	Annotations []Annotation `json:"annotations"`
}

func (d ImageAnnotations) Clone() ImageAnnotations {
	d.Annotations = CloneAnnotations(d.Annotations)
	return d
}

// CloneAnnotations deep-copies a shape list. A nil input yields an empty list.
func CloneAnnotations(in []Annotation) []Annotation {
	out := make([]Annotation, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
