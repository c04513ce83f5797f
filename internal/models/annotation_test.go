package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationUnmarshal(t *testing.T) {
	t.Run("decodes geometry by type tag", func(t *testing.T) {
		payload := `[
			{"id":"a","label":"cat","type":"bbox","geometry":{"x":1,"y":2,"width":3,"height":4}},
			{"id":"b","type":"polygon","geometry":{"points":[[0,0],[1,0],[1,1]]}},
			{"id":"c","type":"ellipse","geometry":{"cx":5,"cy":5,"rx":2,"ry":1}},
			{"id":"d","type":"freehand","geometry":{"path":[[0,0],[2,2]]}},
			{"id":"e","type":"mask","geometry":{"maskPath":"M0 0 L1 1"}}
		]`

		var shapes []Annotation
		require.NoError(t, json.Unmarshal([]byte(payload), &shapes))
		require.Len(t, shapes, 5)

		assert.Equal(t, BBox{X: 1, Y: 2, Width: 3, Height: 4}, shapes[0].Geometry)
		require.NotNil(t, shapes[0].Label)
		assert.Equal(t, "cat", *shapes[0].Label)
		assert.Equal(t, Polygon{Points: []Point{{0, 0}, {1, 0}, {1, 1}}}, shapes[1].Geometry)
		assert.Equal(t, Ellipse{CX: 5, CY: 5, RX: 2, RY: 1}, shapes[2].Geometry)
		assert.Equal(t, Freehand{Path: []Point{{0, 0}, {2, 2}}}, shapes[3].Geometry)
		assert.Equal(t, Mask{MaskPath: "M0 0 L1 1"}, shapes[4].Geometry)

		for _, s := range shapes {
			assert.NoError(t, s.Validate())
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		var a Annotation
		err := json.Unmarshal([]byte(`{"id":"x","type":"circle","geometry":{}}`), &a)
		assert.Error(t, err)
	})

	t.Run("encodes geometry inline", func(t *testing.T) {
		a := Annotation{ID: "x", Type: ShapeBBox, Geometry: BBox{Width: 10, Height: 5}}
		b, err := json.Marshal(a)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"x","label":null,"type":"bbox","geometry":{"x":0,"y":0,"width":10,"height":5}}`, string(b))
	})
}

func TestAnnotationValidate(t *testing.T) {
	a := Annotation{ID: "x", Type: ShapePolygon, Geometry: BBox{}}
	assert.Error(t, a.Validate())

	a = Annotation{ID: "x", Type: ShapeBBox}
	assert.Error(t, a.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	label := "road"
	doc := ImageAnnotations{
		ID:      "doc",
		ImageID: "img",
		Annotations: []Annotation{
			{ID: "p", Label: &label, Type: ShapePolygon, Geometry: Polygon{Points: []Point{{1, 1}}}},
		},
	}

	cp := doc.Clone()
	*cp.Annotations[0].Label = "river"
	cp.Annotations[0].Geometry.(Polygon).Points[0] = Point{9, 9}

	assert.Equal(t, "road", *doc.Annotations[0].Label)
	assert.Equal(t, Point{1, 1}, doc.Annotations[0].Geometry.(Polygon).Points[0])
}

func TestDatasetPatchApply(t *testing.T) {
	d := Dataset{Name: "old", Description: "keep", Status: StatusNotStarted}
	name := "new"
	locked := true
	DatasetPatch{Name: &name, Locked: &locked}.Apply(&d)

	assert.Equal(t, "new", d.Name)
	assert.Equal(t, "keep", d.Description)
	assert.Equal(t, StatusNotStarted, d.Status)
	assert.True(t, d.Locked)
	assert.True(t, DatasetPatch{}.Empty())
}
