package guest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

func TestLabels(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	const g = "guest_lbl"

	car := st.CreateLabel(g, "ds_a", models.LabelInput{LabelName: "car", Description: "any vehicle"})
	person := st.CreateLabel(g, "ds_a", models.LabelInput{LabelName: "person"})
	tree := st.CreateLabel(g, "ds_b", models.LabelInput{LabelName: "tree"})
	assert.True(t, strings.HasPrefix(car, "guest_label_"))

	t.Run("list is session wide", func(t *testing.T) {
		all := st.ListLabels(g)
		require.Len(t, all, 3)
		assert.Equal(t, []string{car, person, tree}, []string{all[0].ID, all[1].ID, all[2].ID})
		assert.Len(t, st.ListDatasetLabels(g, "ds_a"), 2)
	})

	t.Run("get and patch", func(t *testing.T) {
		l := st.GetLabel(g, car)
		require.NotNil(t, l)
		assert.Equal(t, "ds_a", l.DatasetID)
		assert.Equal(t, "any vehicle", l.Description)

		name := "vehicle"
		require.True(t, st.UpdateLabel(g, car, models.LabelPatch{LabelName: &name}))
		l = st.GetLabel(g, car)
		assert.Equal(t, "vehicle", l.LabelName)
		assert.Equal(t, "any vehicle", l.Description)

		assert.False(t, st.UpdateLabel(g, "guest_label_missing", models.LabelPatch{LabelName: &name}))
		assert.Nil(t, st.GetLabel(g, "guest_label_missing"))
	})

	t.Run("delete", func(t *testing.T) {
		assert.True(t, st.DeleteLabel(g, person))
		assert.False(t, st.DeleteLabel(g, person))
		assert.Len(t, st.ListLabels(g), 2)
	})

	t.Run("purge by dataset", func(t *testing.T) {
		assert.True(t, st.DeleteDatasetLabels(g, "ds_a"))
		assert.False(t, st.DeleteDatasetLabels(g, "ds_a"))

		all := st.ListLabels(g)
		require.Len(t, all, 1)
		assert.Equal(t, tree, all[0].ID)
	})
}

func TestIdentity(t *testing.T) {
	u := NewIdentity()
	assert.True(t, IsGuestID(u.ID))
	assert.Len(t, u.ID, len("guest_")+12)
	assert.Equal(t, "Guest_"+u.ID[len(u.ID)-6:], u.Username)
	assert.Equal(t, u.ID+"@guest.local", u.Email)
	assert.Equal(t, models.RoleAnnotator, u.Role)
	assert.True(t, u.IsGuest)

	assert.NotEqual(t, u.ID, NewIdentity().ID)
	assert.Equal(t, u, IdentityFor(u.ID))
	assert.False(t, IsGuestID("guest_"))
	assert.False(t, IsGuestID("4f1c2a"))
}
