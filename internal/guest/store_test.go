package guest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
)

func newTestStore(t *testing.T, opts Options) (*Store, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	opts.Clock = clk
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Minute
	}
	return NewStore(opts), clk
}

func pngFile(t *testing.T, name string, w, h int) models.UploadFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return models.UploadFile{Filename: name, ContentType: "image/png", Data: buf.Bytes()}
}

func TestNewStoreDefaults(t *testing.T) {
	st := NewStore(Options{})
	assert.Equal(t, DefaultTimeout, st.timeout)
	assert.Equal(t, DefaultReapInterval, st.reapInterval)
	assert.Equal(t, CascadeRules{}, st.cascade)
	assert.NotNil(t, st.clock)
}

func TestIsolation(t *testing.T) {
	st, _ := newTestStore(t, Options{})

	dsA := st.CreateDataset("guest_a", models.DatasetInput{Name: "a"})
	_, err := st.AddImages("guest_a", dsA, []models.UploadFile{pngFile(t, "a.png", 2, 2)})
	require.NoError(t, err)
	st.CreateLabel("guest_a", dsA, models.LabelInput{LabelName: "car"})

	assert.Empty(t, st.ListDatasets("guest_b"))
	assert.Nil(t, st.GetDataset("guest_b", dsA))
	assert.Empty(t, st.ListImages("guest_b", dsA))
	assert.Empty(t, st.ListLabels("guest_b"))
	assert.Empty(t, st.ListAnnotationDocs("guest_b"))
	assert.False(t, st.DeleteDataset("guest_b", dsA))

	assert.Len(t, st.ListDatasets("guest_a"), 1)
	assert.Len(t, st.ListImages("guest_a", dsA), 1)
}

func TestLazyCreation(t *testing.T) {
	st, clk := newTestStore(t, Options{})

	assert.False(t, st.HasSession("guest_new"))
	assert.Equal(t, []models.Dataset{}, st.ListDatasets("guest_new"))
	assert.True(t, st.HasSession("guest_new"))

	info := st.SessionInfo("guest_new")
	assert.Equal(t, "guest_new", info.GuestID)
	assert.Equal(t, clk.Now(), info.CreatedAt)
	assert.Zero(t, info.DatasetsCount)
	assert.Zero(t, info.ImagesCount)
	assert.Zero(t, info.AnnotationsCount)
	assert.Zero(t, info.LabelsCount)
	assert.Zero(t, info.RemarksCount)
}

func TestAccessRefresh(t *testing.T) {
	st, clk := newTestStore(t, Options{Timeout: time.Hour})
	start := clk.Now()

	st.Touch("guest_g")

	clk.Advance(50 * time.Minute)
	st.GetDataset("guest_g", "missing")
	info := st.SessionInfo("guest_g")
	assert.Equal(t, start, info.CreatedAt)
	assert.Equal(t, start.Add(50*time.Minute), info.LastAccessedAt)

	// Exactly at the timeout the session is still kept.
	clk.Advance(time.Hour)
	assert.Equal(t, 0, st.Sweep())
	assert.True(t, st.HasSession("guest_g"))

	clk.Advance(time.Second)
	assert.Equal(t, 1, st.Sweep())
	assert.False(t, st.HasSession("guest_g"))
}

func TestExpiredButNotReapedStillServes(t *testing.T) {
	st, clk := newTestStore(t, Options{Timeout: time.Minute})
	id := st.CreateDataset("guest_g", models.DatasetInput{Name: "kept"})

	clk.Advance(time.Hour)
	require.NotNil(t, st.GetDataset("guest_g", id))

	// The read refreshed the session, so the sweep leaves it alone.
	assert.Equal(t, 0, st.Sweep())
	assert.True(t, st.HasSession("guest_g"))
}

func TestExpiryScenario(t *testing.T) {
	st, clk := newTestStore(t, Options{})
	ds := st.CreateDataset("guest_old", models.DatasetInput{Name: "gone"})
	_, err := st.AddImages("guest_old", ds, []models.UploadFile{pngFile(t, "x.png", 3, 3)})
	require.NoError(t, err)
	st.Touch("guest_fresh")

	clk.Advance(121 * time.Minute)
	st.Touch("guest_fresh")

	assert.Equal(t, 1, st.Sweep())
	assert.False(t, st.HasSession("guest_old"))
	assert.True(t, st.HasSession("guest_fresh"))

	assert.Empty(t, st.ListDatasets("guest_old"))
	info := st.SessionInfo("guest_old")
	assert.Equal(t, clk.Now(), info.CreatedAt)
	assert.Zero(t, info.ImagesCount)

	stats := st.Stats()
	assert.Equal(t, uint64(1), stats.Reaped)
	assert.Equal(t, int64(0), stats.Images)
	assert.Equal(t, int64(0), stats.Bytes)
}

func TestClearSession(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	ds := st.CreateDataset("guest_c", models.DatasetInput{Name: "d"})
	_, err := st.AddImages("guest_c", ds, []models.UploadFile{pngFile(t, "a.png", 1, 1)})
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Stats().Images)

	st.ClearSession("guest_c")
	assert.False(t, st.HasSession("guest_c"))
	assert.Equal(t, Stats{}, st.Stats())

	// Clearing twice is harmless.
	st.ClearSession("guest_c")
}

func TestReaperLoop(t *testing.T) {
	st, clk := newTestStore(t, Options{
		Timeout:      time.Minute,
		ReapInterval: 5 * time.Millisecond,
	})

	var calls atomic.Int32
	st.onReap = func(int) {
		if calls.Add(1) == 1 {
			panic("first sweep callback fails")
		}
	}

	st.Touch("guest_one")
	clk.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st.Start(ctx)
	st.Start(ctx)

	assert.Eventually(t, func() bool { return !st.HasSession("guest_one") }, time.Second, 5*time.Millisecond)

	// The loop survived the panic and keeps reclaiming.
	st.Touch("guest_two")
	clk.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return !st.HasSession("guest_two") }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))

	st.Stop()
	st.Stop()
}

func TestReaperStopsWithContext(t *testing.T) {
	st, _ := newTestStore(t, Options{ReapInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	st.Start(ctx)
	done := st.done
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not exit after cancel")
	}
	st.Stop()
}

func TestConcurrentUploadsKeepCounter(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	ds := st.CreateDataset("guest_p", models.DatasetInput{Name: "parallel"})

	const workers = 8
	batch := []models.UploadFile{pngFile(t, "a.png", 2, 2), pngFile(t, "b.png", 2, 2)}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.AddImages("guest_p", ds, batch)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got := st.GetDataset("guest_p", ds)
	require.NotNil(t, got)
	assert.Equal(t, workers*2, got.TotalImages)
	assert.Len(t, st.ListImages("guest_p", ds), workers*2)
	assert.Len(t, st.ListAnnotationDocs("guest_p"), workers*2)
}

func TestConcurrentSweepAndAccess(t *testing.T) {
	st, clk := newTestStore(t, Options{Timeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := st.CreateDataset("guest_race", models.DatasetInput{Name: "n"})
				st.GetDataset("guest_race", id)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				clk.Advance(time.Second)
				st.Sweep()
			}
		}()
	}
	wg.Wait()

	// Whatever survived is internally consistent.
	info := st.SessionInfo("guest_race")
	assert.Equal(t, info.DatasetsCount, len(st.ListDatasets("guest_race")))
}

func TestGuestLifecycleScenario(t *testing.T) {
	st, _ := newTestStore(t, Options{})
	const g = "guest_abc"

	st.Touch(g)
	ds := st.CreateDataset(g, models.DatasetInput{Name: "street scenes"})

	imgs, err := st.AddImages(g, ds, []models.UploadFile{pngFile(t, "1.png", 4, 3), pngFile(t, "2.png", 8, 6)})
	require.NoError(t, err)
	require.Len(t, imgs, 2)

	assert.Len(t, st.ListImages(g, ds), 2)
	assert.Equal(t, 2, st.GetDataset(g, ds).TotalImages)

	require.True(t, st.DeleteImage(g, ds, imgs[0].ID))
	assert.Len(t, st.ListImages(g, ds), 1)
	assert.Nil(t, st.GetAnnotations(g, imgs[0].ID))
	assert.NotNil(t, st.GetAnnotations(g, imgs[1].ID))

	st.ClearSession(g)
	assert.Empty(t, st.ListDatasets(g))
	assert.Nil(t, st.GetDataset(g, ds))
	assert.Empty(t, st.ListImages(g, ds))
}
