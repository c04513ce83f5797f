package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/config"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/database"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/mailer"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/storage"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/cache"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
)

type sentMail struct {
	kind string
	to   string
	data any
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(kind, to string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind, to, data})
	return nil
}

type testEnv struct {
	srv     *Server
	h       http.Handler
	store   *guest.Store
	objects *storage.Memory
	mail    *recordingMailer
	clock   *clock.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	failedLoginDelay = 0

	db, err := database.Open(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	clk := clock.NewMock()
	store := guest.NewStore(guest.Options{Timeout: time.Hour, Clock: clk})
	objects := storage.NewMemory(15 * time.Minute)
	mail := &recordingMailer{}

	cfg := &config.Config{}
	cfg.App.Name = "Annotator"
	cfg.App.Version = "test"
	cfg.Security.CorsOrigins = []string{"http://localhost:5173"}

	srv := NewServer(Deps{
		Config:  cfg,
		Guest:   store,
		Repos:   database.NewRepos(db, clk),
		Tokens:  auth.NewTokens([]byte("test-secret"), time.Hour, time.Hour, clk),
		Storage: objects,
		Mailer:  mail,
		Cache:   cache.New(cache.Options{Enabled: true, MaxSizeMB: 8, TTL: time.Minute}),
		Clock:   clk,
	})

	return &testEnv{srv: srv, h: srv.Handler(nil), store: store, objects: objects, mail: mail, clock: clk}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) guestToken(t *testing.T) (string, models.User) {
	t.Helper()
	rec := e.do(t, "POST", "/auth/guest-login", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[TokenResponse](t, rec)
	return resp.AccessToken, resp.User
}

func (e *testEnv) userToken(t *testing.T, username, role string) (string, models.User) {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	_, err = e.srv.Repos.Users.Create(username, username+"@example.com", hash, role)
	require.NoError(t, err)

	rec := e.do(t, "POST", "/auth/login", "", LoginRequest{Username: username, Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[TokenResponse](t, rec)
	return resp.AccessToken, resp.User
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (e *testEnv) upload(t *testing.T, token, datasetID string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile(UploadFormField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/datasets/"+datasetID+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, "GET", "/datasets", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, "GET", "/datasets", "not-a-token", nil).Code)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	token, u := e.userToken(t, "alice", models.RoleAnnotator)
	assert.NotEmpty(t, token)
	assert.False(t, u.IsGuest)

	rec := e.do(t, "POST", "/auth/login", "", LoginRequest{Username: "alice", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, "GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeBody[models.User](t, rec).Username)

	logs, err := e.srv.Repos.Audit.List(10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "login", logs[0].Action)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	e := newTestEnv(t)
	_, u := e.userToken(t, "bob", models.RoleAnnotator)
	require.NoError(t, e.srv.Repos.Users.SetActive(u.ID, false))

	rec := e.do(t, "POST", "/auth/login", "", LoginRequest{Username: "bob", Password: "correct-horse"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuestLoginAndLogout(t *testing.T) {
	e := newTestEnv(t)
	token, u := e.guestToken(t)
	assert.True(t, u.IsGuest)
	assert.True(t, guest.IsGuestID(u.ID))
	assert.Equal(t, models.RoleAnnotator, u.Role)
	assert.True(t, e.store.HasSession(u.ID))

	rec := e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "cats"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, "POST", "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, e.store.HasSession(u.ID))
}

func TestDatasetShapeMatchesAcrossBackends(t *testing.T) {
	e := newTestEnv(t)
	guestTok, _ := e.guestToken(t)
	userTok, _ := e.userToken(t, "carol", models.RoleAnnotator)

	create := func(token string) map[string]any {
		rec := e.do(t, "POST", "/datasets", token, map[string]any{"name": "streets"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decodeBody[map[string]any](t, rec)
		delete(body, "id")
		delete(body, "createdBy")
		return body
	}

	fromGuest := create(guestTok)
	fromUser := create(userTok)

	assert.Equal(t, []any{}, fromGuest["assignedTo"])
	assert.Equal(t, fromUser, fromGuest)

	rec := e.do(t, "GET", "/datasets", guestTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"assignedTo":[]`)
}

func TestGuestDatasetLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token, u := e.guestToken(t)

	rec := e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "birds"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ds := decodeBody[models.Dataset](t, rec)
	assert.True(t, strings.HasPrefix(ds.ID, "guest_dataset_"))
	assert.Equal(t, u.ID, ds.CreatedBy)
	assert.Equal(t, models.StatusNotStarted, ds.Status)

	status := models.StatusInProgress
	rec = e.do(t, "PATCH", "/datasets/"+ds.ID, token, models.DatasetPatch{Status: &status})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusInProgress, decodeBody[models.Dataset](t, rec).Status)

	bad := "archived"
	rec = e.do(t, "PATCH", "/datasets/"+ds.ID, token, models.DatasetPatch{Status: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "GET", "/datasets", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Dataset](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/datasets/"+ds.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/datasets/"+ds.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/datasets/"+ds.ID, token, nil).Code)
}

func TestGuestsAreIsolated(t *testing.T) {
	e := newTestEnv(t)
	alice, _ := e.guestToken(t)
	bob, _ := e.guestToken(t)

	rec := e.do(t, "POST", "/datasets", alice, models.DatasetInput{Name: "private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ds := decodeBody[models.Dataset](t, rec)

	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/datasets/"+ds.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/datasets/"+ds.ID, bob, nil).Code)

	rec = e.do(t, "GET", "/datasets", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]models.Dataset](t, rec))
}

func TestGuestImagesAndAnnotations(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.guestToken(t)

	rec := e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "shapes"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ds := decodeBody[models.Dataset](t, rec)

	rec = e.upload(t, token, "missing", map[string][]byte{"a.png": pngBytes(t, 4, 3)})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.upload(t, token, ds.ID, map[string][]byte{
		"a.png": pngBytes(t, 4, 3),
		"b.png": pngBytes(t, 8, 6),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	images := decodeBody[[]models.Image](t, rec)
	require.Len(t, images, 2)

	rec = e.do(t, "GET", "/datasets/"+ds.ID, token, nil)
	assert.Equal(t, 2, decodeBody[models.Dataset](t, rec).TotalImages)

	img := images[0]

	// Content is served from memory with an ETag.
	rec = e.do(t, "GET", "/images/"+img.ID+"/content", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/images/"+img.ID+"/content", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = e.do(t, "GET", "/images/"+img.ID+"/thumbnail?size=2&mode=square", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	// Uploads create an empty document per image.
	rec = e.do(t, "GET", "/images/"+img.ID+"/annotations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[models.ImageAnnotations](t, rec).Annotations)

	rec = e.do(t, "POST", "/images/"+img.ID+"/annotations", token, map[string]any{"annotations": []any{}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	shapes := map[string]any{"annotations": []any{
		map[string]any{"type": "bbox", "geometry": map[string]any{"x": 1, "y": 1, "width": 2, "height": 1}},
		map[string]any{"type": "polygon", "geometry": map[string]any{"points": [][]float64{{0, 0}, {1, 0}, {1, 1}}}},
	}}
	rec = e.do(t, "PUT", "/images/"+img.ID+"/annotations", token, shapes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decodeBody[models.ImageAnnotations](t, rec)
	require.Len(t, doc.Annotations, 2)
	assert.NotEmpty(t, doc.Annotations[0].ID)

	rec = e.do(t, "POST", "/images/"+img.ID+"/annotations/shapes", token,
		map[string]any{"type": "ellipse", "geometry": map[string]any{"cx": 2, "cy": 2, "rx": 1, "ry": 1}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shape := decodeBody[models.Annotation](t, rec)

	rec = e.do(t, "POST", "/images/unknown/annotations/shapes", token,
		map[string]any{"type": "mask", "geometry": map[string]any{"maskPath": "M0 0"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/images/"+img.ID+"/annotations/shapes/"+shape.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/images/"+img.ID+"/annotations/shapes/"+shape.ID, token, nil).Code)

	rec = e.do(t, "GET", "/annotations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.ImageAnnotations](t, rec), 2)

	// Bulk delete skips ids that are not in the dataset.
	rec = e.do(t, "DELETE", "/datasets/"+ds.ID+"/images", token, map[string]any{"ids": []string{img.ID, "nope"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[map[string]int](t, rec)["deleted"])

	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/images/"+img.ID+"/annotations", token, nil).Code)
	rec = e.do(t, "GET", "/datasets/"+ds.ID, token, nil)
	assert.Equal(t, 1, decodeBody[models.Dataset](t, rec).TotalImages)

	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/datasets/"+ds.ID+"/images/"+images[1].ID, token, nil).Code)
	rec = e.do(t, "GET", "/datasets/"+ds.ID+"/images", token, nil)
	assert.Empty(t, decodeBody[[]models.Image](t, rec))
}

func TestGuestAnnotationValidation(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.guestToken(t)

	rec := e.do(t, "PUT", "/images/x/annotations", token, map[string]any{"annotations": []any{
		map[string]any{"type": "hexagon", "geometry": map[string]any{}},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "PUT", "/images/x/annotations", token, map[string]any{"annotations": []any{
		map[string]any{"type": "polygon", "geometry": map[string]any{"points": "nope"}},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestLabels(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.guestToken(t)

	rec := e.do(t, "POST", "/datasets/missing/labels", token, models.LabelInput{LabelName: "cat"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "pets"})
	ds := decodeBody[models.Dataset](t, rec)

	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/labels", token, models.LabelInput{LabelName: "cat"})
	require.Equal(t, http.StatusCreated, rec.Code)
	label := decodeBody[models.Label](t, rec)
	assert.True(t, strings.HasPrefix(label.ID, "guest_label_"))

	name := "kitten"
	rec = e.do(t, "PATCH", "/labels/"+label.ID, token, models.LabelPatch{LabelName: &name})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kitten", decodeBody[models.Label](t, rec).LabelName)

	rec = e.do(t, "GET", "/labels", token, nil)
	assert.Len(t, decodeBody[[]models.Label](t, rec), 1)
	rec = e.do(t, "GET", "/datasets/"+ds.ID+"/labels", token, nil)
	assert.Len(t, decodeBody[[]models.Label](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/datasets/"+ds.ID+"/labels", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/labels/"+label.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/datasets/"+ds.ID+"/labels", token, nil).Code)
}

func TestGuestForbiddenRoutes(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.guestToken(t)

	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/admin/users", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/images/x/remarks", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, "POST", "/datasets/x/uploads/presign", token, map[string]string{}).Code)
}

func TestGuestSessionInfo(t *testing.T) {
	e := newTestEnv(t)
	token, u := e.guestToken(t)
	e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "one"})

	rec := e.do(t, "GET", "/guest/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Session guest.SessionInfo `json:"session"`
		Timeout string            `json:"timeout"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, u.ID, body.Session.GuestID)
	assert.Equal(t, 1, body.Session.DatasetsCount)
	assert.Equal(t, "1h0m0s", body.Timeout)

	registered, _ := e.userToken(t, "carol", models.RoleAnnotator)
	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/guest/session", registered, nil).Code)
}

func TestRegisteredUploadFlow(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.userToken(t, "dave", models.RoleAnnotator)

	rec := e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "street"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ds := decodeBody[models.Dataset](t, rec)

	rec = e.upload(t, token, ds.ID, map[string][]byte{"a.png": pngBytes(t, 2, 2)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/uploads/presign", token, presignRequest{FileName: "a.exe", ContentType: "application/x-msdownload"})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/uploads/presign", token, presignRequest{FileName: "car.png", ContentType: "image/png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	presigned := decodeBody[presignResponse](t, rec)
	assert.True(t, storage.InDataset(presigned.ObjectKey, ds.ID))
	assert.Equal(t, http.MethodPut, presigned.Method)

	confirm := confirmRequest{ObjectKey: presigned.ObjectKey, FileName: "car.png", Width: 640, Height: 480}

	// Nothing uploaded yet.
	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/uploads/confirm", token, confirm)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, "POST", "/datasets/other/uploads/confirm", token, confirm)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.objects.Put(presigned.ObjectKey, 2048, "image/png")
	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/uploads/confirm", token, confirm)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	img := decodeBody[models.Image](t, rec)
	assert.Equal(t, int64(2048), img.FileSize)
	assert.Equal(t, "png", img.FileType)

	rec = e.do(t, "GET", "/datasets/"+ds.ID, token, nil)
	assert.Equal(t, 1, decodeBody[models.Dataset](t, rec).TotalImages)

	rec = e.do(t, "GET", "/images/"+img.ID+"/content", token, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "memory://objects/")

	rec = e.do(t, "POST", "/images/"+img.ID+"/annotations/shapes", token,
		map[string]any{"type": "bbox", "geometry": map[string]any{"x": 0, "y": 0, "width": 5, "height": 5}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, "GET", "/annotations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decodeBody[[]models.ImageAnnotations](t, rec)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Annotations, 1)
}

func TestRegisteredDatasetDelete(t *testing.T) {
	e := newTestEnv(t)
	annotator, _ := e.userToken(t, "erin", models.RoleAnnotator)
	admin, _ := e.userToken(t, "root", models.RoleAdmin)

	rec := e.do(t, "POST", "/datasets", annotator, models.DatasetInput{Name: "to-purge"})
	ds := decodeBody[models.Dataset](t, rec)

	assert.Equal(t, http.StatusForbidden, e.do(t, "DELETE", "/datasets/"+ds.ID+"?hard=true", annotator, nil).Code)

	key := storage.ObjectKey(ds.ID, "x.png")
	e.objects.Put(key, 10, "image/png")
	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/uploads/confirm", annotator, confirmRequest{ObjectKey: key})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/datasets/"+ds.ID+"?hard=true", admin, nil).Code)
	_, err := e.objects.Exists(t.Context(), key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	rec = e.do(t, "POST", "/datasets", annotator, models.DatasetInput{Name: "soft"})
	soft := decodeBody[models.Dataset](t, rec)
	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/datasets/"+soft.ID, annotator, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/datasets/"+soft.ID, annotator, nil).Code)
}

func TestRemarks(t *testing.T) {
	e := newTestEnv(t)
	token, u := e.userToken(t, "frank", models.RoleReviewer)

	rec := e.do(t, "POST", "/datasets", token, models.DatasetInput{Name: "review"})
	ds := decodeBody[models.Dataset](t, rec)
	key := storage.ObjectKey(ds.ID, "r.png")
	e.objects.Put(key, 1, "image/png")
	rec = e.do(t, "POST", "/datasets/"+ds.ID+"/uploads/confirm", token, confirmRequest{ObjectKey: key})
	img := decodeBody[models.Image](t, rec)

	rec = e.do(t, "POST", "/remarks", token, models.RemarkInput{ImageID: img.ID, AnnotationID: "shape-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/remarks", token, models.RemarkInput{ImageID: img.ID, AnnotationID: "shape-1", Message: "box too loose"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rm := decodeBody[models.Remark](t, rec)
	assert.Equal(t, ds.ID, rm.DatasetID)
	assert.Equal(t, u.ID, rm.CreatedBy)

	done := true
	reply := "fixed"
	rec = e.do(t, "PATCH", "/remarks/"+rm.ID, token, models.RemarkPatch{Status: &done, Reply: &reply})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[models.Remark](t, rec)
	assert.True(t, updated.Status)
	require.NotNil(t, updated.Reply)
	assert.Equal(t, "fixed", *updated.Reply)

	rec = e.do(t, "GET", "/images/"+img.ID+"/remarks", token, nil)
	assert.Len(t, decodeBody[[]models.Remark](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/remarks/"+rm.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/remarks/"+rm.ID, token, nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	e := newTestEnv(t)
	admin, me := e.userToken(t, "root", models.RoleAdmin)
	annotator, target := e.userToken(t, "gina", models.RoleAnnotator)

	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/admin/users", annotator, nil).Code)

	rec := e.do(t, "GET", "/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.User](t, rec), 2)

	rec = e.do(t, "PATCH", "/admin/users/"+target.ID+"/role", admin, roleRequest{Role: "overlord"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, "PATCH", "/admin/users/"+me.ID+"/role", admin, roleRequest{Role: models.RoleAnnotator})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "PATCH", "/admin/users/"+target.ID+"/role", admin, roleRequest{Role: models.RoleReviewer})
	require.Equal(t, http.StatusNoContent, rec.Code)
	got, err := e.srv.Repos.Users.GetByID(target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReviewer, got.Role)

	off := false
	rec = e.do(t, "PATCH", "/admin/users/"+target.ID+"/active", admin, activeRequest{IsActive: &off})
	require.Equal(t, http.StatusNoContent, rec.Code)
	// The old token stops working once the account is disabled.
	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/auth/me", annotator, nil).Code)

	rec = e.do(t, "GET", "/admin/logs?limit=2", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeBody[[]models.AuditLog](t, rec)
	assert.Len(t, logs, 2)

	e.guestToken(t)
	rec = e.do(t, "GET", "/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[StatsDTO](t, rec)
	assert.Equal(t, 1, stats.Guest.Sessions)
	assert.Equal(t, "1h0m0s", stats.GuestTimeout)
}

func TestPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	_, u := e.userToken(t, "hank", models.RoleAnnotator)

	rec := e.do(t, "POST", "/auth/forgot-password", "", forgotPasswordRequest{Email: "nobody@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, e.mail.sent)

	rec = e.do(t, "POST", "/auth/forgot-password", "", forgotPasswordRequest{Email: u.Email})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, mailer.KindResetPassword, e.mail.sent[0].kind)
	data := e.mail.sent[0].data.(mailer.ResetPasswordData)

	rec = e.do(t, "POST", "/auth/reset-password", "", resetPasswordRequest{Token: data.Token, NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/auth/reset-password", "", resetPasswordRequest{Token: data.Token, NewPassword: "new-password-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Tokens are single-use.
	rec = e.do(t, "POST", "/auth/reset-password", "", resetPasswordRequest{Token: data.Token, NewPassword: "new-password-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/auth/login", "", LoginRequest{Username: "hank", Password: "new-password-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.guestToken(t)
	e.do(t, "GET", "/healthz", "", nil)

	rec := e.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "GET /healthz")
	assert.Contains(t, body, "guest")
}

func TestCorsPreflight(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest("OPTIONS", "/datasets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
