package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/database"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/storage"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// UploadFormField carries the files of a guest multipart upload.
const UploadFormField = "files"

// UploadImages stores a guest's multipart files inline in the session.
// Registered users upload straight to object storage through presign/confirm.
// POST /datasets/{id}/images
func (s *Server) UploadImages(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if !u.IsGuest {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Use the presigned upload flow.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		utils.WriteError(w, http.StatusRequestEntityTooLarge, utils.ErrRequestBodyTooLarge, "Upload exceeds size limit.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[UploadFormField]
	if len(headers) == 0 {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Missing '"+UploadFormField+"' file field.")
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Unreadable file "+h.Filename+".")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Unreadable file "+h.Filename+".")
			return
		}
		// Browsers often send application/octet-stream; let the store sniff those.
		contentType := h.Header.Get("Content-Type")
		if !utils.IsAllowedImageType(contentType) {
			contentType = ""
		}
		files = append(files, models.UploadFile{
			Filename:    utils.SanitizeFilename(h.Filename),
			ContentType: contentType,
			Data:        data,
		})
	}

	images, err := s.Guest.AddImages(u.ID, r.PathValue("id"), files)
	if errors.Is(err, guest.ErrDatasetNotFound) {
		notFound(w, "Dataset")
		return
	}
	if err != nil {
		logger.LogError("Guest upload failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Upload failed.")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, images)
}

// GET /datasets/{id}/images
func (s *Server) ListImages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		utils.WriteJSON(w, http.StatusOK, s.Guest.ListImages(u.ID, id))
		return
	}

	list, err := s.Repos.Images.ListByDataset(id)
	if err != nil {
		repoError(w, err, "Image")
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

type deleteImagesRequest struct {
	IDs []string `json:"ids"`
}

// DeleteImages removes the listed images of one dataset and reports how many
// were removed. Ids from other datasets are skipped.
// DELETE /datasets/{id}/images
func (s *Server) DeleteImages(w http.ResponseWriter, r *http.Request) {
	var req deleteImagesRequest
	if !decode(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		n := s.Guest.DeleteImages(u.ID, id, req.IDs)
		utils.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
		return
	}

	n, err := s.Repos.Images.SoftDeleteMany(id, req.IDs)
	if err != nil {
		repoError(w, err, "Image")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// DELETE /datasets/{id}/images/{imageId}
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	datasetID, imageID := r.PathValue("id"), r.PathValue("imageId")
	u := currentUser(r)
	if u.IsGuest {
		if !s.Guest.DeleteImage(u.ID, datasetID, imageID) {
			notFound(w, "Image")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	n, err := s.Repos.Images.SoftDeleteMany(datasetID, []string{imageID})
	if err != nil {
		repoError(w, err, "Image")
		return
	}
	if n == 0 {
		notFound(w, "Image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImageContent streams guest bytes from memory. Registered images are served
// by redirecting to a presigned GET URL.
// GET /images/{id}/content
func (s *Server) ImageContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if u.IsGuest {
		data, contentType, err := s.Guest.GetBytes(u.ID, id)
		if err != nil {
			notFound(w, "Image")
			return
		}
		serveWithETag(w, r, data, contentType)
		return
	}

	img, err := s.Repos.Images.Get(id)
	if err != nil {
		repoError(w, err, "Image")
		return
	}
	url, ok := s.signedGet(w, r, img.ObjectKey)
	if !ok {
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// signedGet returns a presigned download URL, reusing a cached one while it
// is still valid.
func (s *Server) signedGet(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	if s.Storage == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, utils.ErrServerUnavailable, "Object storage is not configured.")
		return "", false
	}

	cacheKey := "url:" + key
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(cacheKey); ok {
			return string(cached), true
		}
	}

	url, expiresAt, err := s.Storage.PresignGet(r.Context(), key)
	if err != nil {
		logger.LogError("Presign GET %s failed: %v", key, err)
		utils.WriteError(w, http.StatusBadGateway, utils.ErrUpstreamFailed, "Could not sign download URL.")
		return "", false
	}

	// Only cache URLs that outlive the cache entry.
	if s.Cache != nil && time.Until(expiresAt) > s.Cache.TTL() {
		s.Cache.Set(cacheKey, []byte(url))
	}
	return url, true
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	ObjectKey string            `json:"objectKey"`
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// PresignUpload hands out a URL the browser PUTs the image to.
// POST /datasets/{id}/uploads/presign
func (s *Server) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if !decode(w, r, &req) {
		return
	}
	if req.FileName == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "fileName is required.")
		return
	}
	if !utils.IsAllowedImageType(req.ContentType) {
		utils.WriteError(w, http.StatusUnsupportedMediaType, utils.ErrRequestUnSupportedMedia, "Unsupported file type.")
		return
	}
	if s.Storage == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, utils.ErrServerUnavailable, "Object storage is not configured.")
		return
	}

	datasetID := r.PathValue("id")
	if _, err := s.Repos.Datasets.Get(datasetID); err != nil {
		repoError(w, err, "Dataset")
		return
	}

	key := storage.ObjectKey(datasetID, req.FileName)
	url, expiresAt, err := s.Storage.PresignPut(r.Context(), key, req.ContentType)
	if err != nil {
		logger.LogError("Presign PUT %s failed: %v", key, err)
		utils.WriteError(w, http.StatusBadGateway, utils.ErrUpstreamFailed, "Could not sign upload URL.")
		return
	}

	utils.WriteJSON(w, http.StatusOK, presignResponse{
		ObjectKey: key,
		UploadURL: url,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": req.ContentType},
		ExpiresAt: expiresAt,
	})
}

type confirmRequest struct {
	ObjectKey  string `json:"objectKey"`
	FileName   string `json:"fileName"`
	FolderPath string `json:"folderPath"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// ConfirmUpload records an object the browser finished uploading.
// POST /datasets/{id}/uploads/confirm
func (s *Server) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decode(w, r, &req) {
		return
	}

	datasetID := r.PathValue("id")
	if !storage.InDataset(req.ObjectKey, datasetID) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "objectKey does not belong to this dataset.")
		return
	}
	if s.Storage == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, utils.ErrServerUnavailable, "Object storage is not configured.")
		return
	}

	obj, err := s.Storage.Exists(r.Context(), req.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		utils.WriteError(w, http.StatusConflict, utils.ErrResourceNotFound, "Object has not been uploaded yet.")
		return
	}
	if err != nil {
		logger.LogError("Object lookup %s failed: %v", req.ObjectKey, err)
		utils.WriteError(w, http.StatusBadGateway, utils.ErrUpstreamFailed, "Could not verify upload.")
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = path.Base(req.ObjectKey)
	}

	u := currentUser(r)
	img, err := s.Repos.Images.Create(u.ID, models.Image{
		DatasetID:   datasetID,
		FileName:    fileName,
		FolderPath:  req.FolderPath,
		ObjectKey:   req.ObjectKey,
		Width:       req.Width,
		Height:      req.Height,
		FileSize:    obj.Size,
		FileType:    fileTypeOf(obj.ContentType),
		ContentType: obj.ContentType,
	})
	if errors.Is(err, database.ErrNotFound) {
		notFound(w, "Dataset")
		return
	}
	if err != nil {
		repoError(w, err, "Image")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, img)
}

// fileTypeOf turns "image/png" into "png".
func fileTypeOf(contentType string) string {
	for i := len(contentType) - 1; i >= 0; i-- {
		if contentType[i] == '/' {
			return contentType[i+1:]
		}
	}
	if contentType == "" {
		return utils.BinaryFormat
	}
	return contentType
}
