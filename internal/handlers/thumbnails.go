package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

const (
	defaultThumbSize = 256
	maxThumbSize     = 1024
	thumbQuality     = 80
)

// serveWithETag writes data with caching headers and answers 304 when the
// client already holds the same bytes.
func serveWithETag(w http.ResponseWriter, r *http.Request, data []byte, mimeType string) {
	hash := sha256.Sum256(data)
	etag := hex.EncodeToString(hash[:])

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("ETag", `"`+etag+`"`)

	if match := r.Header.Get("If-None-Match"); match != "" {
		if strings.Contains(match, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Write(data)
}

// ImageThumbnail renders a JPEG preview of a guest image. Registered images
// are redirected to the original object.
// GET /images/{id}/thumbnail?size=256&mode=fit|square
func (s *Server) ImageThumbnail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u := currentUser(r)
	if !u.IsGuest {
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
		return
	}

	if s.Guest.GetImage(u.ID, id) == nil {
		notFound(w, "Image")
		return
	}

	q := r.URL.Query()
	size := utils.ParseInt(q.Get("size"), defaultThumbSize, 16, maxThumbSize)
	mode := "fit"
	if q.Get("mode") == "square" {
		mode = "square"
	}

	// Keyed by session so one guest can never read another's cached preview.
	key := "thumb:" + u.ID + ":" + id + ":" + mode + ":" + strconv.Itoa(size)

	data, err, _ := s.thumbs.Do(key, func() (interface{}, error) {
		if s.Cache != nil {
			if cached, ok := s.Cache.Get(key); ok {
				return cached, nil
			}
		}

		raw, _, err := s.Guest.GetBytes(u.ID, id)
		if err != nil {
			return nil, err
		}
		out, err := utils.Thumbnail(raw, utils.ThumbnailOptions{Mode: mode, Size: size, Quality: thumbQuality})
		if err != nil {
			return nil, err
		}

		if s.Cache != nil {
			s.Cache.Set(key, out)
		}
		return out, nil
	})
	if err != nil {
		logger.LogDebug("Thumbnail %s failed: %v", id, err)
		utils.WriteError(w, http.StatusUnprocessableEntity, utils.ErrImageProcessingFailed, "Image could not be decoded.")
		return
	}

	serveWithETag(w, r, data.([]byte), "image/jpeg")
}
