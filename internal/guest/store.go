// Package guest keeps everything an anonymous user creates in process memory.
//
// Each guest id owns an isolated session holding datasets, images (bytes
// inline), one annotation document per image, labels and remarks. Sessions are
// created on first access and reclaimed by a background reaper once they have
// been idle for longer than the configured timeout. Nothing here touches the
// database; records are shaped like the persistent DTOs in internal/models so
// handlers can serve either backend through the same response code.
package guest

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

const (
	DefaultTimeout      = 120 * time.Minute
	DefaultReapInterval = 10 * time.Minute
)

var (
	// ErrDatasetNotFound is returned when images are uploaded into a dataset
	// the session does not hold.
	ErrDatasetNotFound = errors.New("guest dataset not found")

	// ErrImageNotFound is returned by GetBytes for an unknown image id.
	ErrImageNotFound = errors.New("guest image not found")
)

// CascadeRules controls what a dataset delete takes with it besides its
// images, which are always removed.
type CascadeRules struct {
	// DatasetAnnotations removes the annotation documents of the deleted images.
	DatasetAnnotations bool
	// DatasetLabels removes the labels that belong to the dataset.
	DatasetLabels bool
}

type Options struct {
	Timeout      time.Duration
	ReapInterval time.Duration
	Cascade      CascadeRules
	Clock        clock.Clock

	// OnReap is called after every sweep that reclaimed at least one session.
	OnReap func(reclaimed int)
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	timeout      time.Duration
	reapInterval time.Duration
	cascade      CascadeRules
	clock        clock.Clock
	onReap       func(int)

	images atomic.Int64
	bytes  atomic.Int64
	reaped atomic.Uint64

	lifecycle sync.Mutex
	cancel    func()
	done      chan struct{}
}

type imageRecord struct {
	meta    models.Image
	payload string // base64
	size    int64
}

type session struct {
	mu      sync.Mutex
	removed bool

	createdAt      time.Time
	lastAccessedAt time.Time

	datasets    *table[*models.Dataset]
	images      *table[*imageRecord]
	annotations *table[*models.ImageAnnotations]
	labels      *table[*models.Label]
	remarks     *table[*models.Remark]

	bytes int64
}

func newSession(now time.Time) *session {
	return &session{
		createdAt:      now,
		lastAccessedAt: now,
		datasets:       newTable[*models.Dataset](),
		images:         newTable[*imageRecord](),
		annotations:    newTable[*models.ImageAnnotations](),
		labels:         newTable[*models.Label](),
		remarks:        newTable[*models.Remark](),
	}
}

// NewStore builds an empty store. The reaper does not run until Start.
func NewStore(opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = DefaultReapInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Store{
		sessions:     make(map[string]*session),
		timeout:      opts.Timeout,
		reapInterval: opts.ReapInterval,
		cascade:      opts.Cascade,
		clock:        opts.Clock,
		onReap:       opts.OnReap,
	}
}

// acquire returns the session for guestID locked, creating it if needed and
// refreshing its last access time. Callers must unlock s.mu.
func (st *Store) acquire(guestID string) *session {
	for {
		st.mu.RLock()
		s, ok := st.sessions[guestID]
		st.mu.RUnlock()

		if !ok {
			st.mu.Lock()
			if s, ok = st.sessions[guestID]; !ok {
				s = newSession(st.clock.Now())
				st.sessions[guestID] = s
				logger.LogDebug("Guest session created: %s", guestID)
			}
			st.mu.Unlock()
		}

		s.mu.Lock()
		if s.removed {
			// Reaped or cleared between lookup and lock.
			s.mu.Unlock()
			continue
		}
		s.lastAccessedAt = st.clock.Now()
		return s
	}
}

// Touch creates the session if needed and refreshes its last access time.
func (st *Store) Touch(guestID string) {
	s := st.acquire(guestID)
	s.mu.Unlock()
}

// ClearSession drops a session and everything in it immediately.
func (st *Store) ClearSession(guestID string) {
	st.mu.Lock()
	s, ok := st.sessions[guestID]
	if ok {
		delete(st.sessions, guestID)
	}
	st.mu.Unlock()

	if !ok {
		return
	}

	s.mu.Lock()
	st.release(s)
	s.mu.Unlock()

	logger.LogInfo("Guest session cleared: %s", guestID)
}

// release marks s dead and takes its images out of the global counters.
// s.mu must be held.
func (st *Store) release(s *session) {
	s.removed = true
	st.images.Add(-int64(s.images.len()))
	st.bytes.Add(-s.bytes)
}

// HasSession reports whether guestID currently has a session, without
// creating or refreshing one.
func (st *Store) HasSession(guestID string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.sessions[guestID]
	return ok
}

type SessionInfo struct {
	GuestID          string    `json:"guest_id"`
	CreatedAt        time.Time `json:"created_at"`
	LastAccessedAt   time.Time `json:"last_accessed"`
	DatasetsCount    int       `json:"datasets_count"`
	ImagesCount      int       `json:"images_count"`
	AnnotationsCount int       `json:"annotations_count"`
	LabelsCount      int       `json:"labels_count"`
	RemarksCount     int       `json:"remarks_count"`
	Bytes            int64     `json:"bytes"`
}

// SessionInfo reports collection sizes and timestamps for one session.
func (st *Store) SessionInfo(guestID string) SessionInfo {
	s := st.acquire(guestID)
	defer s.mu.Unlock()

	return SessionInfo{
		GuestID:          guestID,
		CreatedAt:        s.createdAt,
		LastAccessedAt:   s.lastAccessedAt,
		DatasetsCount:    s.datasets.len(),
		ImagesCount:      s.images.len(),
		AnnotationsCount: s.annotations.len(),
		LabelsCount:      s.labels.len(),
		RemarksCount:     s.remarks.len(),
		Bytes:            s.bytes,
	}
}

type Stats struct {
	Sessions int    `json:"sessions"`
	Images   int64  `json:"images"`
	Bytes    int64  `json:"bytes"`
	Reaped   uint64 `json:"reaped"`
}

// Stats reports process-wide totals across all sessions.
func (st *Store) Stats() Stats {
	st.mu.RLock()
	n := len(st.sessions)
	st.mu.RUnlock()

	return Stats{
		Sessions: n,
		Images:   st.images.Load(),
		Bytes:    st.bytes.Load(),
		Reaped:   st.reaped.Load(),
	}
}

// Timeout is the idle duration after which a session becomes reclaimable.
func (st *Store) Timeout() time.Duration {
	return st.timeout
}

func newID(prefix string) string {
	return prefix + uuid.NewString()
}
