// Package database persists registered users' data in SQLite through gorm.
// Every repository speaks the DTOs of internal/models so handlers can serve
// guest and registered callers with the same response shapes.
package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
)

var (
	// ErrNotFound is returned when a row does not exist or is inactive.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("record already exists")
)

// Repos bundles the repositories that share one connection.
type Repos struct {
	DB          *gorm.DB
	Users       *Users
	Datasets    *Datasets
	Images      *Images
	Annotations *Annotations
	Labels      *Labels
	Remarks     *Remarks
	Resets      *PasswordResets
	Audit       *AuditLogs
}

// NewRepos binds every repository to db. Row timestamps come from clk so
// registered records share a time source with the guest store; nil means
// the wall clock.
func NewRepos(db *gorm.DB, clk clock.Clock) *Repos {
	if clk == nil {
		clk = clock.New()
	}
	db = db.Session(&gorm.Session{
		NewDB:   true,
		NowFunc: func() time.Time { return clk.Now().UTC() },
	})
	return &Repos{
		DB:          db,
		Users:       &Users{db: db},
		Datasets:    &Datasets{db: db},
		Images:      &Images{db: db},
		Annotations: &Annotations{db: db},
		Labels:      &Labels{db: db},
		Remarks:     &Remarks{db: db},
		Resets:      &PasswordResets{db: db},
		Audit:       &AuditLogs{db: db},
	}
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
