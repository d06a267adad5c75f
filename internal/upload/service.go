package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/floingsmoke/tigo/internal/db"
	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/google/uuid"
)

// Photo kinds; each kind gets its own subdirectory under the upload root.
const (
	KindProfile = "profile"
	KindTrip    = "trip"

	maxFileSize = 10 << 20
)

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type Photo struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Path string `json:"-"`
}

type Service struct {
	db  db.Querier
	dir string
}

func NewService(db db.Querier, dir string) *Service {
	return &Service{db: db, dir: dir}
}

// SavePhoto validates the incoming file, records it, and returns where the
// handler should write the bytes. The public URL mirrors the on-disk layout.
func (s *Service) SavePhoto(ctx context.Context, userID, kind, filename string, size int64) (Photo, error) {
	if kind != KindProfile && kind != KindTrip {
		return Photo{}, fmt.Errorf("%w: unknown photo kind %q", apperr.ErrInvalid, kind)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return Photo{}, fmt.Errorf("%w: unsupported file type %q", apperr.ErrInvalid, ext)
	}
	if size > maxFileSize {
		return Photo{}, fmt.Errorf("%w: file exceeds 10MB", apperr.ErrInvalid)
	}

	subdir := kind + "s"
	if err := os.MkdirAll(filepath.Join(s.dir, subdir), 0o755); err != nil {
		return Photo{}, err
	}

	photo := Photo{ID: uuid.NewString()}
	name := kind + "-" + photo.ID + ext
	photo.URL = "/uploads/" + subdir + "/" + name
	photo.Path = filepath.Join(s.dir, subdir, name)

	_, err := s.db.Exec(ctx, `
		INSERT INTO uploads (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, photo.ID, userID, photo.URL, kind)
	if err != nil {
		return Photo{}, err
	}
	return photo, nil
}
