package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"civic-portal/internal/config"

	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadStore saves user attachments under the configured upload directory.
type UploadStore struct {
	cfg    config.UploadsConfig
	now    func() time.Time
	unique func() string
}

func NewUploadStore(cfg config.UploadsConfig) *UploadStore {
	return &UploadStore{cfg: cfg, now: time.Now, unique: shortID}
}

// shortID keeps same-second uploads of one file name apart.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (u *UploadStore) Dir() string {
	return u.cfg.Dir
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "archivo"
	}
	return name
}

// Save stores fh as <user>_<timestamp>_<id>_<name> and returns the stored
// name.
// A nil header or an empty file name means nothing was attached.
func (u *UploadStore) Save(userID uint, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	if !u.cfg.AllowedExtension(ext) {
		return "", invalid("Tipo de archivo no permitido")
	}
	if u.cfg.MaxBytes > 0 && fh.Size > u.cfg.MaxBytes {
		return "", invalid("El archivo es demasiado grande. El tamaño máximo es 16MB.")
	}

	name := fmt.Sprintf("%d_%s_%s_%s", userID, u.now().Format("20060102_150405"), u.unique(), sanitizeFilename(fh.Filename))

	if err := os.MkdirAll(u.cfg.Dir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(u.cfg.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return name, nil
}

// Remove deletes a stored upload; used when the record referencing it could
// not be saved.
func (u *UploadStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	return os.Remove(filepath.Join(u.cfg.Dir, sanitizeFilename(name)))
}
