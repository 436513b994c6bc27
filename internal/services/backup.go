package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	archivePrefix = "backup_"
	archiveSuffix = ".tar.gz"
)

// BackupService archives the portal data that lives outside a single
// database dump: every CSV export plus the uploaded files.
type BackupService struct {
	dir     string
	uploads string
	export  *ExportService
	now     func() time.Time
}

// Archive is one backup file on disk.
type Archive struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBackupService(dir, uploads string, export *ExportService) *BackupService {
	return &BackupService{dir: dir, uploads: uploads, export: export, now: time.Now}
}

// CreateBackup writes backup_<timestamp>.tar.gz holding exports/<kind>.csv
// for every export kind and uploads/<file> for every uploaded file.
func (s *BackupService) CreateBackup(ctx context.Context) (string, error) {
	// a failing query must leave no partial archive behind
	kinds := ExportKinds()
	rendered := make([][]byte, len(kinds))
	for i, kind := range kinds {
		var buf bytes.Buffer
		if err := s.export.Export(ctx, kind, &buf, ""); err != nil {
			return "", fmt.Errorf("export %s: %w", kind, err)
		}
		rendered[i] = buf.Bytes()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create backups directory: %w", err)
	}
	stamp := s.now()
	target := filepath.Join(s.dir, archivePrefix+stamp.Format("20060102_150405")+archiveSuffix)

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	err = func() error {
		for i, kind := range kinds {
			data := rendered[i]
			if err := addEntry(tw, "exports/"+kind+".csv", 0644, stamp, int64(len(data)), bytes.NewReader(data)); err != nil {
				return err
			}
		}
		if err := s.addUploads(tw); err != nil {
			return fmt.Errorf("archive uploads: %w", err)
		}
		if err := tw.Close(); err != nil {
			return err
		}
		if err := gz.Close(); err != nil {
			return err
		}
		return out.Close()
	}()
	if err != nil {
		out.Close()
		os.Remove(target)
		return "", fmt.Errorf("write archive: %w", err)
	}
	return target, nil
}

func (s *BackupService) addUploads(tw *tar.Writer) error {
	root := os.DirFS(s.uploads)
	err := fs.WalkDir(root, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		f, err := root.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		return addEntry(tw, path.Join("uploads", name), int64(info.Mode().Perm()), info.ModTime(), info.Size(), f)
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func addEntry(tw *tar.Writer, name string, mode int64, modTime time.Time, size int64, r io.Reader) error {
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: mode, ModTime: modTime, Size: size}); err != nil {
		return err
	}
	_, err := io.Copy(tw, r)
	return err
}

// ListBackups returns the archives in the backups directory, newest first.
// A missing directory yields no archives.
func (s *BackupService) ListBackups() ([]Archive, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, archivePrefix+"*"+archiveSuffix))
	if err != nil {
		return nil, err
	}

	archives := make([]Archive, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		archives = append(archives, Archive{
			Name:      filepath.Base(m),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	// names embed the creation time
	sort.Slice(archives, func(i, j int) bool { return archives[i].Name > archives[j].Name })
	return archives, nil
}

// DeleteBackup removes one archive. Only bare archive names are accepted.
func (s *BackupService) DeleteBackup(name string) error {
	if name != filepath.Base(name) || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
		return invalid("Nombre de copia no válido")
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}
