// Package upload stores document attachments on the local filesystem under
// a directory tree keyed by user id then document id.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// MaxFileSize is the per-file ceiling (10 MiB).
const MaxFileSize = 10 << 20

var allowedTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

var (
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrTooLarge       = errors.New("file too large")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// File describes one stored attachment.
type File struct {
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
}

type Store struct {
	BaseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{BaseDir: baseDir}
}

// Validate checks one file against the MIME allow-list and the size ceiling.
func (s *Store) Validate(fh *multipart.FileHeader) error {
	ct := fh.Header.Get("Content-Type")
	if _, ok := allowedTypes[ct]; !ok {
		return fmt.Errorf("%w: %s (%s)", ErrTypeNotAllowed, ct, fh.Filename)
	}
	if fh.Size > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, max %d", ErrTooLarge, fh.Filename, fh.Size, MaxFileSize)
	}
	return nil
}

// Save validates every file before writing the first one, so a rejected
// file means nothing reaches disk.
func (s *Store) Save(userID, docID string, files []*multipart.FileHeader) ([]File, error) {
	for _, fh := range files {
		if err := s.Validate(fh); err != nil {
			return nil, err
		}
	}
	dir := filepath.Join(s.BaseDir, userID, docID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out := make([]File, 0, len(files))
	for i, fh := range files {
		name := fmt.Sprintf("%d_%d_%s", time.Now().UnixMilli(), i, unsafeChars.ReplaceAllString(fh.Filename, "_"))
		dst := filepath.Join(dir, name)
		if err := copyFile(fh, dst); err != nil {
			return nil, err
		}
		out = append(out, File{
			OriginalName: fh.Filename,
			Filename:     name,
			Path:         dst,
			Size:         fh.Size,
			MimeType:     fh.Header.Get("Content-Type"),
			URL:          "/uploads/" + userID + "/" + docID + "/" + name,
		})
	}
	return out, nil
}

// Remove deletes one stored file. A file that is already gone is not an error.
func (s *Store) Remove(userID, docID, filename string) error {
	clean := filepath.Base(filename)
	err := os.Remove(filepath.Join(s.BaseDir, userID, docID, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func copyFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, src)
	return err
}
