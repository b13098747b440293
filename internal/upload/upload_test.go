package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testFile struct {
	name        string
	contentType string
	content     string
}

// parseForm builds a real multipart form so the headers behave exactly as
// they do when parsed from a request.
func parseForm(t *testing.T, files []testFile) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func TestSaveWritesAllFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	headers := parseForm(t, []testFile{
		{"policy.pdf", "application/pdf", "pdf bytes"},
		{"notes.txt", "text/plain", "some notes"},
	})

	saved, err := store.Save("user-1", "doc-1", headers)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	for i, f := range saved {
		require.Equal(t, headers[i].Filename, f.OriginalName)
		data, err := os.ReadFile(f.Path)
		require.NoError(t, err)
		require.NotEmpty(t, data)
		require.Contains(t, f.URL, "/uploads/user-1/doc-1/")
	}
}

func TestSaveRejectsDisallowedTypeBeforeAnyWrite(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	headers := parseForm(t, []testFile{
		{"policy.pdf", "application/pdf", "pdf bytes"},
		{"archive.zip", "application/zip", "zip bytes"},
	})

	_, err := store.Save("user-1", "doc-1", headers)
	require.ErrorIs(t, err, ErrTypeNotAllowed)

	// The valid file preceding the rejected one must not have been written.
	_, statErr := os.Stat(filepath.Join(base, "user-1", "doc-1"))
	require.True(t, os.IsNotExist(statErr))
}

func TestValidateSizeCeiling(t *testing.T) {
	store := NewStore(t.TempDir())
	fh := &multipart.FileHeader{
		Filename: "huge.pdf",
		Size:     MaxFileSize + 1,
		Header:   textproto.MIMEHeader{"Content-Type": []string{"application/pdf"}},
	}
	require.ErrorIs(t, store.Validate(fh), ErrTooLarge)

	fh.Size = MaxFileSize
	require.NoError(t, store.Validate(fh))
}

func TestSaveSanitizesFilenames(t *testing.T) {
	store := NewStore(t.TempDir())
	headers := parseForm(t, []testFile{
		{"../..//etc passwd?.txt", "text/plain", "content"},
	})

	saved, err := store.Save("user-1", "doc-1", headers)
	require.NoError(t, err)
	require.NotContains(t, saved[0].Filename, "/")
	require.NotContains(t, saved[0].Filename, " ")
	require.NotContains(t, saved[0].Filename, "?")
}

func TestRemoveMissingFileIsNotAnError(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Remove("user-1", "doc-1", "never-written.pdf"))
}
