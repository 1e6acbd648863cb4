// Package uploads stores user-submitted media on disk.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/deepfake-detection/internal/media"
)

// SampleSize is how much of each upload is kept in memory for analysis
const SampleSize = 1 << 20

var (
	ErrTooLarge    = errors.New("file too large")
	ErrInvalidName = errors.New("invalid filename")
	ErrNotFound    = errors.New("upload not found")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StoredFile describes a saved upload
type StoredFile struct {
	Name         string
	OriginalName string
	Path         string
	Size         int64
	Kind         media.Kind
	SniffedKind  media.Kind
	MIME         string
	// Sample holds the first SampleSize bytes of the file
	Sample []byte
}

// Store writes uploads into a single directory
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the upload directory if needed
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the upload directory
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes returns the per-file size limit
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save copies r to a uniquely named file. Files over the size limit are
// removed and ErrTooLarge is returned.
func (s *Store) Save(filename string, r io.Reader) (*StoredFile, error) {
	name, err := storedName(filename)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	sample := &limitedBuffer{max: SampleSize}
	src := io.TeeReader(r, sample)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}

	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	data := sample.Bytes()
	header := data
	if len(header) > media.SniffLen {
		header = header[:media.SniffLen]
	}
	sniffed, mime := media.Sniff(header)

	return &StoredFile{
		Name:         name,
		OriginalName: filename,
		Path:         path,
		Size:         n,
		Kind:         media.ClassifyFilename(filename),
		SniffedKind:  sniffed,
		MIME:         mime,
		Sample:       data,
	}, nil
}

// Path resolves a stored file name, rejecting anything outside the directory
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// ReadSample returns up to SampleSize leading bytes of a stored file
func ReadSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, SampleSize))
}

// PruneOlderThan deletes uploads last modified more than age ago
func (s *Store) PruneOlderThan(age time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			log.Printf("Warning: failed to remove upload %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

// storedName prefixes the sanitized name with a uuid. When sanitizing
// strips the stem (".jpg", non-ASCII names) only the extension is kept.
func storedName(filename string) (string, error) {
	id := uuid.New().String()
	clean := Sanitize(filename)
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := unsafeChars.ReplaceAllString(media.Extension(base), "")
	switch {
	case clean != "" && media.Extension(clean) == ext:
		return fmt.Sprintf("%s_%s", id, clean), nil
	case ext != "":
		return fmt.Sprintf("%s.%s", id, ext), nil
	case clean != "":
		return fmt.Sprintf("%s_%s", id, clean), nil
	default:
		return "", ErrInvalidName
	}
}

// Sanitize reduces a client filename to a safe base name
func Sanitize(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if len(name) > 200 {
		name = name[len(name)-200:]
	}
	return name
}

type limitedBuffer struct {
	bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}
