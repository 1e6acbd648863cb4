// Package shares persists shareable analysis reports as JSON files.
package shares

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/deepfake-detection/internal/media"
)

// IDLength is the number of characters in a share id
const IDLength = 8

var (
	ErrShareNotFound = errors.New("share not found")
	ErrShareExpired  = errors.New("share has expired")
	ErrInvalidShare  = errors.New("invalid share")
)

// Share is a saved report reachable by its short id
type Share struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Result    json.RawMessage `json:"result"`
	Preview   *string         `json:"preview,omitempty"`
	CreatedAt string          `json:"created_at"`
	ExpiresAt string          `json:"expires_at"`
}

// Expired reports whether the share is past its expiry at t
func (s *Share) Expired(t time.Time) bool {
	exp, err := time.Parse(time.RFC3339, s.ExpiresAt)
	if err != nil {
		return true
	}
	return !t.Before(exp)
}

// Store handles share persistence
type Store struct {
	sharesDir string
	imagesDir string
	ttl       time.Duration
	now       func() time.Time
}

// NewStore creates a share store under dataDir
func NewStore(dataDir string, ttl time.Duration) (*Store, error) {
	sharesDir := filepath.Join(dataDir, "shares")
	imagesDir := filepath.Join(sharesDir, "images")

	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create shares directory: %w", err)
	}

	return &Store{
		sharesDir: sharesDir,
		imagesDir: imagesDir,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// ImagesDir is where preview images are written
func (s *Store) ImagesDir() string {
	return s.imagesDir
}

// List returns all shares sorted by creation date (newest first)
func (s *Store) List() ([]*Share, error) {
	entries, err := os.ReadDir(s.sharesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read shares directory: %w", err)
	}

	var shares []*Share
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		share, err := s.loadShare(entry.Name())
		if err != nil {
			continue
		}
		shares = append(shares, share)
	}

	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt > shares[j].CreatedAt
	})
	return shares, nil
}

// Get retrieves a live share by id
func (s *Store) Get(id string) (*Share, error) {
	if !validID(id) {
		return nil, ErrShareNotFound
	}
	share, err := s.loadShare(id + ".json")
	if err != nil {
		return nil, err
	}
	if share.Expired(s.now()) {
		return share, ErrShareExpired
	}
	return share, nil
}

// Create stores a new share. Preview may carry a data:image URL which is
// written next to the share and replaced by its served path.
func (s *Store) Create(filename string, result json.RawMessage, preview *string) (*Share, error) {
	if filename == "" || len(result) == 0 || !json.Valid(result) {
		return nil, ErrInvalidShare
	}

	now := s.now().UTC()
	share := &Share{
		ID:        uuid.New().String()[:IDLength],
		Filename:  filename,
		Result:    result,
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(s.ttl).Format(time.RFC3339),
	}

	if preview != nil && strings.HasPrefix(*preview, "data:image") {
		imagePath, err := s.savePreview(share.ID, *preview)
		if err != nil {
			return nil, fmt.Errorf("failed to save preview: %w", err)
		}
		share.Preview = &imagePath
	}

	if err := s.saveShare(share); err != nil {
		return nil, err
	}
	return share, nil
}

// Delete removes a share and its preview
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return ErrShareNotFound
	}
	share, err := s.loadShare(id + ".json")
	if err != nil {
		return err
	}

	if share.Preview != nil {
		os.Remove(filepath.Join(s.imagesDir, filepath.Base(*share.Preview)))
	}
	return os.Remove(filepath.Join(s.sharesDir, id+".json"))
}

// PurgeExpired deletes every expired share and returns how many went
func (s *Store) PurgeExpired() (int, error) {
	shares, err := s.List()
	if err != nil {
		return 0, err
	}

	now := s.now()
	purged := 0
	for _, share := range shares {
		if !share.Expired(now) {
			continue
		}
		if err := s.Delete(share.ID); err != nil {
			return purged, fmt.Errorf("failed to delete share %s: %w", share.ID, err)
		}
		purged++
	}
	return purged, nil
}

func (s *Store) loadShare(filename string) (*Share, error) {
	data, err := os.ReadFile(filepath.Join(s.sharesDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to read share file: %w", err)
	}

	var share Share
	if err := json.Unmarshal(data, &share); err != nil {
		return nil, fmt.Errorf("failed to parse share: %w", err)
	}
	return &share, nil
}

func (s *Store) saveShare(share *Share) error {
	data, err := json.MarshalIndent(share, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal share: %w", err)
	}

	filename := filepath.Join(s.sharesDir, share.ID+".json")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write share file: %w", err)
	}
	return nil
}

// savePreview decodes a data URL, checks it is a real image and writes it
// to disk, returning the URL path it is served from
func (s *Store) savePreview(shareID, dataURL string) (string, error) {
	// data:image/png;base64,iVBORw0...
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid data URL format")
	}

	imageData, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %w", err)
	}

	info, err := media.ProbeImage(bytes.NewReader(imageData))
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s.%s", shareID, info.Format)
	if err := os.WriteFile(filepath.Join(s.imagesDir, filename), imageData, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return "/share/images/" + filename, nil
}

func validID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for _, c := range id {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
