package shares

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleResult = json.RawMessage(`{"prediction":"deepfake","confidence":0.81}`)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	store, err := NewStore(t.TempDir(), 7*24*time.Hour)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)

	share, err := store.Create("clip.mp4", sampleResult, nil)
	require.NoError(t, err)
	assert.Len(t, share.ID, IDLength)
	assert.Equal(t, "2024-03-08T09:00:00Z", share.ExpiresAt)

	got, err := store.Get(share.ID)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", got.Filename)
	assert.JSONEq(t, string(sampleResult), string(got.Result))
}

func TestCreateValidation(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", sampleResult, nil)
	assert.ErrorIs(t, err, ErrInvalidShare)
	_, err = store.Create("a.jpg", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidShare)
	_, err = store.Create("a.jpg", json.RawMessage(`{not json`), nil)
	assert.ErrorIs(t, err, ErrInvalidShare)
}

func TestGetMissingAndExpired(t *testing.T) {
	store, now := newTestStore(t)

	_, err := store.Get("deadbeef")
	assert.ErrorIs(t, err, ErrShareNotFound)
	_, err = store.Get("../../etc")
	assert.ErrorIs(t, err, ErrShareNotFound)

	share, err := store.Create("a.jpg", sampleResult, nil)
	require.NoError(t, err)

	*now = now.Add(8 * 24 * time.Hour)
	_, err = store.Get(share.ID)
	assert.ErrorIs(t, err, ErrShareExpired)
}

func TestPurgeExpired(t *testing.T) {
	store, now := newTestStore(t)

	old, err := store.Create("old.jpg", sampleResult, nil)
	require.NoError(t, err)

	*now = now.Add(6 * 24 * time.Hour)
	fresh, err := store.Create("fresh.jpg", sampleResult, nil)
	require.NoError(t, err)

	*now = now.Add(2 * 24 * time.Hour)
	purged, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = store.Get(old.ID)
	assert.ErrorIs(t, err, ErrShareNotFound)
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPreviewImage(t *testing.T) {
	store, _ := newTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	share, err := store.Create("face.png", sampleResult, &dataURL)
	require.NoError(t, err)
	require.NotNil(t, share.Preview)
	assert.True(t, strings.HasPrefix(*share.Preview, "/share/images/"))
	assert.FileExists(t, filepath.Join(store.ImagesDir(), share.ID+".png"))

	require.NoError(t, store.Delete(share.ID))
	_, err = os.Stat(filepath.Join(store.ImagesDir(), share.ID+".png"))
	assert.True(t, os.IsNotExist(err))

	bogus := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image"))
	_, err = store.Create("x.png", sampleResult, &bogus)
	assert.Error(t, err)
}
