package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			gen := detector.NewSyntheticDetector(42, detector.NoiseUniform)
			var ids []string
			for i := 0; i < 5; i++ {
				r := gen.Generate(media.KindAudio)
				ids = append(ids, r.ID)
				require.NoError(t, store.Append(ctx, r))
			}

			page, total, err := store.List(ctx, 2, 0)
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, page, 2)
			assert.Equal(t, ids[4], page[0].ID)
			assert.Equal(t, ids[3], page[1].ID)
			assert.Equal(t, media.KindAudio, page[0].FileType)
			assert.Contains(t, page[0].Evidence, "spectral_anomalies")

			page, _, err = store.List(ctx, 10, 3)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, ids[0], page[1].ID)

			page, _, err = store.List(ctx, 10, 50)
			require.NoError(t, err)
			assert.Empty(t, page)

			require.NoError(t, store.Reset(ctx))
			_, total, err = store.List(ctx, 10, 0)
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestObserverAppends(t *testing.T) {
	store := NewMemoryStore()
	d := detector.Observed(detector.NewSyntheticDetector(9, detector.NoiseUniform), Observer(store))

	_, err := d.Analyze(context.Background(), detector.Request{Kind: media.KindImage})
	require.NoError(t, err)

	_, total, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	r := detector.NewSyntheticDetector(3, detector.NoiseUniform).Generate(media.KindVideo)
	require.NoError(t, store.Append(ctx, r))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	page, total, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, r.ID, page[0].ID)
	assert.Equal(t, r.Confidence, page[0].Confidence)
}
