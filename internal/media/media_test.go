package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected Kind
	}{
		{"jpg", "a.jpg", KindImage},
		{"upper case", "PHOTO.JPEG", KindImage},
		{"video", "clip.final.mp4", KindVideo},
		{"audio", "voice.flac", KindAudio},
		{"text", "x.txt", KindUnknown},
		{"no extension", "README", KindUnknown},
		{"trailing dot", "weird.", KindUnknown},
		{"empty", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyFilename(tt.filename))
			assert.Equal(t, tt.expected != KindUnknown, Allowed(tt.filename))
		})
	}
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindImage, ParseKind("Image"))
	assert.Equal(t, KindVideo, ParseKind(" video "))
	assert.Equal(t, KindAudio, ParseKind("audio"))
	assert.Equal(t, KindUnknown, ParseKind(""))
	assert.Equal(t, KindUnknown, ParseKind("document"))
}

func TestSupportedFormatsSorted(t *testing.T) {
	formats := SupportedFormats()
	require.Len(t, formats, 3)
	assert.Equal(t, []string{"bmp", "gif", "jpeg", "jpg", "png", "webp"}, formats[KindImage])

	// callers must not be able to mutate the table
	formats[KindImage][0] = "exe"
	assert.Equal(t, KindUnknown, ClassifyFilename("a.exe"))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSniffAndProbePNG(t *testing.T) {
	data := encodePNG(t, 12, 7)

	kind, mime := Sniff(data)
	assert.Equal(t, KindImage, kind)
	assert.Equal(t, "image/png", mime)

	info, err := ProbeImage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Format: "png", Width: 12, Height: 7}, info)
}

func TestSniffUnknown(t *testing.T) {
	kind, mime := Sniff([]byte("just some text"))
	assert.Equal(t, KindUnknown, kind)
	assert.Empty(t, mime)

	_, err := ProbeImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestFeatures(t *testing.T) {
	f := Features([]byte{0, 0, 255, 128}, 4)
	require.Len(t, f, 4)
	assert.InDelta(t, 0.5, f[0], 1e-9)
	assert.InDelta(t, 0.25, f[2], 1e-9)
	assert.InDelta(t, 0.25, f[3], 1e-9)

	var sum float64
	for _, v := range f {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	assert.Equal(t, make([]float64, 8), Features(nil, 8))
	assert.Nil(t, Features([]byte{1}, 0))
}
