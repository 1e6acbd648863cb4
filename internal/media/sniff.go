package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SniffLen is how many leading bytes Sniff needs to recognise a format
const SniffLen = 512

// ImageInfo describes the decoded header of an uploaded image
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Sniff inspects the leading bytes of a file and reports what the content
// looks like. The result is informational; the extension decides the kind.
func Sniff(header []byte) (Kind, string) {
	t, err := filetype.Match(header)
	if err != nil || t == filetype.Unknown {
		return KindUnknown, ""
	}

	switch {
	case filetype.IsImage(header):
		return KindImage, t.MIME.Value
	case filetype.IsVideo(header):
		return KindVideo, t.MIME.Value
	case filetype.IsAudio(header):
		return KindAudio, t.MIME.Value
	default:
		return KindUnknown, t.MIME.Value
	}
}

// ProbeImage reads only the image header to report format and dimensions
func ProbeImage(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Features reduces raw file bytes to a normalised histogram of dim buckets.
// It is the input vector of the learned classifier.
func Features(data []byte, dim int) []float64 {
	if dim <= 0 {
		return nil
	}
	features := make([]float64, dim)
	if len(data) == 0 {
		return features
	}
	for _, b := range data {
		features[int(b)*dim/256]++
	}
	n := float64(len(data))
	for i := range features {
		features[i] /= n
	}
	return features
}
