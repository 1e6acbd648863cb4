package media

import (
	"sort"
	"strings"
)

// Kind is the broad media category of an upload
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// Kinds lists the analysable media kinds in display order
var Kinds = []Kind{KindImage, KindVideo, KindAudio}

var allowedExtensions = map[Kind][]string{
	KindImage: {"jpg", "jpeg", "png", "gif", "webp", "bmp"},
	KindVideo: {"mp4", "avi", "mov", "webm", "mkv", "flv"},
	KindAudio: {"mp3", "wav", "m4a", "ogg", "flac", "aac"},
}

var extensionKinds = func() map[string]Kind {
	m := make(map[string]Kind)
	for kind, exts := range allowedExtensions {
		for _, ext := range exts {
			m[ext] = kind
		}
	}
	return m
}()

// ParseKind maps a user-supplied string onto a Kind, case-insensitively
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindImage:
		return KindImage
	case KindVideo:
		return KindVideo
	case KindAudio:
		return KindAudio
	default:
		return KindUnknown
	}
}

// Extension returns the lower-cased text after the last dot, or "" if there is none
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// ClassifyFilename determines the media kind from the file extension
func ClassifyFilename(filename string) Kind {
	if kind, ok := extensionKinds[Extension(filename)]; ok {
		return kind
	}
	return KindUnknown
}

// Allowed reports whether the filename has a supported extension
func Allowed(filename string) bool {
	return ClassifyFilename(filename) != KindUnknown
}

// SupportedFormats returns a sorted copy of the extension table
func SupportedFormats() map[Kind][]string {
	out := make(map[Kind][]string, len(allowedExtensions))
	for kind, exts := range allowedExtensions {
		sorted := append([]string(nil), exts...)
		sort.Strings(sorted)
		out[kind] = sorted
	}
	return out
}
