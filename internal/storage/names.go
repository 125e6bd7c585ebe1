package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// DefaultAudioExt is appended when neither the track name nor the audio URL carries a known extension.
const DefaultAudioExt = ".mp3"

// AudioExtensions lists the file extensions treated as audio.
var AudioExtensions = []string{".mp3", ".flac", ".ogg", ".wav", ".m4a"}

// SafeName keeps letters, digits, spaces and "-_." and trims surrounding whitespace.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// AlbumDirName returns the directory name used for an album title. Surrounding dots
// are also trimmed so the result is never "..", hidden, or rejected on Windows.
func AlbumDirName(title string) string {
	if name := strings.Trim(SafeName(title), " ."); name != "" {
		return name
	}
	return "Unknown Album"
}

// TrackFileName builds "{NN} - {safe name}{ext}" for a track.
// The extension comes from the audio URL when it is a known audio type.
func TrackFileName(ordinal int, name, audioURL string) string {
	base := fmt.Sprintf("%02d - %s", ordinal, SafeName(name))
	if HasAudioExt(base) {
		return base
	}
	return base + audioExt(audioURL)
}

// HasAudioExt reports whether name ends in one of AudioExtensions.
func HasAudioExt(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range AudioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func audioExt(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	for _, known := range AudioExtensions {
		if ext == known {
			return ext
		}
	}
	return DefaultAudioExt
}
