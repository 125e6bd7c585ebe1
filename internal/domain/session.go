package domain

import (
	"time"
)

// DownloadSession is one in-flight or finished bulk album download.
type DownloadSession struct {
	ID           string        `json:"id"`
	AlbumID      string        `json:"album_id"`
	Status       SessionStatus `json:"status"`
	CurrentTrack int           `json:"current_track"`
	TotalTracks  int           `json:"total_tracks"`
	CurrentFile  string        `json:"current_file"`
	Message      string        `json:"message"`
	Destination  string        `json:"destination"`
	AlbumDir     string        `json:"album_dir,omitempty"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	Bytes        int64         `json:"bytes"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// Selection narrows an album download to a subset of its tracks.
// Ordinals take precedence over Names. A nil Names slice with no Ordinals selects every track.
type Selection struct {
	Names    []string
	Ordinals []int
}

// All reports whether the selection keeps every track.
func (s Selection) All() bool {
	return s.Names == nil && len(s.Ordinals) == 0
}

// Apply returns the tracks kept by the selection, in album order.
// Name matching is not unique-count-limited: every track carrying a selected name is kept.
func (s Selection) Apply(tracks []Track) []Track {
	if s.All() {
		return tracks
	}

	selected := make([]Track, 0, len(tracks))
	if len(s.Ordinals) > 0 {
		wanted := make(map[int]struct{}, len(s.Ordinals))
		for _, n := range s.Ordinals {
			wanted[n] = struct{}{}
		}
		for _, t := range tracks {
			if _, ok := wanted[t.Ordinal]; ok {
				selected = append(selected, t)
			}
		}
		return selected
	}

	wanted := make(map[string]struct{}, len(s.Names))
	for _, n := range s.Names {
		wanted[n] = struct{}{}
	}
	for _, t := range tracks {
		if _, ok := wanted[t.Name]; ok {
			selected = append(selected, t)
		}
	}
	return selected
}
