package domain

// ItemType distinguishes listing entries that open an album from entries that re-run a search.
type ItemType string

const (
	ItemTypeAlbum  ItemType = "album"
	ItemTypeSeries ItemType = "series"
)

// AlbumSummary is one search or browse result.
type AlbumSummary struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Icon string   `json:"icon,omitempty"`
	Type ItemType `json:"type,omitempty"`
}

// AlbumDetail is the full record extracted from an album page.
type AlbumDetail struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Icon        string  `json:"icon,omitempty"`
	Tracks      []Track `json:"tracks"`
	TotalTracks int     `json:"total_tracks"`
}

// Track is one downloadable item of an album. URL points to the track page, not the audio file.
type Track struct {
	Ordinal int    `json:"number"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// HomeSections holds the browse blocks of the site's home page.
type HomeSections struct {
	Popular []AlbumSummary `json:"popular"`
	Latest  []AlbumSummary `json:"latest"`
}
