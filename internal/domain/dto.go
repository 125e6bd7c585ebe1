package domain

// SearchRequest represents the request body for an album search.
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []AlbumSummary `json:"results"`
}

// StartDownloadRequest represents the request body for starting an album download.
type StartDownloadRequest struct {
	AlbumID          string   `json:"album_id" validate:"required,album_ref"`
	OutputPath       string   `json:"output_path,omitempty" validate:"max=4096"`
	SelectedTracks   []string `json:"selected_tracks,omitempty" validate:"omitempty,max=1000"`
	SelectedOrdinals []int    `json:"selected_ordinals,omitempty" validate:"omitempty,max=1000,dive,min=1"`
}

// Selection converts the request's track filters.
func (r *StartDownloadRequest) Selection() Selection {
	return Selection{Names: r.SelectedTracks, Ordinals: r.SelectedOrdinals}
}

// StartDownloadResponse is returned once a download has been accepted.
type StartDownloadResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}
