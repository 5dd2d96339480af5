package dto

// UpdatePlayHistoryRequest is the client's full view of its cursor. Optional
// numbers and lists default to zero values.
type UpdatePlayHistoryRequest struct {
	UserID              string   `json:"userId"`
	PlaylistID          string   `json:"playlistId"`
	CurrentChapterIndex *int     `json:"currentChapterIndex"`
	CurrentChapterID    string   `json:"currentChapterId"`
	PositionSeconds     *float64 `json:"positionSeconds"`
	CompletedChapters   []string `json:"completedChapters"`
	IsCompleted         *bool    `json:"isCompleted"`
}

type ToggleBookmarkRequest struct {
	UserID     string `json:"userId"`
	PlaylistID string `json:"playlistId"`
}

type BookmarkStatusResponse struct {
	Success    bool `json:"success"`
	Bookmarked bool `json:"bookmarked"`
}
