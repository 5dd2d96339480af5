package dto

// AudioRequest is used for create and partial update; nil fields are not
// written on update.
type AudioRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Image       *string   `json:"image"`
	Author      *string   `json:"author"`
	URL         *string   `json:"url"`
	Tags        *[]string `json:"tags"`
	Duration    *float64  `json:"duration"`
	Gold        *bool     `json:"gold"`
}

type PlaylistRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Images      *[]string `json:"images"`
	Author      *string `json:"author"`
	Chapters    *[]string `json:"chapters"`
	Tags        *[]string `json:"tags"`
	Duration    *float64 `json:"duration"`
}

type ChapterInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	Tags        []string `json:"tags"`
	Duration    *float64 `json:"duration"`
}

type BulkPlaylistRequest struct {
	Playlist *PlaylistRequest `json:"playlist"`
	Chapters []ChapterInput `json:"chapters"`
}

type UpdateChaptersRequest struct {
	Chapters []string `json:"chapters"`
}
