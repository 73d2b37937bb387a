package models

// Slide is one image and caption shown during playback.
type Slide struct {
	ImageURL  string `json:"imageUrl"`
	Caption   string `json:"caption"`
	PostID    string `json:"postId,omitempty"`
	PostTitle string `json:"postTitle,omitempty"`
}
