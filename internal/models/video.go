package models

import "time"

// Video is a single search hit with its engagement statistics. The order of a
// []*Video is the platform's ranking order and is never re-sorted.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	URL          string    `json:"url"`
}

// WatchURL returns the public link for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
