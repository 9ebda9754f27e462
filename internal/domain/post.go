package domain

import "time"

// Post is an article submitted by a user. It stays hidden from the public feed until validated.
type Post struct {
	ID              int64
	Title           string
	Content         string
	ImageURL        string
	Attachments     string
	Validated       bool
	AuthorID        int64
	ParasiteAgentID *int64
	HostID          *int64
	TransmissionID  *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PostView is a post joined with the display names of its references.
type PostView struct {
	Post
	AuthorName        string
	ParasiteAgentName string
	HostName          string
	TransmissionName  string
}

// PostFilter narrows post listings. Nil fields do not filter.
type PostFilter struct {
	Validated *bool
	AuthorID  *int64
}
