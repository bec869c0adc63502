package domain

import "time"

// Post is a blog article published by a health professional or organisation.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) IsAuthoredBy(userID string) bool {
	return p != nil && userID != "" && p.AuthorID == userID
}
