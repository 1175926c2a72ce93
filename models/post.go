package models

import "time"

// Post is a topic-tagged article written by the site admin. The slug is
// derived from the title at creation time and is unique across all posts.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:160;not null" json:"title"`
	Slug      string    `gorm:"size:180;uniqueIndex;not null" json:"slug"`
	Topic     string    `gorm:"size:40;not null;index" json:"topic"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Media     []Media   `gorm:"constraint:OnDelete:CASCADE;" json:"media"`
}
