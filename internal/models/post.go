package models

import (
	"time"
)

// Post represents a blog post. Status true means published.
type Post struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Slug             string    `gorm:"uniqueIndex;not null" json:"slug"`
	Title            string    `gorm:"not null" json:"title"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	Status           bool      `gorm:"not null;index" json:"status"`
	FeaturedImageURL string    `json:"featuredImageUrl"`
	OwnerID          uint      `gorm:"not null;index" json:"owner"`
	Owner            *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PostDetail is a single post together with its owner's public profile.
type PostDetail struct {
	Post
	Author PublicProfile `json:"author"`
}

// FeedItem is the projection used by the global feed.
type FeedItem struct {
	Title            string `json:"title"`
	Slug             string `json:"slug"`
	FeaturedImageURL string `json:"featuredImageUrl"`
}

// UserPostItem is the projection used when listing one user's posts.
type UserPostItem struct {
	Title            string `json:"title"`
	Slug             string `json:"slug"`
	FeaturedImageURL string `json:"featuredImageUrl"`
	Status           bool   `json:"status"`
}

// FeedPage is one page of the global feed.
type FeedPage struct {
	Posts        []FeedItem `json:"posts"`
	HasMorePosts bool       `json:"hasMorePosts"`
}
