package entities

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Book struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ISBN      string    `gorm:"column:isbn;uniqueIndex;size:20;not null" json:"isbn"`
	Title     string    `gorm:"index;size:512;not null" json:"title"`
	Author    string    `gorm:"index;size:256;not null" json:"author"`
	Year      int       `gorm:"not null" json:"year"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is unique per (book_id, user_id); the composite index is the only
// guard against duplicate submissions racing each other.
type Review struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BookID      uint      `gorm:"not null;uniqueIndex:idx_book_reviews_book_user,priority:1" json:"book_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_book_reviews_book_user,priority:2;index" json:"user_id"`
	DateCreated time.Time `gorm:"not null" json:"date_created"`
	Rating      int       `gorm:"not null" json:"rating"`
	Review      string    `gorm:"type:text" json:"review"`
	Book        Book      `gorm:"foreignKey:BookID" json:"-"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
}

func (Review) TableName() string {
	return "book_reviews"
}

// BookStats holds the values derived from a book's reviews.
type BookStats struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

// BookWithStats is a catalog entry hydrated with its review aggregates.
type BookWithStats struct {
	Book
	BookStats
}

// ReviewView is a review as shown on a book page.
type ReviewView struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	DateCreated time.Time `json:"date_created"`
	Rating      int       `json:"rating"`
	Review      string    `json:"review"`
}
