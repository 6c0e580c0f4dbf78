package model

import (
	"time"

	"gorm.io/datatypes"
)

// Genres 与 Platforms 是表单允许的取值
var Genres = []string{
	"Action", "Adventure", "RPG", "Strategy", "Sports", "Racing", "Puzzle",
	"Simulation", "Fighting", "Shooter", "Horror", "Platform", "MMORPG", "Battle Royale",
}

var Platforms = []string{
	"PC", "PlayStation 5", "PlayStation 4", "Xbox Series X/S", "Xbox One",
	"Nintendo Switch", "Mobile", "VR",
}

const MinReleaseYear = 1970

type Game struct {
	ID            uint64                      `gorm:"primaryKey" json:"id"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Genre         string                      `gorm:"size:32;not null" json:"genre"`
	Description   string                      `gorm:"type:text" json:"description"`
	ImageURL      string                      `gorm:"size:512" json:"image_url"`
	Platforms     datatypes.JSONSlice[string] `json:"platform"`
	ReleaseYear   int                         `gorm:"not null" json:"release_year"`
	AuthorID      uint64                      `gorm:"not null;index" json:"author_id"`
	AuthorEmail   string                      `gorm:"size:64" json:"author_email"`
	ReviewsCount  int64                       `gorm:"not null;default:0" json:"reviews_count"`
	RatingSum     int64                       `gorm:"not null;default:0" json:"-"`
	AverageRating float64                     `gorm:"not null;default:0" json:"average_rating"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func IsGenre(s string) bool {
	return contains(Genres, s)
}

func IsPlatform(s string) bool {
	return contains(Platforms, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
