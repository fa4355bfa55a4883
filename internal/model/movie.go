package model

import "time"

// Age ratings accepted for a movie.
var AgeRatings = []string{"U", "PG", "12A", "15", "18"}

// DefaultAgeRating is applied when a movie is created without a rating.
const DefaultAgeRating = "PG"

// Movie is a catalog entry managed by admins.  Titles are unique ignoring
// case; Slug is derived from the title and can be used in place of the id
// for lookups.
type Movie struct {
    ID          string    `json:"_id"`
    Title       string    `json:"title"`
    Slug        string    `json:"slug"`
    Description string    `json:"description"`
    Duration    int       `json:"duration"` // minutes
    Language    string    `json:"language"`
    Genre       string    `json:"genre"`
    ReleaseDate string    `json:"releaseDate"` // YYYY-MM-DD
    Poster      string    `json:"poster"`
    AgeRating   string    `json:"ageRating"`
    OwnerID     string    `json:"userId"`
    CreatedAt   time.Time `json:"createdAt"`
    UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidAgeRating reports whether r is one of AgeRatings.
func ValidAgeRating(r string) bool {
    for _, a := range AgeRatings {
        if a == r {
            return true
        }
    }
    return false
}
