package model

import (
	"fmt"
	"math"
	"time"
)

// Rater identifies who submitted a rating: either a checked-in guest or an
// authenticated user.  Exactly one of the fields is set.
type Rater struct {
	GuestID uint64 `json:"guest_id,omitempty"`
	UserID  uint64 `json:"user_id,omitempty"`
}

// Key returns the stable identity used for the (song, rater) upsert.
func (r Rater) Key() string {
	if r.GuestID != 0 {
		return fmt.Sprintf("guest:%d", r.GuestID)
	}
	return fmt.Sprintf("user:%d", r.UserID)
}

// Valid reports whether exactly one identity is present.
func (r Rater) Valid() bool {
	return (r.GuestID != 0) != (r.UserID != 0)
}

// Rating is one star score per (song, rater).
//
// Fields:
//  SongID  – rated song.
//  Rater   – rating identity.
//  Stars   – 1..5.
//  RatedAt – time of the latest submission.
type Rating struct {
	SongID  uint64    `json:"song_id"`  // song_ratings.song_id
	Rater   Rater     `json:"rater"`    // song_ratings.rater_key
	Stars   int       `json:"stars"`    // song_ratings.stars
	RatedAt time.Time `json:"rated_at"` // song_ratings.rated_at
}

// RatingSummary is the running aggregate for a song.  Average is nil when
// no ratings exist.
type RatingSummary struct {
	SongID  uint64   `json:"song_id"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// ValidStars reports whether stars is within 1..5.
func ValidStars(stars int) bool { return stars >= 1 && stars <= 5 }

// Summarize builds a summary from a star total and a count.  The average is
// rounded to two decimals.
func Summarize(songID uint64, total, count int) RatingSummary {
	sum := RatingSummary{SongID: songID, Count: count}
	if count == 0 {
		return sum
	}
	avg := math.Round(float64(total)/float64(count)*100) / 100
	sum.Average = &avg
	return sum
}
