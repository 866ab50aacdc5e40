package models

import "time"

// Season identifies the part of the academic year a term covers.
type Season string

const (
	SeasonFall   Season = "fall"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
)

// Term models an academic term. Terms are immutable once created.
type Term struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Season    Season    `db:"season" json:"season"`
	Year      int       `db:"year" json:"year"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
