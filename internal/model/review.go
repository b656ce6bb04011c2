package model

import "time"

// Review is a client rating of the firm's service. UserName is joined in
// from the users table for display and not stored on the row itself.
type Review struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	ReviewType string    `json:"review_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserName   string    `json:"username"`
}

// ReviewStats aggregates all reviews into the figures shown on the
// marketing dashboard.
type ReviewStats struct {
	AverageRating   float64 `json:"average_rating"`
	TotalReviews    int64   `json:"total_reviews"`
	SatisfactionPct float64 `json:"satisfaction_percent"`
	NPS             int     `json:"nps"`
	TotalUsers      int64   `json:"total_users"`
	FiveStarsPct    float64 `json:"five_stars_percent"`
}
