package domain

import "github.com/shopspring/decimal"

// Collaborator is the talent profile behind project participation. The rating
// aggregate is written by the review system, read here.
type Collaborator struct {
	ID              string          `db:"id"`
	UserID          string          `db:"user_id"`
	StageName       string          `db:"stage_name"`
	Bio             string          `db:"bio"`
	PrimarySkill    string          `db:"primary_skill"`
	ExperienceLevel string          `db:"experience_level"`
	HourlyRateMin   decimal.Decimal `db:"hourly_rate_min"`
	HourlyRateMax   decimal.Decimal `db:"hourly_rate_max"`
	RatingAverage   float64         `db:"rating_average"`
	RatingCount     int             `db:"rating_count"`
	Completed       int             `db:"completed_collaborations"`
	Active          int             `db:"active_collaborations"`
	CreatedAt       string          `db:"created_at"`
	UpdatedAt       string          `db:"updated_at"`
}
