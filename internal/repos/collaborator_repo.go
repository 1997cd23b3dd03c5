package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"fefe/internal/domain"
)

type CollaboratorRepo struct{ db *sqlx.DB }

func NewCollaboratorRepo(db *sqlx.DB) *CollaboratorRepo { return &CollaboratorRepo{db: db} }

const collaboratorCols = `
  id, user_id, stage_name, COALESCE(bio,'') AS bio, primary_skill, experience_level,
  hourly_rate_min, hourly_rate_max, rating_average, rating_count,
  completed_collaborations, active_collaborations,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *CollaboratorRepo) Create(c *domain.Collaborator) error {
	_, err := r.db.Exec(`
	  INSERT INTO collaborators(id, user_id, stage_name, bio, primary_skill,
	    experience_level, hourly_rate_min, hourly_rate_max)
	  VALUES (?,?,?,?,?,?,?,?)
	`, c.ID, c.UserID, c.StageName, c.Bio, c.PrimarySkill,
		c.ExperienceLevel, c.HourlyRateMin, c.HourlyRateMax)
	return err
}

func (r *CollaboratorRepo) ByID(id string) (*domain.Collaborator, error) {
	var c domain.Collaborator
	err := r.db.Get(&c, `SELECT `+collaboratorCols+` FROM collaborators WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ByUserID resolves a user's collaborator profile. domain.ErrNotFound when
// the user never created one.
func (r *CollaboratorRepo) ByUserID(userID string) (*domain.Collaborator, error) {
	var c domain.Collaborator
	err := r.db.Get(&c, `SELECT `+collaboratorCols+` FROM collaborators WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// AdjustCounters applies atomic deltas to the collaboration counters.
// active never drops below zero.
func (r *CollaboratorRepo) AdjustCounters(id string, completedDelta, activeDelta int) error {
	_, err := r.db.Exec(`
	  UPDATE collaborators SET
	    completed_collaborations = completed_collaborations + ?,
	    active_collaborations = MAX(0, active_collaborations + ?),
	    updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, completedDelta, activeDelta, id)
	return err
}
