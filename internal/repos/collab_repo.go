package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
)

type CollabRepo struct{ db *sqlx.DB }

func NewCollabRepo(db *sqlx.DB) *CollabRepo { return &CollabRepo{db: db} }

type collabRow struct {
	ID            string          `db:"id"`
	Title         string          `db:"title"`
	Description   string          `db:"description"`
	ProjectType   string          `db:"project_type"`
	Genre         string          `db:"genre"`
	InitiatorID   string          `db:"initiator_id"`
	StartDate     string          `db:"start_date"`
	EndDate       string          `db:"end_date"`
	BudgetTotal   decimal.Decimal `db:"budget_total"`
	Currency      string          `db:"budget_currency"`
	CommissionPct decimal.Decimal `db:"commission_pct"`
	CommissionAmt decimal.Decimal `db:"commission_amount"`
	Status        string          `db:"status"`
	CollabType    string          `db:"collab_type"`
	Views         int             `db:"views"`
	Applications  int             `db:"applications"`
	Version       int             `db:"version"`
	CreatedAt     string          `db:"created_at"`
	UpdatedAt     string          `db:"updated_at"`
}

const collabCols = `
  id, title, COALESCE(description,'') AS description, project_type, genre,
  initiator_id, COALESCE(start_date,'') AS start_date, COALESCE(end_date,'') AS end_date,
  budget_total, budget_currency, commission_pct, commission_amount,
  status, collab_type, views, applications, version,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (row collabRow) toDomain() *domain.Collaboration {
	return &domain.Collaboration{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		ProjectType: row.ProjectType,
		Genre:       row.Genre,
		InitiatorID: row.InitiatorID,
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
		Budget: domain.Budget{
			Total: row.BudgetTotal, Currency: row.Currency,
			CommissionPercent: row.CommissionPct, CommissionAmount: row.CommissionAmt,
		},
		Status:       domain.CollabStatus(row.Status),
		CollabType:   row.CollabType,
		Views:        row.Views,
		Applications: row.Applications,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// Create inserts the project header plus its skill and milestone children.
func (r *CollabRepo) Create(c *domain.Collaboration) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO collaborations(
	    id, title, description, project_type, genre, initiator_id,
	    start_date, end_date, budget_total, budget_currency,
	    commission_pct, commission_amount, status, collab_type, version
	  ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,1)
	`, c.ID, c.Title, c.Description, c.ProjectType, c.Genre, c.InitiatorID,
		c.StartDate, c.EndDate, c.Budget.Total, c.Budget.Currency,
		c.Budget.CommissionPercent, c.Budget.CommissionAmount,
		string(c.Status), c.CollabType); err != nil {
		return err
	}

	for _, s := range c.SkillsNeeded {
		if _, err := tx.Exec(`
		  INSERT INTO skills_needed(id, collaboration_id, skill, experience_level, description, is_filled, filled_by)
		  VALUES (?,?,?,?,?,0,'')
		`, s.ID, c.ID, s.Skill, s.ExperienceLevel, s.Description); err != nil {
			return err
		}
	}
	for _, m := range c.Milestones {
		if _, err := tx.Exec(`
		  INSERT INTO milestones(id, collaboration_id, title, description, due_date, status)
		  VALUES (?,?,?,?,?,'pending')
		`, m.ID, c.ID, m.Title, m.Description, m.DueDate); err != nil {
			return err
		}
	}

	c.Version = 1
	return tx.Commit()
}

func (r *CollabRepo) Get(id string) (*domain.Collaboration, error) {
	var row collabRow
	if err := r.db.Get(&row, `SELECT `+collabCols+` FROM collaborations WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c := row.toDomain()

	if err := r.db.Select(&c.Participants, `
	  SELECT id, collaboration_id, collaborator_id, role, status,
	    invited_at, COALESCE(responded_at,'') AS responded_at, COALESCE(joined_at,'') AS joined_at,
	    COALESCE(contribution,'') AS contribution, agreed_rate, rate_type
	  FROM participants WHERE collaboration_id = ? ORDER BY invited_at
	`, id); err != nil {
		return nil, err
	}
	if err := r.db.Select(&c.SkillsNeeded, `
	  SELECT id, collaboration_id, skill, experience_level,
	    COALESCE(description,'') AS description, is_filled, COALESCE(filled_by,'') AS filled_by
	  FROM skills_needed WHERE collaboration_id = ?
	`, id); err != nil {
		return nil, err
	}
	if err := r.db.Select(&c.Milestones, `
	  SELECT id, collaboration_id, title, COALESCE(description,'') AS description,
	    COALESCE(due_date,'') AS due_date, status
	  FROM milestones WHERE collaboration_id = ?
	`, id); err != nil {
		return nil, err
	}
	if err := r.db.Select(&c.Payments, `
	  SELECT id, collaboration_id, to_collaborator, amount, currency, status,
	    COALESCE(transaction_id,'') AS transaction_id, commission_amount,
	    COALESCE(paid_at,'') AS paid_at, created_at
	  FROM collab_payments WHERE collaboration_id = ? ORDER BY created_at
	`, id); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the mutable header fields under the optimistic version check.
func (r *CollabRepo) Save(c *domain.Collaboration) error {
	res, err := r.db.Exec(`
	  UPDATE collaborations SET
	    title = ?, description = ?, start_date = ?, end_date = ?,
	    budget_total = ?, budget_currency = ?, commission_pct = ?, commission_amount = ?,
	    status = ?,
	    version = version + 1, updated_at = ?
	  WHERE id = ? AND version = ?
	`, c.Title, c.Description, c.StartDate, c.EndDate,
		c.Budget.Total, c.Budget.Currency, c.Budget.CommissionPercent, c.Budget.CommissionAmount,
		string(c.Status), now(), c.ID, c.Version)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrVersionConflict
	}
	c.Version++
	return nil
}

// IncrementApplications bumps the counter in place, outside the header's
// version check, so concurrent applies and header writes never lose a count.
func (r *CollabRepo) IncrementApplications(id string) error {
	_, err := r.db.Exec(`
	  UPDATE collaborations SET applications = applications + 1, updated_at = ?
	  WHERE id = ?
	`, now(), id)
	return err
}

func (r *CollabRepo) AddParticipant(p *domain.Participant) error {
	_, err := r.db.Exec(`
	  INSERT INTO participants(id, collaboration_id, collaborator_id, role, status,
	    contribution, agreed_rate, rate_type)
	  VALUES (?,?,?,?,?,?,?,?)
	`, p.ID, p.CollabID, p.CollaboratorID, p.Role, string(p.Status),
		p.Contribution, p.AgreedRate, p.RateType)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrAlreadyApplied
	}
	return err
}

func (r *CollabRepo) UpdateParticipant(p *domain.Participant) error {
	_, err := r.db.Exec(`
	  UPDATE participants SET status = ?, responded_at = ?, joined_at = ?
	  WHERE id = ? AND collaboration_id = ?
	`, string(p.Status), p.RespondedAt, p.JoinedAt, p.ID, p.CollabID)
	return err
}

func (r *CollabRepo) FillSkill(skillID, collaboratorID string) error {
	_, err := r.db.Exec(`
	  UPDATE skills_needed SET is_filled = 1, filled_by = ? WHERE id = ?
	`, collaboratorID, skillID)
	return err
}

func (r *CollabRepo) AddTransfer(t *domain.Transfer) error {
	_, err := r.db.Exec(`
	  INSERT INTO collab_payments(id, collaboration_id, to_collaborator, amount,
	    currency, status, commission_amount)
	  VALUES (?,?,?,?,?,?,?)
	`, t.ID, t.CollabID, t.ToCollaboratorID, t.Amount, t.Currency, t.Status, t.CommissionAmount)
	return err
}

func (r *CollabRepo) IncrementViews(id string) error {
	_, err := r.db.Exec(`UPDATE collaborations SET views = views + 1 WHERE id = ?`, id)
	return err
}

// ---------- Listing ----------

type CollabFilter struct {
	Status      string
	ProjectType string
	Genre       string
	Skill       string
	MemberID    string // initiator or participant
	SortBy      string // recent | budget_high | budget_low | deadline
	Limit       int
	Offset      int
}

func (r *CollabRepo) List(f CollabFilter) ([]*domain.Collaboration, int, error) {
	where := `1=1`
	args := []any{}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	} else if f.MemberID == "" {
		// Public browse shows only joinable/active projects by default.
		// Member listings show everything the member is part of.
		where += ` AND status IN ('open_for_applications','in_progress')`
	}
	if f.ProjectType != "" {
		where += ` AND project_type = ?`
		args = append(args, f.ProjectType)
	}
	if f.Genre != "" {
		where += ` AND genre = ?`
		args = append(args, f.Genre)
	}
	if f.Skill != "" {
		where += ` AND id IN (SELECT collaboration_id FROM skills_needed WHERE skill = ? AND is_filled = 0)`
		args = append(args, f.Skill)
	}
	if f.MemberID != "" {
		where += ` AND (initiator_id = ? OR id IN (SELECT collaboration_id FROM participants WHERE collaborator_id = ?))`
		args = append(args, f.MemberID, f.MemberID)
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM collaborations WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	order := `datetime(created_at) DESC`
	switch f.SortBy {
	case "budget_high":
		order = `budget_total DESC`
	case "budget_low":
		order = `budget_total ASC`
	case "deadline":
		order = `datetime(end_date) ASC`
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	args = append(args, limit, f.Offset)

	var rows []collabRow
	if err := r.db.Select(&rows, `
	  SELECT `+collabCols+` FROM collaborations WHERE `+where+`
	  ORDER BY `+order+` LIMIT ? OFFSET ?
	`, args...); err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Collaboration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
