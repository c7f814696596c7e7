package store

import (
	"context"
	"database/sql"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// InsertBehaviorScores inserts behavior score rows.
func (db *DB) InsertBehaviorScores(ctx context.Context, scores []crm.BehaviorScore) error {
	for i := range scores {
		s := &scores[i]
		if s.CreatedAt.IsZero() {
			s.CreatedAt = db.now()
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO behavior_scores
			(id, user_id, behavior, intensity, diversity, quality, period_start, period_end, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.UserID, string(s.Behavior), s.Intensity, s.Diversity, s.Quality,
			formatTime(s.PeriodStart), formatTime(s.PeriodEnd), formatTime(s.CreatedAt),
		); err != nil {
			return crm.Persistence("insert behavior score", err)
		}
	}
	return nil
}

// DeleteBehaviorScores removes the user's behavior scores for exactly the
// given period.
func (db *DB) DeleteBehaviorScores(ctx context.Context, userID string, period crm.Period) error {
	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM behavior_scores WHERE user_id = ? AND period_start = ? AND period_end = ?",
		userID, formatTime(period.Start), formatTime(period.End),
	)
	return crm.Persistence("delete behavior scores", err)
}

// ListBehaviorScores returns behavior scores whose period overlaps the
// filter range, most recently started first.
func (db *DB) ListBehaviorScores(ctx context.Context, f crm.BehaviorScoreFilter) ([]crm.BehaviorScore, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if !f.To.IsZero() {
		w.add("period_start < ?", formatTime(f.To))
	}
	if !f.From.IsZero() {
		w.add("period_end > ?", formatTime(f.From))
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, behavior, intensity, diversity, quality, period_start, period_end, created_at
		FROM behavior_scores`+w.String()+` ORDER BY period_start DESC, id ASC`,
		w.args...)
	if err != nil {
		return nil, crm.Persistence("list behavior scores", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []crm.BehaviorScore
	for rows.Next() {
		var s crm.BehaviorScore
		var behavior, start, end, createdAt string
		if err := rows.Scan(&s.ID, &s.UserID, &behavior, &s.Intensity, &s.Diversity, &s.Quality,
			&start, &end, &createdAt); err != nil {
			return nil, crm.Persistence("scan behavior score", err)
		}
		s.Behavior = crm.BehaviorType(behavior)
		s.PeriodStart = parseTime(start)
		s.PeriodEnd = parseTime(end)
		s.CreatedAt = parseTime(createdAt)
		scores = append(scores, s)
	}
	return scores, crm.Persistence("list behavior scores", rows.Err())
}

// InsertOutcome inserts an outcome snapshot.
func (db *DB) InsertOutcome(ctx context.Context, o *crm.Outcome) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO outcomes
		(id, user_id, account_id, period_type, period_start, period_end, hir, conversion_rate,
		 field_growth_rate, prescription_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, nullString(o.AccountID), string(o.PeriodType),
		formatTime(o.PeriodStart), formatTime(o.PeriodEnd), o.HIR, o.ConversionRate,
		o.FieldGrowthRate, o.PrescriptionIndex, formatTime(o.CreatedAt),
	)
	return crm.Persistence("insert outcome", err)
}

// DeleteOutcomes removes the user's user-scoped outcomes of the given type
// for exactly the given period.
func (db *DB) DeleteOutcomes(ctx context.Context, userID string, periodType crm.PeriodType, period crm.Period) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM outcomes WHERE user_id = ? AND period_type = ? AND period_start = ?
		AND period_end = ? AND account_id IS NULL`,
		userID, string(periodType), formatTime(period.Start), formatTime(period.End),
	)
	return crm.Persistence("delete outcomes", err)
}

// ListOutcomes returns outcomes whose period overlaps the filter range,
// ordered by period_start ascending.
func (db *DB) ListOutcomes(ctx context.Context, f crm.OutcomeFilter) ([]crm.Outcome, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.AccountID != "" {
		w.add("account_id = ?", f.AccountID)
	}
	if f.PeriodType != "" {
		w.add("period_type = ?", string(f.PeriodType))
	}
	if !f.To.IsZero() {
		w.add("period_start < ?", formatTime(f.To))
	}
	if !f.From.IsZero() {
		w.add("period_end > ?", formatTime(f.From))
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, account_id, period_type, period_start, period_end, hir,
		conversion_rate, field_growth_rate, prescription_index, created_at
		FROM outcomes`+w.String()+` ORDER BY period_start ASC, id ASC`,
		w.args...)
	if err != nil {
		return nil, crm.Persistence("list outcomes", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []crm.Outcome
	for rows.Next() {
		var o crm.Outcome
		var accountID sql.NullString
		var periodType, start, end, createdAt string
		if err := rows.Scan(&o.ID, &o.UserID, &accountID, &periodType, &start, &end, &o.HIR,
			&o.ConversionRate, &o.FieldGrowthRate, &o.PrescriptionIndex, &createdAt); err != nil {
			return nil, crm.Persistence("scan outcome", err)
		}
		o.AccountID = accountID.String
		o.PeriodType = crm.PeriodType(periodType)
		o.PeriodStart = parseTime(start)
		o.PeriodEnd = parseTime(end)
		o.CreatedAt = parseTime(createdAt)
		outcomes = append(outcomes, o)
	}
	return outcomes, crm.Persistence("list outcomes", rows.Err())
}
