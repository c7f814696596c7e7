package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

const coachingColumns = `id, user_id, type, priority, message, recommended_action, behavior,
	account_id, contact_id, resolved, resolved_at, created_at, updated_at`

// InsertCoachingSignal inserts a coaching signal.
func (db *DB) InsertCoachingSignal(ctx context.Context, s *crm.CoachingSignal) error {
	now := db.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO coaching_signals (`+coachingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Type), string(s.Priority), s.Message,
		nullString(s.RecommendedAction), behaviorArg(s.Behavior), nullString(s.AccountID),
		nullString(s.ContactID), s.Resolved, formatTimePtr(s.ResolvedAt),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	return crm.Persistence("insert coaching signal", err)
}

// UpdateCoachingSignal overwrites a coaching signal's content and
// resolution state. UpdatedAt is set to the store clock.
func (db *DB) UpdateCoachingSignal(ctx context.Context, s *crm.CoachingSignal) error {
	s.UpdatedAt = db.now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE coaching_signals SET priority = ?, message = ?, recommended_action = ?,
		behavior = ?, account_id = ?, contact_id = ?, resolved = ?, resolved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(s.Priority), s.Message, nullString(s.RecommendedAction), behaviorArg(s.Behavior),
		nullString(s.AccountID), nullString(s.ContactID), s.Resolved, formatTimePtr(s.ResolvedAt),
		formatTime(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return crm.Persistence("update coaching signal", err)
	}
	return affectedOrNotFound(res, "coaching signal", s.ID)
}

// GetCoachingSignal returns the coaching signal with the given id, or
// crm.ErrNotFound.
func (db *DB) GetCoachingSignal(ctx context.Context, id string) (*crm.CoachingSignal, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+coachingColumns+" FROM coaching_signals WHERE id = ?", id)
	s, err := scanCoachingSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.NotFoundf("coaching signal %q not found", id)
	}
	if err != nil {
		return nil, crm.Persistence("get coaching signal", err)
	}
	return s, nil
}

// ListCoachingSignals returns coaching signals, newest first.
func (db *DB) ListCoachingSignals(ctx context.Context, f crm.CoachingSignalFilter) ([]crm.CoachingSignal, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	if f.OnlyUnresolved {
		w.add("resolved = false")
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+coachingColumns+" FROM coaching_signals"+w.String()+
			" ORDER BY created_at DESC, id ASC"+limitClause(f.Limit, 0),
		w.args...)
	if err != nil {
		return nil, crm.Persistence("list coaching signals", err)
	}
	defer func() { _ = rows.Close() }()

	var signals []crm.CoachingSignal
	for rows.Next() {
		s, err := scanCoachingSignal(rows)
		if err != nil {
			return nil, crm.Persistence("scan coaching signal", err)
		}
		signals = append(signals, *s)
	}
	return signals, crm.Persistence("list coaching signals", rows.Err())
}

func scanCoachingSignal(row scanner) (*crm.CoachingSignal, error) {
	var s crm.CoachingSignal
	var typ, priority, createdAt, updatedAt string
	var action, behavior, accountID, contactID, resolvedAt sql.NullString
	if err := row.Scan(&s.ID, &s.UserID, &typ, &priority, &s.Message, &action, &behavior,
		&accountID, &contactID, &s.Resolved, &resolvedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.Type = crm.SignalType(typ)
	s.Priority = crm.Priority(priority)
	s.RecommendedAction = action.String
	if behavior.Valid && behavior.String != "" {
		b := crm.BehaviorType(behavior.String)
		s.Behavior = &b
	}
	s.AccountID = accountID.String
	s.ContactID = contactID.String
	s.ResolvedAt = parseNullTime(resolvedAt)
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func behaviorArg(b *crm.BehaviorType) any {
	if b == nil {
		return nil
	}
	return string(*b)
}

// InsertCompetitorSignal inserts a competitor signal.
func (db *DB) InsertCompetitorSignal(ctx context.Context, s *crm.CompetitorSignal) error {
	if s.DetectedAt.IsZero() {
		s.DetectedAt = db.now()
	}
	var confidence any
	if s.Confidence != nil {
		confidence = *s.Confidence
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO competitor_signals
		(id, user_id, account_id, activity_id, competitor, type, description, confidence, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.AccountID, nullString(s.ActivityID), s.Competitor, string(s.Type),
		s.Description, confidence, formatTime(s.DetectedAt),
	)
	return crm.Persistence("insert competitor signal", err)
}

// ListCompetitorSignals returns competitor signals, newest first.
func (db *DB) ListCompetitorSignals(ctx context.Context, f crm.CompetitorSignalFilter) ([]crm.CompetitorSignal, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.AccountID != "" {
		w.add("account_id = ?", f.AccountID)
	}
	if f.Competitor != "" {
		w.add("lower(competitor) = ?", strings.ToLower(f.Competitor))
	}
	if !f.From.IsZero() {
		w.add("detected_at >= ?", formatTime(f.From))
	}
	if !f.To.IsZero() {
		w.add("detected_at < ?", formatTime(f.To))
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, account_id, activity_id, competitor, type, description, confidence, detected_at
		FROM competitor_signals`+w.String()+" ORDER BY detected_at DESC, id ASC"+limitClause(f.Limit, 0),
		w.args...)
	if err != nil {
		return nil, crm.Persistence("list competitor signals", err)
	}
	defer func() { _ = rows.Close() }()

	var signals []crm.CompetitorSignal
	for rows.Next() {
		var s crm.CompetitorSignal
		var activityID sql.NullString
		var typ, detectedAt string
		var confidence sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.UserID, &s.AccountID, &activityID, &s.Competitor, &typ,
			&s.Description, &confidence, &detectedAt); err != nil {
			return nil, crm.Persistence("scan competitor signal", err)
		}
		s.ActivityID = activityID.String
		s.Type = crm.CompetitorSignalType(typ)
		if confidence.Valid {
			c := confidence.Float64
			s.Confidence = &c
		}
		s.DetectedAt = parseTime(detectedAt)
		signals = append(signals, s)
	}
	return signals, crm.Persistence("list competitor signals", rows.Err())
}
