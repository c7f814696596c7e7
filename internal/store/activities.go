package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

const activityColumns = `id, user_id, account_id, contact_id, kind, behavior, description,
	quality_score, quantity_score, duration_min, sentiment_score, next_action_date,
	outcome, performed_at, created_at`

// InsertActivity inserts an activity.
func (db *DB) InsertActivity(ctx context.Context, a *crm.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.AccountID, nullString(a.ContactID), string(a.Kind), string(a.Behavior),
		a.Description, a.QualityScore, a.QuantityScore, a.DurationMin, intPtrArg(a.SentimentScore),
		formatTimePtr(a.NextActionDate), outcomeArg(a.Outcome), formatTime(a.PerformedAt),
		formatTime(a.CreatedAt),
	)
	return crm.Persistence("insert activity", err)
}

// UpdateActivity overwrites the mutable fields of an existing activity.
func (db *DB) UpdateActivity(ctx context.Context, a *crm.Activity) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE activities SET account_id = ?, contact_id = ?, kind = ?, behavior = ?,
		description = ?, quality_score = ?, quantity_score = ?, duration_min = ?,
		sentiment_score = ?, next_action_date = ?, outcome = ?, performed_at = ?
		WHERE id = ?`,
		a.AccountID, nullString(a.ContactID), string(a.Kind), string(a.Behavior),
		a.Description, a.QualityScore, a.QuantityScore, a.DurationMin, intPtrArg(a.SentimentScore),
		formatTimePtr(a.NextActionDate), outcomeArg(a.Outcome), formatTime(a.PerformedAt), a.ID,
	)
	if err != nil {
		return crm.Persistence("update activity", err)
	}
	return affectedOrNotFound(res, "activity", a.ID)
}

// DeleteActivity removes an activity by id.
func (db *DB) DeleteActivity(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id)
	if err != nil {
		return crm.Persistence("delete activity", err)
	}
	return affectedOrNotFound(res, "activity", id)
}

// GetActivity returns the activity with the given id, or crm.ErrNotFound.
func (db *DB) GetActivity(ctx context.Context, id string) (*crm.Activity, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?", id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.NotFoundf("activity %q not found", id)
	}
	if err != nil {
		return nil, crm.Persistence("get activity", err)
	}
	return a, nil
}

// ListActivities returns activities matching the filter, ordered by
// performed_at (ascending unless f.Newest).
func (db *DB) ListActivities(ctx context.Context, f crm.ActivityFilter) ([]crm.Activity, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.AccountID != "" {
		w.add("account_id = ?", f.AccountID)
	}
	if !f.From.IsZero() {
		w.add("performed_at >= ?", formatTime(f.From))
	}
	if !f.To.IsZero() {
		w.add("performed_at < ?", formatTime(f.To))
	}

	order := " ORDER BY performed_at ASC, id ASC"
	if f.Newest {
		order = " ORDER BY performed_at DESC, id DESC"
	}
	query := "SELECT " + activityColumns + " FROM activities" + w.String() + order + limitClause(f.Limit, f.Offset)

	rows, err := db.conn.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, crm.Persistence("list activities", err)
	}
	defer func() { _ = rows.Close() }()

	var activities []crm.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, crm.Persistence("scan activity", err)
		}
		activities = append(activities, *a)
	}
	return activities, crm.Persistence("list activities", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (*crm.Activity, error) {
	var a crm.Activity
	var kind, behavior string
	var contactID, nextAction, outcome sql.NullString
	var sentiment sql.NullInt64
	var performedAt, createdAt string
	if err := row.Scan(
		&a.ID, &a.UserID, &a.AccountID, &contactID, &kind, &behavior, &a.Description,
		&a.QualityScore, &a.QuantityScore, &a.DurationMin, &sentiment, &nextAction,
		&outcome, &performedAt, &createdAt,
	); err != nil {
		return nil, err
	}
	a.ContactID = contactID.String
	a.Kind = crm.ActivityKind(kind)
	a.Behavior = crm.BehaviorType(behavior)
	if sentiment.Valid {
		v := int(sentiment.Int64)
		a.SentimentScore = &v
	}
	a.NextActionDate = parseNullTime(nextAction)
	if outcome.Valid && outcome.String != "" {
		tag := crm.OutcomeTag(outcome.String)
		a.Outcome = &tag
	}
	a.PerformedAt = parseTime(performedAt)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func intPtrArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func outcomeArg(t *crm.OutcomeTag) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		if offset > 0 {
			return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
		}
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func affectedOrNotFound(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return crm.Persistence("rows affected", err)
	}
	if n == 0 {
		return crm.NotFoundf("%s %q not found", entity, id)
	}
	return nil
}
