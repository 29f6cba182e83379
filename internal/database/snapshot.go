package database

import (
	"context"
	"fmt"

	"github.com/hray3182/planbot/internal/models"
	"github.com/jackc/pgx/v5"
)

var planColumns = []string{
	"id", "user_id", "occurs_at", "description", "notify_lead_minutes",
	"notified", "recurrence", "recurrence_end_at", "parent_recurrence_id",
}

// Snapshotter stores the plan collection and the timezone map in Postgres.
// Each save replaces the table contents in one transaction.
type Snapshotter struct {
	db *DB
}

func NewSnapshotter(db *DB) *Snapshotter {
	return &Snapshotter{db: db}
}

func (s *Snapshotter) LoadPlans(ctx context.Context) ([]*models.Plan, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, user_id, occurs_at, description, notify_lead_minutes,
		        notified, recurrence, recurrence_end_at, parent_recurrence_id
		 FROM plans ORDER BY occurs_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p := &models.Plan{}
		var recurrence string
		var parent *string
		if err := rows.Scan(&p.ID, &p.UserID, &p.OccursAt, &p.Description, &p.NotifyLeadMinutes,
			&p.Notified, &recurrence, &p.RecurrenceEndAt, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.OccursAt = models.Floating(p.OccursAt)
		if p.RecurrenceEndAt != nil {
			end := models.Floating(*p.RecurrenceEndAt)
			p.RecurrenceEndAt = &end
		}
		p.Recurrence = models.ParseRecurrence(recurrence)
		if parent != nil {
			p.ParentRecurrenceID = *parent
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plans: %w", err)
	}
	return plans, nil
}

func (s *Snapshotter) SavePlans(ctx context.Context, plans []*models.Plan) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM plans"); err != nil {
			return fmt.Errorf("failed to clear plans: %w", err)
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"plans"}, planColumns,
			pgx.CopyFromSlice(len(plans), func(i int) ([]any, error) {
				p := plans[i]
				var parent *string
				if p.ParentRecurrenceID != "" {
					parent = &p.ParentRecurrenceID
				}
				return []any{
					p.ID, p.UserID, p.OccursAt, p.Description, p.NotifyLeadMinutes,
					p.Notified, string(p.Recurrence), p.RecurrenceEndAt, parent,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to copy plans: %w", err)
		}
		return nil
	})
}

func (s *Snapshotter) LoadTimezones(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.Pool.Query(ctx, "SELECT user_id, zone FROM user_timezones")
	if err != nil {
		return nil, fmt.Errorf("failed to query timezones: %w", err)
	}
	defer rows.Close()

	zones := make(map[int64]string)
	for rows.Next() {
		var userID int64
		var zone string
		if err := rows.Scan(&userID, &zone); err != nil {
			return nil, fmt.Errorf("failed to scan timezone: %w", err)
		}
		zones[userID] = zone
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read timezones: %w", err)
	}
	return zones, nil
}

func (s *Snapshotter) SaveTimezones(ctx context.Context, zones map[int64]string) error {
	rows := make([][]any, 0, len(zones))
	for userID, zone := range zones {
		rows = append(rows, []any{userID, zone})
	}
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM user_timezones"); err != nil {
			return fmt.Errorf("failed to clear timezones: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"user_timezones"}, []string{"user_id", "zone"},
			pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy timezones: %w", err)
		}
		return nil
	})
}
