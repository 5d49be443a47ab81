package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"learnassist/internal/config"

	"github.com/robfig/cron/v3"
)

// Retention purges history rows older than the retention window in bounded
// batches with a pause between batches, to limit database load.
type Retention struct {
	db        *sql.DB
	expiry    time.Duration
	batchSize int
	sleep     time.Duration
}

func NewRetention(db *sql.DB, cfg config.RetentionConfig) *Retention {
	return &Retention{
		db:        db,
		expiry:    time.Duration(cfg.ExpiryDays) * 24 * time.Hour,
		batchSize: cfg.BatchSize,
		sleep:     time.Duration(cfg.SleepSeconds) * time.Second,
	}
}

// Run deletes expired rows batch by batch until none remain, returning the
// total number deleted.
func (r *Retention) Run(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-r.expiry)
	var total int64

	for {
		deleted, err := r.deleteBatch(ctx, cutoff)
		if err != nil {
			return total, err
		}
		total += deleted
		log.Printf("retention: %d messages deleted", deleted)
		if deleted == 0 {
			break
		}
		if r.sleep > 0 {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(r.sleep):
			}
		}
	}
	log.Printf("retention job completed, %d messages deleted", total)
	return total, nil
}

func (r *Retention) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM assistant_messages WHERE created_at <= ? ORDER BY id LIMIT ?`,
		cutoff, r.batchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("select expired messages: %w", err)
	}
	var ids []any
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM assistant_messages WHERE id IN (`+placeholders+`)`, ids...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired messages: %w", err)
	}
	return res.RowsAffected()
}

// Schedule registers the retention job with the scheduler under the given
// cron spec.
func (r *Retention) Schedule(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if _, err := r.Run(context.Background()); err != nil {
			log.Printf("retention job failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention job: %w", err)
	}
	return nil
}
