// Package analytics records lead funnel metrics. Recording is best effort:
// a failed insert is logged and never surfaces to the flow that produced
// the event.
package analytics

import (
	"context"

	"directory_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Metric names written to the analytics_events table.
const (
	MetricLeadGenerated     = "lead_generated"
	MetricLeadRouted        = "lead_routed"
	MetricLeadStatusChanged = "lead_status_changed"
	MetricLeadFollowUpNudge = "lead_followup_nudge"
)

// Recorder persists analytics events.
type Recorder struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewRecorder(pool *pgxpool.Pool, log *logger.Logger) *Recorder {
	return &Recorder{pool: pool, log: log}
}

// Record writes one metric row. Errors are swallowed after logging.
func (r *Recorder) Record(ctx context.Context, metric string, businessID uuid.UUID, leadID *uuid.UUID, metadata map[string]interface{}) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics_events (id, metric, business_id, lead_id, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.New(), metric, businessID, leadID, metadata)
	if err != nil {
		r.log.Warn("analytics insert failed", "metric", metric, "businessId", businessID, "error", err)
	}
}
