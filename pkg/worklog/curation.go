package worklog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/eventstream"
)

// Curation health thresholds. These are deliberately fixed: the point of the
// indicators is a shared, stable definition of "needs attention" across
// every agent using the store.
const (
	orphanRateWarnPercent  = 30.0
	tagCoverageWarnPercent = 50.0
	pendingDuplicatesInfo  = 10
	staleStagingWarn       = 5

	// staleStagingDays and staleStagingImportance define which staging
	// memories are overdue for promotion review.
	staleStagingDays       = 14
	staleStagingImportance = 7

	// importantThreshold marks the memories the orphan rate is computed
	// over.
	importantThreshold = 7

	// operationWindowDays is the trailing window for per-operation run
	// counts.
	operationWindowDays = 7
)

// OperationStats counts runs of one curation operation in the trailing
// window.
type OperationStats struct {
	Operation string `json:"operation"`
	Runs      int64  `json:"runs"`
	Successes int64  `json:"successes"`
}

// Alert flags a curation indicator that crossed its threshold.
type Alert struct {
	Severity  string `json:"severity"`
	Indicator string `json:"indicator"`
	Message   string `json:"message"`
	Action    string `json:"action"`
}

// CurationReport is a snapshot of knowledge-store health.
type CurationReport struct {
	Tables            map[string]int64 `json:"tables"`
	Operations        []OperationStats `json:"operations"`
	OrphanRate        float64          `json:"orphan_rate"`
	TagCoverage       float64          `json:"tag_coverage"`
	PendingDuplicates int64            `json:"pending_duplicates"`
	StaleStaging      int64            `json:"stale_staging"`
	Alerts            []Alert          `json:"alerts"`
}

// CurationStatus computes the read-only curation indicators: table counts,
// recent operation runs, orphan rate, tag coverage, pending duplicates, and
// stale staging memories, with an alert for each indicator past its
// threshold.
func (s *Service) CurationStatus(ctx context.Context) (*CurationReport, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	report := &CurationReport{
		Operations: []OperationStats{},
		Alerts:     []Alert{},
	}

	if report.Tables, err = s.ListTables(ctx); err != nil {
		return nil, err
	}

	if report.Operations, err = s.operationStats(ctx, b); err != nil {
		return nil, err
	}

	if report.OrphanRate, err = s.orphanRate(ctx, b); err != nil {
		return nil, err
	}

	if report.TagCoverage, err = s.tagCoverage(ctx, b); err != nil {
		return nil, err
	}

	if report.PendingDuplicates, err = s.countScalar(ctx, b,
		"SELECT COUNT(*) AS count FROM duplicate_candidates WHERE status = "+b.Placeholder(1), "pending"); err != nil {
		return nil, err
	}

	staleSQL := fmt.Sprintf(
		"SELECT COUNT(*) AS count FROM memories WHERE status = %s AND importance >= %s AND created_at < %s",
		b.Placeholder(1), b.Placeholder(2), b.IntervalDays(staleStagingDays))
	if report.StaleStaging, err = s.countScalar(ctx, b, staleSQL, "staging", staleStagingImportance); err != nil {
		return nil, err
	}

	report.Alerts = buildAlerts(report)

	return report, nil
}

// operationStats aggregates curation_history runs within the trailing
// window, grouped by operation.
func (s *Service) operationStats(ctx context.Context, b database.Backend) ([]OperationStats, error) {
	sql := fmt.Sprintf(
		`SELECT operation, COUNT(*) AS runs, SUM(success) AS successes
		 FROM curation_history WHERE created_at > %s
		 GROUP BY operation ORDER BY operation`,
		b.IntervalDays(operationWindowDays))

	rows, err := b.FetchAll(ctx, sql)
	if err != nil {
		return nil, err
	}

	stats := make([]OperationStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, OperationStats{
			Operation: toString(row["operation"]),
			Runs:      toInt64(row["runs"]),
			Successes: toInt64(row["successes"]),
		})
	}

	return stats, nil
}

// orphanRate is the percentage of important, non-archived memories with
// neither a topic membership nor a relationship in either direction.
func (s *Service) orphanRate(ctx context.Context, b database.Backend) (float64, error) {
	total, err := s.countScalar(ctx, b,
		fmt.Sprintf("SELECT COUNT(*) AS count FROM memories WHERE importance >= %s AND status != %s",
			b.Placeholder(1), b.Placeholder(2)),
		importantThreshold, "archived")
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	orphanSQL := fmt.Sprintf(
		`SELECT COUNT(*) AS count FROM memories
		 WHERE importance >= %s AND status != %s
		   AND id NOT IN (SELECT entry_id FROM topic_entries WHERE entry_table = 'memories')
		   AND id NOT IN (SELECT source_id FROM relationships WHERE source_table = 'memories')
		   AND id NOT IN (SELECT target_id FROM relationships WHERE target_table = 'memories')`,
		b.Placeholder(1), b.Placeholder(2))

	orphans, err := s.countScalar(ctx, b, orphanSQL, importantThreshold, "archived")
	if err != nil {
		return 0, err
	}

	return float64(orphans) / float64(total) * 100, nil
}

// tagCoverage is the percentage of entry-table rows carrying at least one
// tag.
func (s *Service) tagCoverage(ctx context.Context, b database.Backend) (float64, error) {
	var total, tagged int64

	for _, table := range EntryTables {
		t, err := s.countScalar(ctx, b, "SELECT COUNT(*) AS count FROM "+table)
		if err != nil {
			return 0, err
		}
		total += t

		g, err := s.countScalar(ctx, b,
			fmt.Sprintf("SELECT COUNT(*) AS count FROM %s WHERE tags IS NOT NULL AND tags != ''", table))
		if err != nil {
			return 0, err
		}
		tagged += g
	}

	// An empty store is vacuously covered; reporting 0 here would raise the
	// coverage alert before any entry exists.
	if total == 0 {
		return 100, nil
	}

	return float64(tagged) / float64(total) * 100, nil
}

// countScalar runs a single-row COUNT query and returns the count.
func (s *Service) countScalar(ctx context.Context, b database.Backend, sql string, args ...any) (int64, error) {
	row, err := b.FetchOne(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}

	return toInt64(row["count"]), nil
}

// buildAlerts evaluates each indicator against its threshold.
func buildAlerts(report *CurationReport) []Alert {
	alerts := []Alert{}

	if report.OrphanRate > orphanRateWarnPercent {
		alerts = append(alerts, Alert{
			Severity:  "warning",
			Indicator: "orphan_rate",
			Message:   fmt.Sprintf("%.1f%% of important memories have no topic or relationship", report.OrphanRate),
			Action:    "Run relationship discovery and topic indexing to connect orphaned memories",
		})
	}

	if report.TagCoverage < tagCoverageWarnPercent {
		alerts = append(alerts, Alert{
			Severity:  "warning",
			Indicator: "tag_coverage",
			Message:   fmt.Sprintf("Only %.1f%% of entries carry tags", report.TagCoverage),
			Action:    "Run tag normalization and backfill tags on untagged entries",
		})
	}

	if report.PendingDuplicates > pendingDuplicatesInfo {
		alerts = append(alerts, Alert{
			Severity:  "info",
			Indicator: "pending_duplicates",
			Message:   fmt.Sprintf("%d duplicate candidates await review", report.PendingDuplicates),
			Action:    "Review pending duplicate candidates with review_duplicate",
		})
	}

	if report.StaleStaging > staleStagingWarn {
		alerts = append(alerts, Alert{
			Severity:  "warning",
			Indicator: "stale_staging",
			Message:   fmt.Sprintf("%d important memories have sat in staging for over %d days", report.StaleStaging, staleStagingDays),
			Action:    "Promote or archive stale staging memories with update_memory",
		})
	}

	return alerts
}

// RecordCurationParams are the arguments for RecordCuration.
type RecordCurationParams struct {
	Operation    string
	Stats        map[string]any
	DurationMs   int64
	Success      bool
	ErrorMessage string
}

// RecordCuration appends a curation run to the history log.
func (s *Service) RecordCuration(ctx context.Context, p RecordCurationParams) (*StoreResult, error) {
	operation, err := validateEnum(p.Operation, "operation", CurationOperations)
	if err != nil {
		return nil, err
	}

	var stats string
	if p.Stats != nil {
		raw, err := json.Marshal(p.Stats)
		if err != nil {
			return nil, fmt.Errorf("marshaling curation stats: %w", err)
		}
		stats = string(raw)
	}

	success := 0
	if p.Success {
		success = 1
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "curation_history",
		"operation", "stats", "duration_ms", "success", "error_message")

	id, err := s.insertReturningID(ctx, b, sql,
		operation, stats, p.DurationMs, success, p.ErrorMessage)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventstream.EventTypeCurationCompleted, "curation_history", id, operation)

	return &StoreResult{ID: id}, nil
}
