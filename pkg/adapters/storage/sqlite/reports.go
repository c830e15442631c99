package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// SaveReport inserts or replaces a report
func (s *Store) SaveReport(ctx context.Context, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, query, item_count, payload, generated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            query = excluded.query,
            item_count = excluded.item_count,
            payload = excluded.payload,
            generated_at = excluded.generated_at`,
		report.ID,
		report.Query,
		len(report.Items),
		string(payload),
		generated.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

// GetReport returns one full report
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var r domain.Report
	if err := s.getPayload(ctx, "SELECT payload FROM reports WHERE id = ?", id, &r); err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &r, nil
}

// ListReports returns report summaries, newest first
func (s *Store) ListReports(ctx context.Context, limit, offset int) ([]domain.ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, query, item_count, generated_at FROM reports ORDER BY generated_at DESC, id LIMIT ? OFFSET ?",
		sqlLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportSummary
	for rows.Next() {
		var (
			summary   domain.ReportSummary
			generated string
		)
		if err := rows.Scan(&summary.ID, &summary.Query, &summary.ItemCount, &generated); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if summary.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
			return nil, fmt.Errorf("parse report time: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// DeleteReport removes a report
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete report %s: %w", id, ports.ErrNotFound)
	}
	return nil
}
