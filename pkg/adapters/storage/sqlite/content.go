package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveContent inserts or replaces an item
func (s *Store) SaveContent(ctx context.Context, item *domain.ContentItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_items (id, source, external_id, title, payload, scraped_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            payload = excluded.payload,
            scraped_at = excluded.scraped_at,
            updated_at = excluded.updated_at`,
		item.ID,
		string(item.Source),
		item.ExternalID,
		item.Title,
		string(payload),
		item.ScrapedAt.UTC().Format(timeLayout),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save content %s: %w", item.ID, err)
	}
	return nil
}

// GetContent returns one item
func (s *Store) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := s.getPayload(ctx, "SELECT payload FROM content_items WHERE id = ?", id, &item); err != nil {
		return nil, fmt.Errorf("get content %s: %w", id, err)
	}
	return &item, nil
}

// ListContent returns items, newest scrape first
func (s *Store) ListContent(ctx context.Context, filter ports.ContentFilter) ([]*domain.ContentItem, error) {
	query := "SELECT payload FROM content_items"
	var args []any
	if filter.Source != "" {
		query += " WHERE source = ?"
		args = append(args, string(filter.Source))
	}
	query += " ORDER BY scraped_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, sqlLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var items []*domain.ContentItem
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		var item domain.ContentItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// DeleteContent removes an item together with its analysis and storyboard
func (s *Store) DeleteContent(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete content %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM content_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete content %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete content %s: %w", id, ports.ErrNotFound)
	}
	for _, table := range []string{"analyses", "storyboards"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE content_id = ?", id); err != nil {
			return fmt.Errorf("delete %s for %s: %w", table, id, err)
		}
	}
	return tx.Commit()
}

// SaveAnalysis stores the analysis of one item, replacing any previous one
func (s *Store) SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	return s.saveDerived(ctx, "analyses", analysis.ContentID, analysis.Provider, analysis.CreatedAt, analysis)
}

// GetAnalysis returns the analysis of contentID
func (s *Store) GetAnalysis(ctx context.Context, contentID string) (*domain.Analysis, error) {
	var a domain.Analysis
	if err := s.getPayload(ctx, "SELECT payload FROM analyses WHERE content_id = ?", contentID, &a); err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", contentID, err)
	}
	return &a, nil
}

// SaveStoryboard stores the storyboard of one item, replacing any previous one
func (s *Store) SaveStoryboard(ctx context.Context, board *domain.Storyboard) error {
	return s.saveDerived(ctx, "storyboards", board.ContentID, board.Provider, board.CreatedAt, board)
}

// GetStoryboard returns the storyboard of contentID
func (s *Store) GetStoryboard(ctx context.Context, contentID string) (*domain.Storyboard, error) {
	var b domain.Storyboard
	if err := s.getPayload(ctx, "SELECT payload FROM storyboards WHERE content_id = ?", contentID, &b); err != nil {
		return nil, fmt.Errorf("get storyboard %s: %w", contentID, err)
	}
	return &b, nil
}

func (s *Store) saveDerived(ctx context.Context, table, contentID string, provider domain.ProviderName, createdAt time.Time, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+table+` (content_id, provider, payload, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(content_id) DO UPDATE SET
            provider = excluded.provider,
            payload = excluded.payload,
            created_at = excluded.created_at`,
		contentID,
		string(provider),
		string(payload),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save %s %s: %w", table, contentID, err)
	}
	return nil
}

func (s *Store) getPayload(ctx context.Context, query, id string, target any) error {
	var payload string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), target)
}

// sqlLimit maps "no limit" to SQLite's -1
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
