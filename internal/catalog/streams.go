package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// InsertStream records a newly registered stream.
func (c *Catalog) InsertStream(ctx context.Context, s *model.Stream, properties []byte) error {
	_, err := c.execContext(ctx, `
		INSERT INTO streams (stream_id, process_id, tags, properties, insert_time)
		VALUES (?, ?, ?, ?, ?)
	`, s.StreamID, s.ProcessID, strings.Join(s.Tags, ","), properties, time.Now().UTC())
	return err
}

// GetStream loads a stream by id.
func (c *Catalog) GetStream(ctx context.Context, streamID string) (*model.Stream, []byte, error) {
	var s model.Stream
	var tags string
	var properties []byte
	err := c.queryRowContext(ctx, func(row *sql.Row) error {
		return row.Scan(&s.StreamID, &s.ProcessID, &tags, &properties)
	}, `SELECT stream_id, process_id, tags, properties FROM streams WHERE stream_id = ?`, streamID)
	if err != nil {
		return nil, nil, err
	}
	if tags != "" {
		s.Tags = strings.Split(tags, ",")
	}
	return &s, properties, nil
}

// StreamsForProcess returns every stream belonging to processID, used
// by the block-source view processor (C8) to find all the data a
// process contributed.
func (c *Catalog) StreamsForProcess(ctx context.Context, processID string) ([]*model.Stream, error) {
	rows, err := c.queryContext(ctx, `
		SELECT stream_id, process_id, tags FROM streams WHERE process_id = ?
	`, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Stream
	for rows.Next() {
		var s model.Stream
		var tags string
		if err := rows.Scan(&s.StreamID, &s.ProcessID, &tags); err != nil {
			return nil, err
		}
		if tags != "" {
			s.Tags = strings.Split(tags, ",")
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
