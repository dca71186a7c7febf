package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// InsertProcess records a newly registered process. Re-inserting the
// same process_id is a duplicate-key conflict the caller treats as
// "already recorded", matching how blocks/streams registration is
// expected to be retried safely by a reconnecting instrumented process.
func (c *Catalog) InsertProcess(ctx context.Context, p *model.Process, properties []byte) error {
	_, err := c.execContext(ctx, `
		INSERT INTO processes (
			process_id, exe, host, username, tsc_frequency, start_ticks,
			start_time, parent_process_id, properties, insert_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ProcessID, p.Exe, p.Host, p.Username,
		p.TscFrequency, p.StartTicks, p.StartTime, nullableString(p.ParentProcessID), properties, time.Now().UTC(),
	)
	return err
}

// GetProcess loads a process by id. Callers get the bare sql.ErrNoRows
// when absent, the same as any other database/sql caller, rather than
// a wrapped model.Error — a missing process is the caller's to
// classify, not the catalog's.
func (c *Catalog) GetProcess(ctx context.Context, processID string) (*model.Process, []byte, error) {
	var p model.Process
	var parentID sql.NullString
	var properties []byte
	err := c.queryRowContext(ctx, func(row *sql.Row) error {
		return row.Scan(
			&p.ProcessID, &p.Exe, &p.Host, &p.Username,
			&p.TscFrequency, &p.StartTicks, &p.StartTime, &parentID, &properties,
		)
	}, `
		SELECT process_id, exe, host, username, tsc_frequency, start_ticks, start_time,
		       parent_process_id, properties
		FROM processes WHERE process_id = ?
	`, processID)
	if err != nil {
		return nil, nil, err
	}
	if parentID.Valid {
		p.ParentProcessID = parentID.String
	}
	return &p, properties, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
