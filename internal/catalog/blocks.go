package catalog

import (
	"context"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// InsertBlock records a sealed block's metadata. The payload itself
// already landed in object storage (C5) at PayloadLocation before this
// call — the catalog only ever learns about a block that fully exists.
func (c *Catalog) InsertBlock(ctx context.Context, b *model.Block) error {
	_, err := c.execContext(ctx, `
		INSERT INTO blocks (
			block_id, stream_id, process_id, begin_time, begin_ticks,
			end_time, end_ticks, nb_objects, object_offset, payload_size, payload_location, insert_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.BlockID, b.StreamID, b.ProcessID, b.BeginTime, b.BeginTicks,
		b.EndTime, b.EndTicks, b.NbObjects, b.ObjectOffset, b.PayloadSize, b.PayloadLocation, time.Now().UTC(),
	)
	return err
}

const blockColumns = `block_id, stream_id, process_id, begin_time, begin_ticks,
		       end_time, end_ticks, nb_objects, object_offset, payload_size, payload_location`

func scanBlock(scan func(dest ...any) error) (*model.Block, error) {
	var b model.Block
	if err := scan(
		&b.BlockID, &b.StreamID, &b.ProcessID, &b.BeginTime, &b.BeginTicks,
		&b.EndTime, &b.EndTicks, &b.NbObjects, &b.ObjectOffset, &b.PayloadSize, &b.PayloadLocation,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// BlocksForStream returns a stream's blocks ordered by object_offset,
// the storage order the block-source view processors (C8) read them in.
func (c *Catalog) BlocksForStream(ctx context.Context, streamID string) ([]*model.Block, error) {
	rows, err := c.queryContext(ctx, `SELECT `+blockColumns+` FROM blocks WHERE stream_id = ? ORDER BY object_offset`, streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Block
	for rows.Next() {
		b, err := scanBlock(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BlocksInsertedBetween returns blocks whose insert_time falls in
// [from, to), the unit of work the JIT partition engine (C10) and
// batch scheduler (C11) slice materialization into.
func (c *Catalog) BlocksInsertedBetween(ctx context.Context, from, to time.Time) ([]*model.Block, error) {
	rows, err := c.queryContext(ctx, `SELECT `+blockColumns+` FROM blocks WHERE insert_time >= ? AND insert_time < ? ORDER BY insert_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Block
	for rows.Next() {
		b, err := scanBlock(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
