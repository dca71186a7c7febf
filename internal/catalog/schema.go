package catalog

import "context"

// schemaStatements creates every table the catalog owns, idempotently.
// New columns go through migrations.go instead of editing these
// statements, so existing databases pick them up too.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS processes (
		process_id       VARCHAR(64) PRIMARY KEY,
		exe              VARCHAR(512) NOT NULL,
		host             VARCHAR(256) NOT NULL,
		username         VARCHAR(128) NOT NULL,
		tsc_frequency    BIGINT UNSIGNED NOT NULL,
		start_ticks      BIGINT NOT NULL,
		start_time       DATETIME(6) NOT NULL,
		parent_process_id VARCHAR(64),
		properties       LONGBLOB,
		insert_time      DATETIME(6) NOT NULL,
		INDEX idx_processes_insert_time (insert_time)
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		stream_id    VARCHAR(64) PRIMARY KEY,
		process_id   VARCHAR(64) NOT NULL,
		tags         VARCHAR(1024) NOT NULL DEFAULT '',
		properties   LONGBLOB,
		insert_time  DATETIME(6) NOT NULL,
		INDEX idx_streams_process_id (process_id),
		INDEX idx_streams_insert_time (insert_time)
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		block_id         VARCHAR(64) PRIMARY KEY,
		stream_id        VARCHAR(64) NOT NULL,
		process_id       VARCHAR(64) NOT NULL,
		begin_time       DATETIME(6) NOT NULL,
		begin_ticks      BIGINT NOT NULL,
		end_time         DATETIME(6) NOT NULL,
		end_ticks        BIGINT NOT NULL,
		nb_objects       INT NOT NULL,
		object_offset    BIGINT NOT NULL,
		payload_size     BIGINT NOT NULL,
		payload_location VARCHAR(1024) NOT NULL,
		insert_time      DATETIME(6) NOT NULL,
		INDEX idx_blocks_stream_id (stream_id),
		INDEX idx_blocks_insert_time (insert_time),
		INDEX idx_blocks_time_range (begin_time, end_time)
	)`,
	`CREATE TABLE IF NOT EXISTS lakehouse_partitions (
		view_set_name    VARCHAR(128) NOT NULL,
		view_instance_id VARCHAR(128) NOT NULL,
		begin_insert_time DATETIME(6) NOT NULL,
		end_insert_time   DATETIME(6) NOT NULL,
		min_event_time    DATETIME(6) NOT NULL,
		max_event_time    DATETIME(6) NOT NULL,
		file_path         VARCHAR(1024) NOT NULL,
		file_size         BIGINT NOT NULL,
		file_schema_hash  VARCHAR(64) NOT NULL,
		source_data_hash  VARCHAR(64) NOT NULL,
		num_rows          BIGINT NOT NULL,
		updated_at        DATETIME(6) NOT NULL,
		created_at        DATETIME(6) NOT NULL,
		PRIMARY KEY (view_set_name, view_instance_id, file_schema_hash, begin_insert_time),
		INDEX idx_partitions_lookup (view_set_name, view_instance_id, min_event_time, max_event_time)
	)`,
}

func (c *Catalog) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.execContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
