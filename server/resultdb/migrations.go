package resultdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE run(
			id INTEGER PRIMARY KEY,
			created_at INT NOT NULL,
			config TEXT,
			num_videos INT NOT NULL,
			num_skipped INT NOT NULL,
			num_events INT NOT NULL
		);

		CREATE TABLE aggregate_row(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			country TEXT NOT NULL,
			condition TEXT NOT NULL,
			raw_count INT NOT NULL,
			total_duration_seconds REAL NOT NULL,
			rate REAL NOT NULL
		);
		CREATE INDEX idx_aggregate_row_run_id ON aggregate_row(run_id);

		CREATE TABLE skipped_video(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			video_id TEXT NOT NULL,
			reason TEXT NOT NULL
		);
		CREATE INDEX idx_skipped_video_run_id ON skipped_video(run_id);

		CREATE TABLE crossing_event(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			video_id TEXT NOT NULL,
			track_id INT NOT NULL,
			start_frame INT NOT NULL,
			end_frame INT NOT NULL,
			condition TEXT NOT NULL,
			track_ids TEXT
		);
		CREATE INDEX idx_crossing_event_run_id_video_id ON crossing_event(run_id, video_id);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE crossing_time(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			country TEXT NOT NULL,
			condition TEXT NOT NULL,
			num_events INT NOT NULL,
			mean_seconds REAL NOT NULL,
			std_dev_seconds REAL NOT NULL
		);
		CREATE INDEX idx_crossing_time_run_id ON crossing_time(run_id);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		ALTER TABLE crossing_event ADD COLUMN instrument_seen BOOLEAN NOT NULL DEFAULT FALSE;

		CREATE TABLE equipment_row(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			country TEXT NOT NULL,
			time_of_day TEXT NOT NULL,
			num_videos INT NOT NULL,
			total_duration_seconds REAL NOT NULL,
			instruments INT NOT NULL,
			instruments_per_minute REAL NOT NULL,
			crossings INT NOT NULL,
			crossings_with_instrument INT NOT NULL
		);
		CREATE INDEX idx_equipment_row_run_id ON equipment_row(run_id);
	`))

	return migs
}
