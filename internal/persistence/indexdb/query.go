package indexdb

import (
	"database/sql"
	"fmt"
)

type TurnRow struct {
	Turn          int
	Digest        string
	Actors        int
	Seed          uint32
	PlayerCommand string
}

// Turns reads up to limit indexed turns starting at from, in turn order.
func Turns(db *sql.DB, from, limit int) ([]TurnRow, error) {
	rows, err := db.Query(`SELECT turn,digest,actors,seed,player_command FROM turns WHERE turn >= ? ORDER BY turn LIMIT ?`, from, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()
	var out []TurnRow
	for rows.Next() {
		var r TurnRow
		var seed int64
		if err := rows.Scan(&r.Turn, &r.Digest, &r.Actors, &seed, &r.PlayerCommand); err != nil {
			return nil, err
		}
		r.Seed = uint32(seed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Snapshots lists the indexed snapshot flushes, newest first.
func Snapshots(db *sql.DB, limit int) ([]SnapshotRow, error) {
	rows, err := db.Query(`SELECT turn,recorded_at,path,seed,actors,lines FROM snapshots ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var seed int64
		if err := rows.Scan(&r.Turn, &r.RecordedAt, &r.Path, &seed, &r.Actors, &r.Lines); err != nil {
			return nil, err
		}
		r.Seed = uint32(seed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// OpenReadOnly opens an index database for inspection.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
