package indexdb

import (
	"context"
	"database/sql"
)

type TurnRow struct {
	Turn     int    `json:"turn"`
	Digest   string `json:"digest"`
	Events   int    `json:"events"`
	Outcomes int    `json:"outcomes"`
	Deployed int    `json:"deployed"`
}

type EventRow struct {
	Turn   int    `json:"turn"`
	Seq    int    `json:"seq"`
	Kind   string `json:"kind"`
	TeamID int    `json:"team_id"`
	Arc    string `json:"arc"`
	Actor  int    `json:"actor"`
	Node   int    `json:"node"`
	Text   string `json:"text"`
}

type SnapshotRow struct {
	Turn     int    `json:"turn"`
	Path     string `json:"path"`
	Seed     int64  `json:"seed"`
	Teams    int    `json:"teams"`
	Deployed int    `json:"deployed"`
	Digest   string `json:"digest"`
}

type LogFileRow struct {
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	ClosedAt string `json:"closed_at"`
}

// Turns lists indexed turns in [from, to], ascending.
func (s *SQLiteIndex) Turns(ctx context.Context, from, to int) ([]TurnRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn, digest, events, outcomes, deployed FROM turns WHERE turn >= ? AND turn <= ? ORDER BY turn`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnRow
	for rows.Next() {
		var r TurnRow
		if err := rows.Scan(&r.Turn, &r.Digest, &r.Events, &r.Outcomes, &r.Deployed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TeamHistory lists every indexed event for one team in turn order.
func (s *SQLiteIndex) TeamHistory(ctx context.Context, teamID int) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn, seq, kind, team_id, arc, actor, node, COALESCE(text,'') FROM team_events WHERE team_id = ? ORDER BY turn, seq`,
		teamID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// NodeHistory lists every indexed event at one node in turn order.
func (s *SQLiteIndex) NodeHistory(ctx context.Context, nodeID int) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn, seq, kind, team_id, arc, actor, node, COALESCE(text,'') FROM team_events WHERE node = ? ORDER BY turn, seq`,
		nodeID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]EventRow, error) {
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var r EventRow
		if err := rows.Scan(&r.Turn, &r.Seq, &r.Kind, &r.TeamID, &r.Arc, &r.Actor, &r.Node, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Snapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT turn, path, seed, teams, deployed, digest FROM snapshots ORDER BY turn`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.Turn, &r.Path, &r.Seed, &r.Teams, &r.Deployed, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CatalogDigest returns the stored digest for a catalog row, or "" if absent.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}

// LogFiles lists the closed turn log files in path (hour) order.
func (s *SQLiteIndex) LogFiles(ctx context.Context) ([]LogFileRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, bytes, closed_at FROM log_files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogFileRow
	for rows.Next() {
		var r LogFileRow
		if err := rows.Scan(&r.Path, &r.Bytes, &r.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
