package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one recorded invocation.
type Run struct {
	Seq     int64
	ID      string
	Mode    string
	Version uint
	Family  string
	Input   string
	Output  string

	InputDigest   string
	OutputDigest  string
	ProgramDigest string

	Status    string
	ErrorCode string
	Message   string
}

// WriteRun appends run and returns its assigned seq. run.Seq is ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, version, family, input, output, input_digest, output_digest, program_digest, status, error_code, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Mode,
		run.Version,
		run.Family,
		run.Input,
		run.Output,
		run.InputDigest,
		run.OutputDigest,
		run.ProgramDigest,
		run.Status,
		run.ErrorCode,
		run.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	return seq, nil
}

// ListRuns returns the most recent runs, oldest first. limit <= 0 returns
// every run.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, mode, version, family, input, output,
		       input_digest, output_digest, program_digest, status, error_code, message
		FROM (SELECT * FROM runs ORDER BY seq DESC LIMIT ?)
		ORDER BY seq ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return scanRuns(rows)
}

// FindByInputDigest returns every run over input with the given digest,
// oldest first.
func (s *Store) FindByInputDigest(ctx context.Context, digest string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, mode, version, family, input, output,
		       input_digest, output_digest, program_digest, status, error_code, message
		FROM runs
		WHERE input_digest = ?
		ORDER BY seq ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.Seq, &r.ID, &r.Mode, &r.Version, &r.Family, &r.Input, &r.Output,
			&r.InputDigest, &r.OutputDigest, &r.ProgramDigest, &r.Status, &r.ErrorCode, &r.Message,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
