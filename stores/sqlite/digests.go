// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdhender/texdigest/model"
)

// InsertDigest inserts a digests row and sets d.ID.
func (s *SQLiteStore) InsertDigest(ctx context.Context, d *model.Digest) (int64, error) {
	const query = `
		INSERT INTO digests (source_id, nodes, fatal, error_code, tree, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		d.SourceID,
		d.Nodes,
		boolToInt(d.Fatal),
		nullString(d.ErrorCode),
		d.Tree,
		formatTime(d.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert digest: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get digest id: %w", err)
	}
	d.ID = id
	return id, nil
}

// GetDigestBySource returns the latest digest of a source, or nil if the
// source has not been digested.
func (s *SQLiteStore) GetDigestBySource(ctx context.Context, sourceID int64) (*model.Digest, error) {
	const query = `
		SELECT id, source_id, nodes, fatal, error_code, tree, created_at
		FROM digests
		WHERE source_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	var d model.Digest
	var fatal int64
	var errorCode sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&d.ID, &d.SourceID, &d.Nodes, &fatal, &errorCode, &d.Tree, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get digest by source: %w", err)
	}
	d.Fatal = fatal != 0
	d.ErrorCode = errorCode.String
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

// InsertDiagnostic inserts a diagnostics row and sets diag.ID.
func (s *SQLiteStore) InsertDiagnostic(ctx context.Context, diag *model.Diagnostic) (int64, error) {
	const query = `
		INSERT INTO diagnostics (digest_id, severity, code, message, line, "column")
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		diag.DigestID,
		diag.Severity,
		diag.Code,
		diag.Message,
		diag.Line,
		diag.Column,
	)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get diagnostic id: %w", err)
	}
	diag.ID = id
	return id, nil
}

// DiagnosticsByDigest returns the diagnostics of a digest in the order
// they were reported.
func (s *SQLiteStore) DiagnosticsByDigest(ctx context.Context, digestID int64) ([]model.Diagnostic, error) {
	const query = `
		SELECT id, digest_id, severity, code, message, line, "column"
		FROM diagnostics
		WHERE digest_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, digestID)
	if err != nil {
		return nil, fmt.Errorf("get diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []model.Diagnostic
	for rows.Next() {
		var d model.Diagnostic
		if err := rows.Scan(&d.ID, &d.DigestID, &d.Severity, &d.Code, &d.Message, &d.Line, &d.Column); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
