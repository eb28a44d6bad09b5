// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdhender/texdigest/model"
)

// InsertSource inserts a sources row and sets src.ID.
func (s *SQLiteStore) InsertSource(ctx context.Context, src *model.Source) (int64, error) {
	const query = `
		INSERT INTO sources (name, sha3, size, fs_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		src.Name,
		src.SHA3,
		src.Size,
		src.FsPath,
		formatTime(src.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get source id: %w", err)
	}
	src.ID = id
	return id, nil
}

// GetSourceByID returns a source by ID, or nil if not found.
func (s *SQLiteStore) GetSourceByID(ctx context.Context, id int64) (*model.Source, error) {
	const query = `
		SELECT id, name, sha3, size, fs_path, created_at
		FROM sources
		WHERE id = ?
	`
	src, err := scanSource(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get source by id: %w", err)
	}
	return src, nil
}

// GetSourceBySHA3 returns a source by content hash, or nil if not found.
func (s *SQLiteStore) GetSourceBySHA3(ctx context.Context, sha3 string) (*model.Source, error) {
	const query = `
		SELECT id, name, sha3, size, fs_path, created_at
		FROM sources
		WHERE sha3 = ?
		LIMIT 1
	`
	src, err := scanSource(s.db.QueryRowContext(ctx, query, sha3))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get source by sha3: %w", err)
	}
	return src, nil
}

func scanSource(row *sql.Row) (*model.Source, error) {
	var src model.Source
	var createdAt string
	if err := row.Scan(&src.ID, &src.Name, &src.SHA3, &src.Size, &src.FsPath, &createdAt); err != nil {
		return nil, err
	}
	src.CreatedAt = parseTime(createdAt)
	return &src, nil
}
