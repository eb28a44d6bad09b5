// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import "context"

// Store is the interface the pipeline stages are written against.
type Store interface {
	// sources

	InsertSource(ctx context.Context, src *Source) (int64, error)
	GetSourceByID(ctx context.Context, id int64) (*Source, error)
	GetSourceBySHA3(ctx context.Context, sha3 string) (*Source, error)

	// stages

	InsertWork(ctx context.Context, work *Work) (int64, error)
	ClaimWork(ctx context.Context, stage, workerID string) (*Work, error)
	FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error
	ResetFailedWork(ctx context.Context, stage string) (int, error)
	GetFailedWork(ctx context.Context, stage string) ([]Work, error)
	GetWorkSummary(ctx context.Context) (map[string]map[string]int, error)

	// digests

	InsertDigest(ctx context.Context, d *Digest) (int64, error)
	GetDigestBySource(ctx context.Context, sourceID int64) (*Digest, error)
	InsertDiagnostic(ctx context.Context, diag *Diagnostic) (int64, error)
	DiagnosticsByDigest(ctx context.Context, digestID int64) ([]Diagnostic, error)
}

// Stats holds store statistics.
type Stats struct {
	Sources     int
	Work        int
	Digests     int
	Diagnostics int
}
