package model

import (
	"time"
)

// Source is a TeX source file accepted by the ingest stage.
type Source struct {
	ID        int64     `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"` // original file name
	SHA3      string    `json:"sha3"      db:"sha3"` // hex sha3-256 of the contents
	Size      int64     `json:"size"      db:"size"`
	FsPath    string    `json:"fsPath"    db:"fs_path"` // relative to the data directory
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Work is one job in the pipeline queue.
type Work struct {
	ID           int64      `json:"id"                     db:"id"`
	SourceID     int64      `json:"sourceId"               db:"source_id"`
	Stage        string     `json:"stage"                  db:"stage"`
	Status       string     `json:"status"                 db:"status"`
	Attempt      int        `json:"attempt"                db:"attempt"`
	AvailableAt  time.Time  `json:"availableAt"            db:"available_at"`
	LockedBy     *string    `json:"lockedBy,omitempty"     db:"locked_by"`
	LockedAt     *time.Time `json:"lockedAt,omitempty"     db:"locked_at"`
	StartedAt    *time.Time `json:"startedAt,omitempty"    db:"started_at"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"   db:"finished_at"`
	ErrorCode    *string    `json:"errorCode,omitempty"    db:"error_code"`
	ErrorMessage *string    `json:"errorMessage,omitempty" db:"error_message"`
}

const (
	WorkStageDigest = "digest"
)

const (
	WorkStatusQueued  = "queued"
	WorkStatusRunning = "running"
	WorkStatusOk      = "ok"
	WorkStatusFailed  = "failed"
)

// Digest is the stored result of digesting a source.
// Fatal is set when the pass stopped on an error; Tree then holds the
// partial document.
type Digest struct {
	ID        int64     `json:"id"                  db:"id"`
	SourceID  int64     `json:"sourceId"            db:"source_id"`
	Nodes     int       `json:"nodes"               db:"nodes"`
	Fatal     bool      `json:"fatal"               db:"fatal"`
	ErrorCode string    `json:"errorCode,omitempty" db:"error_code"`
	Tree      []byte    `json:"tree"                db:"tree"` // document JSON
	CreatedAt time.Time `json:"createdAt"           db:"created_at"`
}

// Diagnostic is a diagnostic reported while digesting a source.
type Diagnostic struct {
	ID       int64  `json:"id"       db:"id"`
	DigestID int64  `json:"digestId" db:"digest_id"`
	Severity string `json:"severity" db:"severity"` // DEBUG, INFO, WARN, ERROR
	Code     string `json:"code"     db:"code"`
	Message  string `json:"message"  db:"message"`
	Line     int    `json:"line"     db:"line"`
	Column   int    `json:"column"   db:"column"`
}
