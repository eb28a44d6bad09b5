// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import "fmt"

// ErrWriteFile is returned when file I/O operations fail.
type ErrWriteFile struct {
	Op   string // mkdir, write, read
	Path string
	Err  error
}

func (e *ErrWriteFile) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ErrWriteFile) Unwrap() error {
	return e.Err
}

// ErrDatabase is returned when database operations fail.
type ErrDatabase struct {
	Op  string
	Err error
}

func (e *ErrDatabase) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ErrDatabase) Unwrap() error {
	return e.Err
}

// ErrDigest is returned when digesting a source stops on a fatal error.
// Code is the error code reported by the digester.
type ErrDigest struct {
	Path string
	Code string
	Err  error
}

func (e *ErrDigest) Error() string {
	return fmt.Sprintf("digest %s: %s: %v", e.Path, e.Code, e.Err)
}

func (e *ErrDigest) Unwrap() error {
	return e.Err
}

// ErrNotTeX is returned when an ingested file is not a TeX source.
type ErrNotTeX struct {
	Name string
}

func (e *ErrNotTeX) Error() string {
	return fmt.Sprintf("%s: not a TeX source", e.Name)
}

// Error code constants for database storage.
const (
	ErrCodeWriteFile = "WRITE_FILE"
	ErrCodeDatabase  = "DATABASE"
	ErrCodeDigest    = "DIGEST"
	ErrCodeNotTeX    = "NOT_TEX"
	ErrCodeUnknown   = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
// Digest failures report the digester's own code.
func ErrorCode(err error) string {
	switch e := err.(type) {
	case *ErrWriteFile:
		return ErrCodeWriteFile
	case *ErrDatabase:
		return ErrCodeDatabase
	case *ErrDigest:
		if e.Code != "" {
			return e.Code
		}
		return ErrCodeDigest
	case *ErrNotTeX:
		return ErrCodeNotTeX
	default:
		return ErrCodeUnknown
	}
}
