// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdhender/texdigest/model"
	"github.com/spf13/afero"
	"golang.org/x/crypto/sha3"
)

// IngestService handles file ingestion into the pipeline.
type IngestService struct {
	store   IngestStore
	dataDir string
	fs      afero.Fs
}

// IngestStore defines the store operations needed by IngestService.
type IngestStore interface {
	GetSourceBySHA3(ctx context.Context, sha3 string) (*model.Source, error)
	InsertSource(ctx context.Context, src *model.Source) (int64, error)
	InsertWork(ctx context.Context, work *model.Work) (int64, error)
}

// NewIngestService creates a new IngestService.
func NewIngestService(store IngestStore, dataDir string) *IngestService {
	return &IngestService{
		store:   store,
		dataDir: dataDir,
		fs:      afero.NewOsFs(),
	}
}

// SetFS sets the filesystem for testing.
func (s *IngestService) SetFS(fs afero.Fs) {
	s.fs = fs
}

// IngestRequest contains the parameters for ingesting a file.
//
// Files of one project are written to the same directory, so that a
// document can \input the other files of its project.
type IngestRequest struct {
	Project  string // e.g., "thesis"; defaults to "default"
	Filename string // original filename, e.g., "chapters/intro.tex"
	Data     []byte // file content
}

// IngestResult contains the result of an ingest operation.
type IngestResult struct {
	SourceID  int64
	WorkID    int64
	Duplicate bool // true if file was already ingested (idempotent no-op)
}

// IngestFile ingests a single file into the pipeline and queues a digest job.
// Returns IngestResult with Duplicate=true if the file already exists (idempotent no-op).
func (s *IngestService) IngestFile(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !isTeX(ext) {
		return nil, &ErrNotTeX{Name: req.Filename}
	}

	hashStr := HashSource(req.Data)
	existing, err := s.store.GetSourceBySHA3(ctx, hashStr)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if existing != nil {
		return &IngestResult{
			SourceID:  existing.ID,
			Duplicate: true,
		}, nil
	}

	project := req.Project
	if project == "" {
		project = "default"
	}
	fsPath := filepath.Join("projects", project, projectPath(req.Filename))
	fullPath := filepath.Join(s.dataDir, fsPath)

	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, &ErrWriteFile{Op: "mkdir", Path: filepath.Dir(fullPath), Err: err}
	}
	if err := afero.WriteFile(s.fs, fullPath, req.Data, 0644); err != nil {
		return nil, &ErrWriteFile{Op: "write", Path: fullPath, Err: err}
	}

	src := &model.Source{
		Name:      filepath.Base(req.Filename),
		SHA3:      hashStr,
		Size:      int64(len(req.Data)),
		FsPath:    fsPath,
		CreatedAt: time.Now().UTC(),
	}
	srcID, err := s.store.InsertSource(ctx, src)
	if err != nil {
		return nil, &ErrDatabase{Op: "insert source", Err: err}
	}

	work := &model.Work{
		SourceID:    srcID,
		Stage:       model.WorkStageDigest,
		Status:      model.WorkStatusQueued,
		Attempt:     0,
		AvailableAt: time.Now().UTC(),
	}
	workID, err := s.store.InsertWork(ctx, work)
	if err != nil {
		return nil, &ErrDatabase{Op: "insert work", Err: err}
	}

	return &IngestResult{
		SourceID:  srcID,
		WorkID:    workID,
		Duplicate: false,
	}, nil
}

// IngestProject ingests multiple files into one project.
func (s *IngestService) IngestProject(ctx context.Context, project string, files []IngestRequest) ([]IngestResult, error) {
	var results []IngestResult
	for _, file := range files {
		file.Project = project
		result, err := s.IngestFile(ctx, file)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// HashSource returns the hex encoded sha3-256 of data.
func HashSource(data []byte) string {
	hash := sha3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// projectPath keeps the relative directory of a file name, unless it
// would leave the project directory.
func projectPath(name string) string {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return filepath.Base(clean)
	}
	return clean
}

func isTeX(ext string) bool {
	switch ext {
	case ".tex", ".ltx", ".sty", ".cls":
		return true
	}
	return false
}
