// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mdhender/texdigest"
	"github.com/mdhender/texdigest/model"
	"github.com/mdhender/texdigest/sources"
	"github.com/spf13/afero"
)

// WorkerService claims and executes pipeline jobs.
type WorkerService struct {
	store    WorkerStore
	dataDir  string
	workerID string
	fs       afero.Fs
	logger   *slog.Logger
	options  []texdigest.Option
}

// WorkerStore defines the store operations needed by WorkerService.
type WorkerStore interface {
	ClaimWork(ctx context.Context, stage, workerID string) (*model.Work, error)
	FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error
	GetSourceByID(ctx context.Context, id int64) (*model.Source, error)

	// For the digest stage - persist the tree and diagnostics
	InsertDigest(ctx context.Context, d *model.Digest) (int64, error)
	InsertDiagnostic(ctx context.Context, diag *model.Diagnostic) (int64, error)
}

// NewWorkerService creates a new WorkerService.
func NewWorkerService(store WorkerStore, dataDir, workerID string) *WorkerService {
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s:%d", hostname, os.Getpid())
	}
	return &WorkerService{
		store:    store,
		dataDir:  dataDir,
		workerID: workerID,
		fs:       afero.NewOsFs(),
		logger:   slog.Default(),
	}
}

// SetFS sets the filesystem for testing.
func (w *WorkerService) SetFS(fs afero.Fs) {
	w.fs = fs
}

// SetLogger sets the logger handed to each digest session.
func (w *WorkerService) SetLogger(logger *slog.Logger) {
	w.logger = logger
}

// SetDigestOptions adds options to every digest session, e.g. limits.
func (w *WorkerService) SetDigestOptions(options ...texdigest.Option) {
	w.options = options
}

// WorkResult represents the outcome of executing a job.
type WorkResult struct {
	Success      bool
	ErrorCode    string
	ErrorMessage string
}

// ClaimJob atomically claims a queued job for the given stage.
// Returns nil if no work is available.
func (w *WorkerService) ClaimJob(ctx context.Context, stage string) (*model.Work, error) {
	return w.store.ClaimWork(ctx, stage, w.workerID)
}

// ExecuteDigest reads a source, digests it and stores the document tree and
// the diagnostics. Files named by \input are resolved next to the source.
// The digest is stored even when the pass stops on a fatal error; the
// error is returned as an *ErrDigest.
func (w *WorkerService) ExecuteDigest(ctx context.Context, job *model.Work, src *model.Source) error {
	fullPath := filepath.Join(w.dataDir, src.FsPath)
	data, err := afero.ReadFile(w.fs, fullPath)
	if err != nil {
		return &ErrWriteFile{Op: "read", Path: fullPath, Err: err}
	}

	diags := texdigest.NewDiagnosticList(nil)
	options := append([]texdigest.Option{
		texdigest.WithLogger(w.logger),
		texdigest.WithDiagnosticSink(diags),
		texdigest.WithSourceProvider(sources.New(w.fs, filepath.Dir(fullPath))),
		texdigest.WithJobName(src.Name),
	}, w.options...)
	session, err := texdigest.NewSession(ctx, src.FsPath, data, options...)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	doc, digestErr := session.Parse()

	tree, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	d := &model.Digest{
		SourceID:  src.ID,
		Nodes:     doc.Count(doc.Root()),
		Fatal:     digestErr != nil,
		Tree:      tree,
		CreatedAt: time.Now().UTC(),
	}
	if digestErr != nil {
		d.ErrorCode = texdigest.ErrorCode(digestErr)
	}
	digestID, err := w.store.InsertDigest(ctx, d)
	if err != nil {
		return &ErrDatabase{Op: "insert digest", Err: err}
	}
	for _, diag := range diags.AtLeast(slog.LevelInfo) {
		row := &model.Diagnostic{
			DigestID: digestID,
			Severity: diag.Severity.String(),
			Code:     diag.Code,
			Message:  diag.Message,
			Line:     diag.Span.Line,
			Column:   diag.Span.Column,
		}
		if _, err := w.store.InsertDiagnostic(ctx, row); err != nil {
			return &ErrDatabase{Op: "insert diagnostic", Err: err}
		}
	}

	if digestErr != nil {
		return &ErrDigest{Path: src.FsPath, Code: d.ErrorCode, Err: digestErr}
	}
	return nil
}

// FinishJob marks a job as completed (ok or failed) based on the result.
func (w *WorkerService) FinishJob(ctx context.Context, job *model.Work, result WorkResult) error {
	status := model.WorkStatusOk
	errorCode := ""
	errorMsg := ""

	if !result.Success {
		status = model.WorkStatusFailed
		errorCode = result.ErrorCode
		errorMsg = result.ErrorMessage
	}

	return w.store.FinishWork(ctx, job.ID, status, errorCode, errorMsg)
}

// GetSource retrieves the source associated with a job.
func (w *WorkerService) GetSource(ctx context.Context, job *model.Work) (*model.Source, error) {
	return w.store.GetSourceByID(ctx, job.SourceID)
}

// ProcessJob claims, executes, and finishes a single job for the given stage.
// Returns (jobProcessed, error). jobProcessed is true if a job was claimed.
func (w *WorkerService) ProcessJob(ctx context.Context, stage string) (bool, error) {
	job, err := w.ClaimJob(ctx, stage)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	src, err := w.GetSource(ctx, job)
	if err != nil {
		w.FinishJob(ctx, job, WorkResult{
			Success:      false,
			ErrorCode:    ErrCodeDatabase,
			ErrorMessage: fmt.Sprintf("get source: %v", err),
		})
		return true, fmt.Errorf("get source: %w", err)
	}
	if src == nil {
		w.FinishJob(ctx, job, WorkResult{
			Success:      false,
			ErrorCode:    ErrCodeDatabase,
			ErrorMessage: "source not found",
		})
		return true, fmt.Errorf("source %d not found", job.SourceID)
	}

	var execErr error
	switch stage {
	case model.WorkStageDigest:
		execErr = w.ExecuteDigest(ctx, job, src)
	default:
		execErr = fmt.Errorf("unknown stage: %s", stage)
	}

	if execErr != nil {
		w.FinishJob(ctx, job, WorkResult{
			Success:      false,
			ErrorCode:    ErrorCode(execErr),
			ErrorMessage: execErr.Error(),
		})
		return true, execErr
	}

	if err := w.FinishJob(ctx, job, WorkResult{Success: true}); err != nil {
		return true, fmt.Errorf("finish job: %w", err)
	}

	return true, nil
}

// Drain processes jobs for stage until none are left or ctx is done.
// Job failures are recorded on the job and counted, not returned.
func (w *WorkerService) Drain(ctx context.Context, stage string) (processed, failed int, err error) {
	for ctx.Err() == nil {
		ok, err := w.ProcessJob(ctx, stage)
		if !ok {
			return processed, failed, err
		}
		processed++
		if err != nil {
			failed++
			w.logger.Warn("job failed", "stage", stage, "error", err)
		}
	}
	return processed, failed, ctx.Err()
}
