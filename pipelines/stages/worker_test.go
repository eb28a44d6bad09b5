// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mdhender/texdigest"
	"github.com/mdhender/texdigest/model"
	"github.com/mdhender/texdigest/pipelines/stages"
	store "github.com/mdhender/texdigest/stores/sqlite"
	"github.com/spf13/afero"
)

// newPipeline returns a store, an ingest service and a worker sharing an
// in-memory database and file system.
func newPipeline(t *testing.T) (*store.SQLiteStore, *stages.IngestService, *stages.WorkerService) {
	t.Helper()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })

	fs := afero.NewMemMapFs()
	ingest := stages.NewIngestService(sqlStore, "/data")
	ingest.SetFS(fs)
	worker := stages.NewWorkerService(sqlStore, "/data", "test-worker")
	worker.SetFS(fs)
	return sqlStore, ingest, worker
}

func TestWorkerService_ProcessJob_Digest(t *testing.T) {
	ctx := context.Background()
	sqlStore, ingest, worker := newPipeline(t)

	results, err := ingest.IngestProject(ctx, "book", []stages.IngestRequest{
		{Filename: "chapter.tex", Data: []byte(`\def\who{world}`)},
		{Filename: "main.tex", Data: []byte(`\input{chapter}Hello, \who!\undefined`)},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	mainID := results[1].SourceID

	for i := 0; i < 2; i++ {
		ok, err := worker.ProcessJob(ctx, model.WorkStageDigest)
		if err != nil {
			t.Fatalf("process job %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("process job %d: expected a job", i)
		}
	}
	ok, err := worker.ProcessJob(ctx, model.WorkStageDigest)
	if err != nil || ok {
		t.Fatalf("third job: got %v %v, want no job", ok, err)
	}

	d, err := sqlStore.GetDigestBySource(ctx, mainID)
	if err != nil {
		t.Fatalf("get digest: %v", err)
	}
	if d == nil {
		t.Fatal("expected a digest for main.tex")
	}
	if d.Fatal {
		t.Errorf("fatal: got true (%s), want false", d.ErrorCode)
	}
	want := `{"name":"document","children":[{"name":"par","children":[{"text":"Hello, world!"}]}]}`
	if string(d.Tree) != want {
		t.Errorf("tree:\n got %s\nwant %s", d.Tree, want)
	}

	diags, err := sqlStore.DiagnosticsByDigest(ctx, d.ID)
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	codes := make(map[string]bool)
	for _, diag := range diags {
		codes[diag.Code] = true
	}
	for _, code := range []string{texdigest.CodeInput, texdigest.CodeUndefinedControlSequence} {
		if !codes[code] {
			t.Errorf("expected a %s diagnostic, got %+v", code, diags)
		}
	}

	summary, err := sqlStore.GetWorkSummary(ctx)
	if err != nil {
		t.Fatalf("work summary: %v", err)
	}
	if got := summary[model.WorkStageDigest][model.WorkStatusOk]; got != 2 {
		t.Errorf("ok jobs: got %d, want 2", got)
	}
}

func TestWorkerService_ProcessJob_FatalDigest(t *testing.T) {
	ctx := context.Background()
	sqlStore, ingest, worker := newPipeline(t)

	result, err := ingest.IngestFile(ctx, stages.IngestRequest{Filename: "bad.tex", Data: []byte(`a\par\else b`)})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	ok, err := worker.ProcessJob(ctx, model.WorkStageDigest)
	if !ok {
		t.Fatal("expected a job")
	}
	if got := stages.ErrorCode(err); got != texdigest.ErrCodeUnmatchedElse {
		t.Errorf("error code: got %q (%v), want %q", got, err, texdigest.ErrCodeUnmatchedElse)
	}

	failed, err := sqlStore.GetFailedWork(ctx, model.WorkStageDigest)
	if err != nil {
		t.Fatalf("get failed work: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed jobs: got %d, want 1", len(failed))
	}
	if failed[0].ErrorCode == nil || *failed[0].ErrorCode != texdigest.ErrCodeUnmatchedElse {
		t.Errorf("job error code: got %v, want %q", failed[0].ErrorCode, texdigest.ErrCodeUnmatchedElse)
	}

	d, err := sqlStore.GetDigestBySource(ctx, result.SourceID)
	if err != nil || d == nil {
		t.Fatalf("get digest: %v %v", d, err)
	}
	if !d.Fatal || d.ErrorCode != texdigest.ErrCodeUnmatchedElse {
		t.Errorf("digest: got fatal %v code %q, want fatal %q", d.Fatal, d.ErrorCode, texdigest.ErrCodeUnmatchedElse)
	}
	// the partial tree holds what was digested before the error
	if !strings.Contains(string(d.Tree), `"text":"a"`) {
		t.Errorf("tree: got %s, want the text before the error", d.Tree)
	}
}

func TestWorkerService_ProcessJob_Limits(t *testing.T) {
	ctx := context.Background()
	_, ingest, worker := newPipeline(t)
	worker.SetDigestOptions(texdigest.WithMaxExpansions(50))

	if _, err := ingest.IngestFile(ctx, stages.IngestRequest{Filename: "loop.tex", Data: []byte(`\def\a{\a}\a`)}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	_, err := worker.ProcessJob(ctx, model.WorkStageDigest)
	if got := stages.ErrorCode(err); got != texdigest.ErrCodeExpansionLimit {
		t.Errorf("error code: got %q (%v), want %q", got, err, texdigest.ErrCodeExpansionLimit)
	}
}

func TestWorkerService_Drain(t *testing.T) {
	ctx := context.Background()
	_, ingest, worker := newPipeline(t)

	files := []stages.IngestRequest{
		{Filename: "a.tex", Data: []byte("a")},
		{Filename: "b.tex", Data: []byte(`\fi`)},
		{Filename: "c.tex", Data: []byte("$x^2$")},
	}
	if _, err := ingest.IngestProject(ctx, "drain", files); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	processed, failed, err := worker.Drain(ctx, model.WorkStageDigest)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed != 3 || failed != 1 {
		t.Errorf("got processed %d failed %d, want 3 and 1", processed, failed)
	}
}

func TestWorkerService_ClaimJob_AtomicLocking(t *testing.T) {
	ctx := context.Background()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer sqlStore.Close()

	srcID, err := sqlStore.InsertSource(ctx, &model.Source{
		Name:      "test.tex",
		SHA3:      "abc123",
		Size:      3,
		FsPath:    "projects/default/test.tex",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert source: %v", err)
	}

	_, err = sqlStore.InsertWork(ctx, &model.Work{
		SourceID:    srcID,
		Stage:       model.WorkStageDigest,
		Status:      model.WorkStatusQueued,
		Attempt:     0,
		AvailableAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert work: %v", err)
	}

	const numWorkers = 10
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	claimedCount := 0
	var mu sync.Mutex

	for i := 0; i < numWorkers; i++ {
		workerID := i
		go func() {
			defer wg.Done()
			work, err := sqlStore.ClaimWork(ctx, model.WorkStageDigest, "worker-"+string(rune('A'+workerID)))
			if err != nil {
				t.Errorf("worker %d: claim error: %v", workerID, err)
				return
			}
			if work != nil {
				mu.Lock()
				claimedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if claimedCount != 1 {
		t.Errorf("expected exactly 1 worker to claim the job, got %d", claimedCount)
	}
}

func TestWorkerService_ClaimJob_ReturnsNilWhenNoWork(t *testing.T) {
	ctx := context.Background()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer sqlStore.Close()

	work, err := sqlStore.ClaimWork(ctx, model.WorkStageDigest, "test-worker")
	if err != nil {
		t.Fatalf("claim work: %v", err)
	}
	if work != nil {
		t.Errorf("expected nil work when no jobs available, got %+v", work)
	}
}
