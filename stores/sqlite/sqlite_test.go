// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mdhender/texdigest/model"
	store "github.com/mdhender/texdigest/stores/sqlite"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })
	return sqlStore
}

func insertSource(t *testing.T, ctx context.Context, sqlStore *store.SQLiteStore, name string) int64 {
	t.Helper()
	id, err := sqlStore.InsertSource(ctx, &model.Source{
		Name:      name,
		SHA3:      "hash-" + name,
		Size:      int64(len(name)),
		FsPath:    "projects/default/" + name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert source %s: %v", name, err)
	}
	return id
}

func insertWork(t *testing.T, ctx context.Context, sqlStore *store.SQLiteStore, sourceID int64) int64 {
	t.Helper()
	id, err := sqlStore.InsertWork(ctx, &model.Work{
		SourceID:    sourceID,
		Stage:       model.WorkStageDigest,
		Status:      model.WorkStatusQueued,
		Attempt:     0,
		AvailableAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert work: %v", err)
	}
	return id
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)

	id := insertSource(t, ctx, sqlStore, "main.tex")

	byID, err := sqlStore.GetSourceByID(ctx, id)
	if err != nil {
		t.Fatalf("get source by id: %v", err)
	}
	if byID == nil || byID.Name != "main.tex" || byID.FsPath != "projects/default/main.tex" {
		t.Fatalf("get source by id: got %+v", byID)
	}
	if byID.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	byHash, err := sqlStore.GetSourceBySHA3(ctx, "hash-main.tex")
	if err != nil {
		t.Fatalf("get source by sha3: %v", err)
	}
	if byHash == nil || byHash.ID != id {
		t.Errorf("get source by sha3: got %+v, want id %d", byHash, id)
	}

	missing, err := sqlStore.GetSourceBySHA3(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing source: got %+v %v, want nil nil", missing, err)
	}
	missing, err = sqlStore.GetSourceByID(ctx, id+100)
	if err != nil || missing != nil {
		t.Errorf("missing source: got %+v %v, want nil nil", missing, err)
	}

	_, err = sqlStore.InsertSource(ctx, &model.Source{Name: "dup.tex", SHA3: "hash-main.tex", FsPath: "x", CreatedAt: time.Now()})
	if err == nil {
		t.Error("expected an error inserting a duplicate hash")
	}
}

func TestDigestsAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)
	srcID := insertSource(t, ctx, sqlStore, "main.tex")

	none, err := sqlStore.GetDigestBySource(ctx, srcID)
	if err != nil || none != nil {
		t.Fatalf("digest before insert: got %+v %v, want nil nil", none, err)
	}

	for i, fatal := range []bool{false, true} {
		d := &model.Digest{
			SourceID:  srcID,
			Nodes:     i + 1,
			Fatal:     fatal,
			Tree:      []byte(fmt.Sprintf(`{"name":"document","n":%d}`, i)),
			CreatedAt: time.Now().UTC(),
		}
		if fatal {
			d.ErrorCode = "UNMATCHED_FI"
		}
		if _, err := sqlStore.InsertDigest(ctx, d); err != nil {
			t.Fatalf("insert digest %d: %v", i, err)
		}
		if d.ID == 0 {
			t.Errorf("digest %d: expected the id to be set", i)
		}
	}

	d, err := sqlStore.GetDigestBySource(ctx, srcID)
	if err != nil {
		t.Fatalf("get digest: %v", err)
	}
	if !d.Fatal || d.ErrorCode != "UNMATCHED_FI" || d.Nodes != 2 {
		t.Errorf("latest digest: got fatal %v code %q nodes %d, want true UNMATCHED_FI 2", d.Fatal, d.ErrorCode, d.Nodes)
	}
	if string(d.Tree) != `{"name":"document","n":1}` {
		t.Errorf("tree: got %s", d.Tree)
	}

	for i, code := range []string{"INPUT", "UNDEFINED_CONTROL_SEQUENCE"} {
		_, err := sqlStore.InsertDiagnostic(ctx, &model.Diagnostic{
			DigestID: d.ID,
			Severity: "WARN",
			Code:     code,
			Message:  "message " + code,
			Line:     i + 1,
			Column:   i + 10,
		})
		if err != nil {
			t.Fatalf("insert diagnostic: %v", err)
		}
	}
	diags, err := sqlStore.DiagnosticsByDigest(ctx, d.ID)
	if err != nil {
		t.Fatalf("diagnostics by digest: %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("diagnostics: got %d, want 2", len(diags))
	}
	if diags[1].Code != "UNDEFINED_CONTROL_SEQUENCE" || diags[1].Line != 2 || diags[1].Column != 11 {
		t.Errorf("second diagnostic: got %+v", diags[1])
	}

	stats, err := sqlStore.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := model.Stats{Sources: 1, Work: 0, Digests: 2, Diagnostics: 2}
	if stats != want {
		t.Errorf("stats: got %+v, want %+v", stats, want)
	}
}

func TestResetFailedWork_ResetsFailedJobs(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)

	var ids []int64
	for i := 1; i <= 3; i++ {
		srcID := insertSource(t, ctx, sqlStore, fmt.Sprintf("file%d.tex", i))
		ids = append(ids, insertWork(t, ctx, sqlStore, srcID))
	}

	if err := sqlStore.FinishWork(ctx, ids[0], model.WorkStatusFailed, "UNMATCHED_FI", "extra \\fi"); err != nil {
		t.Fatalf("finish work 1: %v", err)
	}
	if err := sqlStore.FinishWork(ctx, ids[1], model.WorkStatusFailed, "EXPANSION_LIMIT", "capacity exceeded"); err != nil {
		t.Fatalf("finish work 2: %v", err)
	}
	if err := sqlStore.FinishWork(ctx, ids[2], model.WorkStatusOk, "", ""); err != nil {
		t.Fatalf("finish work 3: %v", err)
	}

	failedBefore, err := sqlStore.GetFailedWork(ctx, model.WorkStageDigest)
	if err != nil {
		t.Fatalf("get failed work before: %v", err)
	}
	if len(failedBefore) != 2 {
		t.Errorf("expected 2 failed jobs before reset, got %d", len(failedBefore))
	}

	resetCount, err := sqlStore.ResetFailedWork(ctx, model.WorkStageDigest)
	if err != nil {
		t.Fatalf("reset failed work: %v", err)
	}
	if resetCount != 2 {
		t.Errorf("expected 2 jobs reset, got %d", resetCount)
	}

	failedAfter, err := sqlStore.GetFailedWork(ctx, model.WorkStageDigest)
	if err != nil {
		t.Fatalf("get failed work after: %v", err)
	}
	if len(failedAfter) != 0 {
		t.Errorf("expected 0 failed jobs after reset, got %d", len(failedAfter))
	}

	claimedJobs := 0
	for i := 0; i < 3; i++ {
		work, err := sqlStore.ClaimWork(ctx, model.WorkStageDigest, "test-worker")
		if err != nil {
			t.Fatalf("claim work %d: %v", i, err)
		}
		if work != nil {
			claimedJobs++
		}
	}
	if claimedJobs != 2 {
		t.Errorf("expected 2 jobs to be claimable after reset, got %d", claimedJobs)
	}
}

func TestResetFailedWork_ClearsErrorFields(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)
	workID := insertWork(t, ctx, sqlStore, insertSource(t, ctx, sqlStore, "test.tex"))

	claimed, err := sqlStore.ClaimWork(ctx, model.WorkStageDigest, "worker-1")
	if err != nil {
		t.Fatalf("claim work: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected to claim work")
	}
	if claimed.Attempt != 1 {
		t.Errorf("attempt: got %d, want 1", claimed.Attempt)
	}

	err = sqlStore.FinishWork(ctx, workID, model.WorkStatusFailed, "TEST_ERROR", "test error message")
	if err != nil {
		t.Fatalf("finish work: %v", err)
	}

	failedBefore, err := sqlStore.GetFailedWork(ctx, model.WorkStageDigest)
	if err != nil {
		t.Fatalf("get failed work: %v", err)
	}
	if len(failedBefore) != 1 {
		t.Fatalf("expected 1 failed job, got %d", len(failedBefore))
	}
	if failedBefore[0].ErrorCode == nil || *failedBefore[0].ErrorCode != "TEST_ERROR" {
		t.Errorf("expected error code 'TEST_ERROR', got %v", failedBefore[0].ErrorCode)
	}

	if _, err = sqlStore.ResetFailedWork(ctx, model.WorkStageDigest); err != nil {
		t.Fatalf("reset failed work: %v", err)
	}

	reclaimedWork, err := sqlStore.ClaimWork(ctx, model.WorkStageDigest, "worker-2")
	if err != nil {
		t.Fatalf("reclaim work: %v", err)
	}
	if reclaimedWork == nil {
		t.Fatal("expected to reclaim work after reset")
	}
	if reclaimedWork.ErrorCode != nil {
		t.Errorf("expected error_code to be cleared, got %v", *reclaimedWork.ErrorCode)
	}
	if reclaimedWork.ErrorMessage != nil {
		t.Errorf("expected error_message to be cleared, got %v", *reclaimedWork.ErrorMessage)
	}
	if reclaimedWork.LockedBy == nil || *reclaimedWork.LockedBy != "worker-2" {
		t.Errorf("expected locked_by to be 'worker-2', got %v", reclaimedWork.LockedBy)
	}
	if reclaimedWork.Status != model.WorkStatusRunning {
		t.Errorf("expected status 'running', got %q", reclaimedWork.Status)
	}
	if reclaimedWork.Attempt != 2 {
		t.Errorf("attempt: got %d, want 2", reclaimedWork.Attempt)
	}
}
