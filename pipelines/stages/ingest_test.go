// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mdhender/texdigest/model"
	"github.com/mdhender/texdigest/pipelines/stages"
	"github.com/spf13/afero"
)

// mockStore implements stages.IngestStore for testing.
type mockStore struct {
	sources   map[int64]*model.Source
	work      map[int64]*model.Work
	sha3Index map[string]*model.Source

	nextSourceID int64
	nextWorkID   int64
}

func newMockStore() *mockStore {
	return &mockStore{
		sources:      make(map[int64]*model.Source),
		work:         make(map[int64]*model.Work),
		sha3Index:    make(map[string]*model.Source),
		nextSourceID: 1,
		nextWorkID:   1,
	}
}

func (m *mockStore) GetSourceBySHA3(_ context.Context, sha3 string) (*model.Source, error) {
	return m.sha3Index[sha3], nil
}

func (m *mockStore) InsertSource(_ context.Context, src *model.Source) (int64, error) {
	id := m.nextSourceID
	m.nextSourceID++
	src.ID = id
	m.sources[id] = src
	m.sha3Index[src.SHA3] = src
	return id, nil
}

func (m *mockStore) InsertWork(_ context.Context, work *model.Work) (int64, error) {
	id := m.nextWorkID
	m.nextWorkID++
	work.ID = id
	m.work[id] = work
	return id, nil
}

func TestIngestService_IngestFile(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	fs := afero.NewMemMapFs()

	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(fs)

	data := []byte(`\section{Intro} Hello, world.`)
	result, err := svc.IngestFile(ctx, stages.IngestRequest{
		Project:  "thesis",
		Filename: "chapters/intro.tex",
		Data:     data,
	})
	if err != nil {
		t.Fatalf("ingest file: %v", err)
	}
	if result.Duplicate {
		t.Error("expected not duplicate on first ingest")
	}
	if result.SourceID == 0 {
		t.Error("expected non-zero source ID")
	}
	if result.WorkID == 0 {
		t.Error("expected non-zero work ID")
	}

	src := store.sources[result.SourceID]
	if src == nil {
		t.Fatal("source not found in store")
	}
	if src.Name != "intro.tex" {
		t.Errorf("name: got %q, want %q", src.Name, "intro.tex")
	}
	wantPath := filepath.Join("projects", "thesis", "chapters", "intro.tex")
	if src.FsPath != wantPath {
		t.Errorf("fs_path: got %q, want %q", src.FsPath, wantPath)
	}
	if src.SHA3 != stages.HashSource(data) || len(src.SHA3) != 64 {
		t.Errorf("sha3: got %q, want the 64 digit hash of the data", src.SHA3)
	}
	if src.Size != int64(len(data)) {
		t.Errorf("size: got %d, want %d", src.Size, len(data))
	}

	work := store.work[result.WorkID]
	if work == nil {
		t.Fatal("work not found in store")
	}
	if work.Stage != model.WorkStageDigest {
		t.Errorf("stage: got %q, want %q", work.Stage, model.WorkStageDigest)
	}
	if work.Status != model.WorkStatusQueued {
		t.Errorf("status: got %q, want %q", work.Status, model.WorkStatusQueued)
	}

	got, err := afero.ReadFile(fs, filepath.Join("/data", wantPath))
	if err != nil {
		t.Fatalf("read ingested file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content: got %q, want %q", got, data)
	}
}

func TestIngestService_DuplicateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()

	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(afero.NewMemMapFs())

	req := stages.IngestRequest{Filename: "main.tex", Data: []byte(`\def\a{b}\a`)}
	result1, err := svc.IngestFile(ctx, req)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	req.Filename = "copy.tex"
	result2, err := svc.IngestFile(ctx, req)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !result2.Duplicate {
		t.Error("expected duplicate=true on second ingest")
	}
	if result2.SourceID != result1.SourceID {
		t.Errorf("source id: got %d, want %d", result2.SourceID, result1.SourceID)
	}
	if result2.WorkID != 0 {
		t.Error("expected zero work ID for duplicate (no new work created)")
	}
	if len(store.work) != 1 {
		t.Errorf("work rows: got %d, want 1", len(store.work))
	}
}

func TestIngestService_RejectsNonTeX(t *testing.T) {
	svc := stages.NewIngestService(newMockStore(), "/data")
	svc.SetFS(afero.NewMemMapFs())

	_, err := svc.IngestFile(context.Background(), stages.IngestRequest{Filename: "report.docx", Data: []byte("x")})
	var notTeX *stages.ErrNotTeX
	if !errors.As(err, &notTeX) {
		t.Fatalf("got %v, want *ErrNotTeX", err)
	}
	if got := stages.ErrorCode(err); got != stages.ErrCodeNotTeX {
		t.Errorf("error code: got %q, want %q", got, stages.ErrCodeNotTeX)
	}
}

func TestIngestService_KeepsFilesInsideProject(t *testing.T) {
	store := newMockStore()
	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(afero.NewMemMapFs())

	result, err := svc.IngestFile(context.Background(), stages.IngestRequest{
		Project:  "p",
		Filename: "../../etc/evil.tex",
		Data:     []byte("evil"),
	})
	if err != nil {
		t.Fatalf("ingest file: %v", err)
	}
	want := filepath.Join("projects", "p", "evil.tex")
	if got := store.sources[result.SourceID].FsPath; got != want {
		t.Errorf("fs_path: got %q, want %q", got, want)
	}
}

func TestIngestService_IngestProject(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()

	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(afero.NewMemMapFs())

	files := []stages.IngestRequest{
		{Filename: "main.tex", Data: []byte(`\input{one}`)},
		{Filename: "one.tex", Data: []byte("one")},
		{Filename: "style.sty", Data: []byte(`\def\x{y}`)},
	}
	results, err := svc.IngestProject(ctx, "book", files)
	if err != nil {
		t.Fatalf("ingest project: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}
	for _, r := range results {
		src := store.sources[r.SourceID]
		if dir := filepath.Dir(src.FsPath); dir != filepath.Join("projects", "book") {
			t.Errorf("%s: dir: got %q, want projects/book", src.Name, dir)
		}
	}
}
