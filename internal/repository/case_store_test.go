package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

const caseJSON = `{
	"case_id": "%s",
	"topic": "Sample topic",
	"case_data": {
		"demographics": "54-year-old male",
		"chief_complaint": "Blurred vision",
		"clinical_data": {"presenting_va": "OD 6/9, OS 6/12"}
	},
	"questions": [{
		"question": "What is the most likely diagnosis?",
		"options": [
			{"label": "a", "text": "Dry eye"},
			{"label": "b", "text": "POAG"},
			{"label": "c", "text": "Cataract"},
			{"label": "d", "text": "Keratoconus"}
		],
		"answer": "b",
		"explanation": "IOP and cupping."
	}]
}`

func writeCaseFile(t *testing.T, dir, name, id string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(fmt.Sprintf(caseJSON, id)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileCaseStoreSingleObject(t *testing.T) {
	path := writeCaseFile(t, t.TempDir(), "cases.json", "OEBC-001")

	store, err := NewFileCaseStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("load store: %v", err)
	}

	ids, err := store.ListIDs(context.Background())
	if err != nil || len(ids) != 1 || ids[0] != "OEBC-001" {
		t.Fatalf("ListIDs = %v, %v", ids, err)
	}

	c, err := store.Get(context.Background(), "OEBC-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Data.ChiefComplaint != "Blurred vision" {
		t.Fatalf("case data not preserved: %+v", c.Data)
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
}

func TestFileCaseStoreList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	list := "[" + fmt.Sprintf(caseJSON, "C1") + "," + fmt.Sprintf(caseJSON, "C2") + "]"
	if err := os.WriteFile(path, []byte(list), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileCaseStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("load store: %v", err)
	}

	ids, _ := store.ListIDs(context.Background())
	if len(ids) != 2 {
		t.Fatalf("expected 2 cases, got %v", ids)
	}
}

func TestFileCaseStoreSkipsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	// Second entry is missing its questions and must be skipped.
	list := "[" + fmt.Sprintf(caseJSON, "C1") + `,{"case_id": "C2", "questions": []}]`
	if err := os.WriteFile(path, []byte(list), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileCaseStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("load store: %v", err)
	}

	ids, _ := store.ListIDs(context.Background())
	if len(ids) != 1 || ids[0] != "C1" {
		t.Fatalf("expected only C1, got %v", ids)
	}
}

func TestFileCaseStoreAllInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	if err := os.WriteFile(path, []byte(`[{"case_id": "C1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileCaseStore(path, zap.NewNop()); !errors.Is(err, ErrNoValidCases) {
		t.Fatalf("expected ErrNoValidCases, got %v", err)
	}
}

func TestDirCaseStoreRescan(t *testing.T) {
	dir := t.TempDir()
	writeCaseFile(t, dir, "c1.json", "C1")

	store, err := NewDirCaseStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ids, err := store.ListIDs(context.Background())
	if err != nil || len(ids) != 1 {
		t.Fatalf("ListIDs = %v, %v", ids, err)
	}

	// New files become visible on the next listing without a restart.
	writeCaseFile(t, dir, "c2.json", "C2")
	ids, err = store.ListIDs(context.Background())
	if err != nil || len(ids) != 2 {
		t.Fatalf("ListIDs after drop-in = %v, %v", ids, err)
	}

	c, err := store.Get(context.Background(), "C2")
	if err != nil || c.ID != "C2" {
		t.Fatalf("Get C2 = %v, %v", c, err)
	}
}

func TestDirCaseStoreSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeCaseFile(t, dir, "good.json", "C1")
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewDirCaseStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ids, err := store.ListIDs(context.Background())
	if err != nil || len(ids) != 1 || ids[0] != "C1" {
		t.Fatalf("ListIDs = %v, %v", ids, err)
	}
}
