package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskforge/pkg/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "output"))
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}
	return s
}

func TestEnsureLayout_CreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "output")
	s := New(root)

	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}

	for _, dir := range []string{root, s.ScriptsDir(), filepath.Join(root, "tasks")} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Expected directory %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("Expected %s to be a directory", dir)
		}
	}
}

func TestEnsureLayout_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("Second EnsureLayout failed: %v", err)
	}
}

func TestSaveScript_UniqueNames(t *testing.T) {
	s := newTestStore(t)

	first, err := s.SaveScript("aaaaaaaa-1111", "print('one')\n")
	if err != nil {
		t.Fatalf("SaveScript failed: %v", err)
	}
	second, err := s.SaveScript("bbbbbbbb-2222", "print('two')\n")
	if err != nil {
		t.Fatalf("SaveScript failed: %v", err)
	}

	if first == second {
		t.Errorf("Expected distinct script names, both were %s", first)
	}
	if !strings.HasPrefix(first, "script_") || !strings.HasSuffix(first, ".py") {
		t.Errorf("Unexpected script name format: %s", first)
	}

	path, err := s.ScriptPath(first)
	if err != nil {
		t.Fatalf("ScriptPath failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "print('one')\n" {
		t.Errorf("Script content mismatch: %q", string(data))
	}
}

func TestScriptPath_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"../escape.py", "..", "a/b.py", `a\b.py`, ""} {
		if _, err := s.ScriptPath(name); err == nil {
			t.Errorf("Expected error for name %q, got nil", name)
		}
	}
}

func TestListArtifacts_FiltersAndSkipsSubdirs(t *testing.T) {
	s := newTestStore(t)

	// Artifacts at the root, bookkeeping below it.
	files := map[string]string{
		"plot.png":    "png-bytes",
		"data.csv":    "a,b\n1,2\n",
		"notes.txt":   "not an artifact",
		"report.PDF":  "pdf-bytes",
		"ignored.tmp": "scratch",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(s.Root(), name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SaveScript("cccccccc-3333", "print('x')\n"); err != nil {
		t.Fatal(err)
	}

	artifacts, err := s.ListArtifacts()
	if err != nil {
		t.Fatalf("ListArtifacts failed: %v", err)
	}

	names := make(map[string]bool)
	for _, a := range artifacts {
		names[a.Name] = true
	}

	for _, want := range []string{"plot.png", "data.csv", "report.PDF"} {
		if !names[want] {
			t.Errorf("Expected artifact %s in listing, got %v", want, names)
		}
	}
	for _, skip := range []string{"notes.txt", "ignored.tmp"} {
		if names[skip] {
			t.Errorf("Did not expect %s in artifact listing", skip)
		}
	}
	for name := range names {
		if strings.HasSuffix(name, ".py") {
			t.Errorf("Scripts must not appear as artifacts, got %s", name)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	s := newTestStore(t)

	record := task.NewRecord("task-123", "generate a csv")
	record.ScriptName = "script_x.py"
	record.Requirements = []string{"pandas"}
	record.Execution = &task.Execution{ExitCode: 0, Stdout: "done"}
	record.Complete()

	if err := s.SaveRecord(record); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	loaded, err := s.LoadRecord("task-123")
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected record, got nil")
	}
	if loaded.Prompt != "generate a csv" {
		t.Errorf("Prompt mismatch: %s", loaded.Prompt)
	}
	if loaded.Status != task.StatusSucceeded {
		t.Errorf("Expected succeeded status, got %s", loaded.Status)
	}
	if loaded.Execution == nil || loaded.Execution.Stdout != "done" {
		t.Errorf("Execution not preserved: %+v", loaded.Execution)
	}
}

func TestLoadRecord_Unknown(t *testing.T) {
	s := newTestStore(t)

	record, err := s.LoadRecord("does-not-exist")
	if err != nil {
		t.Fatalf("Expected nil error for unknown record, got %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil record, got %+v", record)
	}
}

func TestLoadRecord_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadRecord("../../etc/passwd"); err == nil {
		t.Error("Expected error for traversal id, got nil")
	}
}

func TestListRecords_NewestFirst(t *testing.T) {
	s := newTestStore(t)

	older := task.NewRecord("older", "first task")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := task.NewRecord("newer", "second task")

	if err := s.SaveRecord(older); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRecord(newer); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != "newer" {
		t.Errorf("Expected newest record first, got %s", records[0].ID)
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	root := filepath.Join(t.TempDir(), "output")

	s1 := New(root)
	if err := s1.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	name, err := s1.SaveScript("dddddddd-4444", "print('persist')\n")
	if err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same path stands in for a process restart.
	s2 := New(root)
	if err := s2.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	if _, err := s2.ScriptPath(name); err != nil {
		t.Errorf("Expected script to survive restart: %v", err)
	}
}
