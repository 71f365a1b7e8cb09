package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskforge/pkg/task"
)

const (
	scriptsDirName = "generated_scripts"
	tasksDirName   = "tasks"
)

// artifactExtensions mirrors the file types the pipeline reports back to the
// caller after a script run.
var artifactExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".pdf":  {},
	".csv":  {},
	".xlsx": {},
	".mp3":  {},
	".mp4":  {},
	".wav":  {},
}

// FileInfo describes a stored script or artifact.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store owns the output-directory layout. The root is injected configuration;
// the directory itself belongs to the deployment environment and is never
// deleted here.
type Store struct {
	root string
}

// New creates a Store rooted at outputDir. Call EnsureLayout before use.
func New(outputDir string) *Store {
	return &Store{root: outputDir}
}

// Root returns the output directory path.
func (s *Store) Root() string {
	return s.root
}

// ScriptsDir returns the directory generated scripts are written to.
func (s *Store) ScriptsDir() string {
	return filepath.Join(s.root, scriptsDirName)
}

// EnsureLayout creates the output directory tree if it is absent. This must
// succeed before the service starts accepting requests.
func (s *Store) EnsureLayout() error {
	for _, dir := range []string{s.root, s.ScriptsDir(), filepath.Join(s.root, tasksDirName)} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// SaveScript writes script code under generated_scripts with a collision-free
// name derived from the timestamp and the task ID, and returns the file name.
func (s *Store) SaveScript(taskID, code string) (string, error) {
	shortID := taskID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := fmt.Sprintf("script_%s_%s.py", time.Now().UTC().Format("20060102_150405"), shortID)

	path := filepath.Join(s.ScriptsDir(), name)
	if err := os.WriteFile(path, []byte(code), 0640); err != nil {
		return "", fmt.Errorf("failed to write script %s: %w", name, err)
	}

	return name, nil
}

// ScriptPath resolves a script name to its path, rejecting names that would
// escape the scripts directory.
func (s *Store) ScriptPath(name string) (string, error) {
	return s.resolve(s.ScriptsDir(), name)
}

// ArtifactPath resolves an artifact name to its path under the output root.
func (s *Store) ArtifactPath(name string) (string, error) {
	return s.resolve(s.root, name)
}

// resolve joins name onto base and verifies the result stays inside base and
// points at an existing regular file.
func (s *Store) resolve(base, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name: %q", name)
	}

	path := filepath.Join(base, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", name)
		}
		return "", fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("invalid file name: %q", name)
	}

	return path, nil
}

// ListScripts lists generated scripts, newest first.
func (s *Store) ListScripts() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.ScriptsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read scripts directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".py") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	sortNewestFirst(files)
	return files, nil
}

// ListArtifacts lists artifact files directly under the output root. The
// scripts and task-record subdirectories are bookkeeping, not artifacts.
func (s *Store) ListArtifacts() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := artifactExtensions[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{Name: d.Name(), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk output directory: %w", err)
	}

	sortNewestFirst(files)
	return files, nil
}

// SaveRecord persists a task record as JSON under the tasks directory.
func (s *Store) SaveRecord(record *task.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize task record: %w", err)
	}

	path := filepath.Join(s.root, tasksDirName, record.ID+".json")
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("failed to write task record: %w", err)
	}

	return nil
}

// LoadRecord loads one task record by ID. Returns nil when no record exists.
func (s *Store) LoadRecord(id string) (*task.Record, error) {
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid task id: %q", id)
	}

	path := filepath.Join(s.root, tasksDirName, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read task record: %w", err)
	}

	var record task.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse task record: %w", err)
	}

	return &record, nil
}

// ListRecords loads all task records, newest first.
func (s *Store) ListRecords() ([]*task.Record, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, tasksDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks directory: %w", err)
	}

	var records []*task.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		record, err := s.LoadRecord(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil || record == nil {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func sortNewestFirst(files []FileInfo) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
}
