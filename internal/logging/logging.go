// Package logging provides the console logger and the JSONL history of
// validation runs.
package logging

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Entry is one line of the history log.
type Entry struct {
	Time       time.Time      `json:"time"`
	RunID      string         `json:"run_id"`
	Command    string         `json:"command"`
	File       string         `json:"file,omitempty"`
	Engine     string         `json:"engine,omitempty"`
	Valid      bool           `json:"valid"`
	Violations int            `json:"violations"`
	Rules      map[string]int `json:"rules,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// RunLogger appends history entries for one run to a JSONL file.
type RunLogger struct {
	Dir     string
	RunID   string
	LogPath string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewRunLogger creates the per-project log directory and the run's JSONL file.
func NewRunLogger(baseDir, workDir string) (*RunLogger, error) {
	logDir, err := FindLogDir(baseDir, workDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	id := runID()
	logPath := filepath.Join(logDir, id+".jsonl")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &RunLogger{
		Dir:     logDir,
		RunID:   id,
		LogPath: logPath,
		file:    file,
		enc:     json.NewEncoder(file),
	}, nil
}

// Record appends e, filling in the time and run ID when unset. A nil
// RunLogger discards entries.
func (r *RunLogger) Record(e Entry) error {
	if r == nil {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.RunID == "" {
		e.RunID = r.RunID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return errors.New("run logger is closed")
	}
	if err := r.enc.Encode(e); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	return nil
}

// Close closes the log file.
func (r *RunLogger) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// FindLogDir returns the log directory for the project containing workDir:
// <baseDir>/<project-slug>.
func FindLogDir(baseDir, workDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	baseDir = resolveBaseDir(baseDir, resolvedWorkDir)
	projectRoot := resolveProjectRoot(resolvedWorkDir)
	return filepath.Join(baseDir, projectSlug(projectRoot)), nil
}

func resolveBaseDir(baseDir, workDir string) string {
	if filepath.IsAbs(baseDir) {
		return filepath.Clean(baseDir)
	}
	return filepath.Clean(filepath.Join(workDir, baseDir))
}

// resolveProjectRoot prefers the enclosing git work tree.
func resolveProjectRoot(workDir string) string {
	if _, err := exec.LookPath("git"); err == nil {
		cmd := exec.Command("git", "-C", workDir, "rev-parse", "--show-toplevel")
		if output, err := cmd.Output(); err == nil {
			if root := strings.TrimSpace(string(output)); root != "" {
				return root
			}
		}
	}
	return workDir
}

func projectSlug(projectRoot string) string {
	return fmt.Sprintf("%s-%s", slugify(filepath.Base(projectRoot)), hashPath(projectRoot))
}

func slugify(input string) string {
	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_.")
	if slug == "" {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}

// LogRun describes one run's history file.
type LogRun struct {
	RunID   string
	Path    string
	ModTime time.Time
}

// FindLogRuns lists the runs in logDir, newest first. A missing directory
// yields no runs.
func FindLogRuns(logDir string) ([]LogRun, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	var runs []LogRun
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, LogRun{
			RunID:   strings.TrimSuffix(name, ".jsonl"),
			Path:    filepath.Join(logDir, name),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].ModTime.Equal(runs[j].ModTime) {
			return runs[i].ModTime.After(runs[j].ModTime)
		}
		return runs[i].RunID > runs[j].RunID
	})
	return runs, nil
}

// FindLatestLog returns the newest JSONL file in logDir, or "" if none.
func FindLatestLog(logDir string) (string, error) {
	runs, err := FindLogRuns(logDir)
	if err != nil || len(runs) == 0 {
		return "", err
	}
	return runs[0].Path, nil
}

// ReadEntries decodes every entry of a history file.
func ReadEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	dec := json.NewDecoder(file)
	for {
		var e Entry
		if err := dec.Decode(&e); err == io.EOF {
			return entries, nil
		} else if err != nil {
			return entries, fmt.Errorf("decode log entry: %w", err)
		}
		entries = append(entries, e)
	}
}

// TailLog writes the last n lines of path to w (all lines when n <= 0).
// With follow set it keeps copying appended data until ctx is cancelled.
func TailLog(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := writeLastLines(w, file, n); err != nil {
			return err
		}
	} else if _, err := io.Copy(w, file); err != nil {
		return err
	}

	if !follow {
		return nil
	}
	return tailFollow(ctx, w, file)
}

// writeLastLines writes the last n lines of file and leaves the offset at
// the end of the file.
func writeLastLines(w io.Writer, file *os.File, n int) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	_, err = io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// tailFollow copies data appended to file, waking on fsnotify writes.
func tailFollow(ctx context.Context, w io.Writer, file *os.File) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(file.Name()); err != nil {
		return fmt.Errorf("watch log file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				if _, err := io.Copy(w, file); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch log file: %w", err)
		}
	}
}
