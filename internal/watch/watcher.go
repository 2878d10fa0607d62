// Package watch analyzes résumé PDFs dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"resumeinsight/internal/client"
	"resumeinsight/internal/document"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/formatters"
	"resumeinsight/internal/observability"
	"resumeinsight/internal/types"
	"resumeinsight/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// Analyzer runs one résumé analysis
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest, onProgress client.ProgressFunc) (*types.AnalysisResult, error)
}

// Outcome describes one processed inbox file
type Outcome struct {
	Source string
	Output string
	Err    error
}

// Options configures a Watcher
type Options struct {
	Dir             string
	OutputDir       string // defaults to Dir
	Format          string // defaults to json
	JobDescription  string
	DebounceDelay   time.Duration
	ProcessExisting bool
	MaxFileSize     int64

	Logger   *errors.Logger
	Metrics  *observability.Metrics
	Registry *formatters.FormatterRegistry
	OnResult func(Outcome)
}

// Stats counts processed files
type Stats struct {
	Processed int
	Failed    int
}

// Watcher watches a directory and analyzes new PDFs one at a time
type Watcher struct {
	mu sync.Mutex

	opts     Options
	analyzer Analyzer
	logger   *errors.Logger

	fsWatcher *fsnotify.Watcher

	// Debounce timers per file
	timers map[string]*time.Timer

	// Files waiting for the worker, in arrival order
	queue   []string
	queued  map[string]bool
	wake    chan struct{}
	ready   chan struct{}
	running bool
	started bool // a Watcher runs at most once

	// Modification time at last analysis, used to skip duplicate events
	lastModTime map[string]time.Time

	stats Stats
}

// NewWatcher creates a new inbox watcher
func NewWatcher(analyzer Analyzer, opts Options) (*Watcher, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("watcher needs an analyzer")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = opts.Dir
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = time.Second // Default 1 second debounce
	}
	if opts.Registry == nil {
		opts.Registry = formatters.GlobalRegistry
	}
	logger := opts.Logger
	if logger == nil {
		logger = errors.Discard()
	}

	return &Watcher{
		opts:        opts,
		analyzer:    analyzer,
		logger:      logger.With("component", "watcher", "dir", opts.Dir),
		timers:      make(map[string]*time.Timer),
		queued:      make(map[string]bool),
		wake:        make(chan struct{}, 1),
		ready:       make(chan struct{}),
		lastModTime: make(map[string]time.Time),
	}, nil
}

// Ready is closed once the directory is being watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Stats returns the number of files processed so far
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches until ctx is cancelled. An analysis in flight is cancelled with it.
// A Watcher can be run only once.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.start(); err != nil {
		return err
	}
	defer w.stop()

	if w.opts.ProcessExisting {
		if err := w.enqueueExisting(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()

	close(w.ready)
	w.logger.Info("Inbox watcher started",
		"output_dir", w.opts.OutputDir,
		"format", w.opts.Format,
		"debounce_delay", w.opts.DebounceDelay)

	w.watchLoop(ctx)
	wg.Wait()

	stats := w.Stats()
	w.logger.Info("Inbox watcher stopped", "processed", stats.Processed, "failed", stats.Failed)
	return nil
}

func (w *Watcher) start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("inbox watcher is already running")
	}
	if w.started {
		return fmt.Errorf("inbox watcher cannot be restarted")
	}

	info, err := os.Stat(w.opts.Dir)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotFound, "cannot open watch directory", err).
			WithContext("dir", w.opts.Dir)
	}
	if !info.IsDir() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "watch path is not a directory", nil).
			WithContext("dir", w.opts.Dir)
	}
	if err := os.MkdirAll(w.opts.OutputDir, 0750); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED", "cannot create output directory", err).
			WithContext("dir", w.opts.OutputDir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(w.opts.Dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			w.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch directory %s: %w", w.opts.Dir, err)
	}

	w.fsWatcher = watcher
	w.running = true
	w.started = true
	return nil
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			w.logger.LogError(err, "Failed to close file system watcher")
		}
	}
	w.running = false
}

// enqueueExisting queues PDFs already present in the inbox, sorted by name
func (w *Watcher) enqueueExisting() error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot list watch directory", err).
			WithContext("dir", w.opts.Dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && isInboxFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		w.enqueue(filepath.Join(w.opts.Dir, name))
	}
	if len(names) > 0 {
		w.logger.Info("Queued existing résumés", "count", len(names))
	}
	return nil
}

// watchLoop is the main event loop for file watching
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if shouldProcessEvent(event) {
				w.scheduleFile(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error")

		case <-ctx.Done():
			return
		}
	}
}

// shouldProcessEvent keeps create and write events on PDFs
func shouldProcessEvent(event fsnotify.Event) bool {
	if !isInboxFile(filepath.Base(event.Name)) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// isInboxFile skips hidden and partial files
func isInboxFile(name string) bool {
	return !strings.HasPrefix(name, ".") && utils.IsPDFFile(name)
}

// scheduleFile restarts the debounce timer of path
func (w *Watcher) scheduleFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.DebounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(path)
	})
}

func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	if w.queued[path] {
		w.mu.Unlock()
		return
	}
	w.queued[path] = true
	w.queue = append(w.queue, path)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) next() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.queue) == 0 {
		return "", false
	}
	path := w.queue[0]
	w.queue = w.queue[1:]
	delete(w.queued, path)
	return path, true
}

// worker analyzes queued files one at a time
func (w *Watcher) worker(ctx context.Context) {
	for {
		for {
			if ctx.Err() != nil {
				return
			}
			path, ok := w.next()
			if !ok {
				break
			}
			w.process(ctx, path)
		}

		select {
		case <-w.wake:
		case <-ctx.Done():
			return
		}
	}
}

// hasFileChanged reports whether path differs from the version last analyzed
func (w *Watcher) hasFileChanged(path string) (time.Time, bool) {
	stat, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	lastMod, exists := w.lastModTime[path]
	return stat.ModTime(), !exists || stat.ModTime().After(lastMod)
}

func (w *Watcher) process(ctx context.Context, path string) {
	modTime, changed := w.hasFileChanged(path)
	if !changed {
		w.logger.Debug("Skipping unchanged résumé", "file", path)
		return
	}

	logger := w.logger.With("file", filepath.Base(path))
	logger.Info("Analyzing résumé")

	output, err := w.analyzeFile(ctx, path, logger)

	w.mu.Lock()
	// Transient failures leave the file eligible for the next event
	if err == nil || errors.IsType(err, errors.ErrorTypeValidation) {
		w.lastModTime[path] = modTime
	}
	if err != nil {
		w.stats.Failed++
	} else {
		w.stats.Processed++
	}
	w.mu.Unlock()

	if err != nil {
		logger.LogError(err, "Résumé analysis failed")
	} else {
		logger.Info("Analysis written", "output", output)
	}

	if w.opts.OnResult != nil {
		w.opts.OnResult(Outcome{Source: path, Output: output, Err: err})
	}
}

func (w *Watcher) analyzeFile(ctx context.Context, path string, logger *errors.Logger) (string, error) {
	doc, err := document.Load(path, w.opts.MaxFileSize)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			w.opts.Metrics.RecordDocumentRejected(ctx, appErr.Code)
		}
		return "", err
	}

	result, err := w.analyzer.Analyze(ctx, doc.Request(w.opts.JobDescription), func(event types.ProgressEvent) {
		logger.Debug("Analysis progress", "stage", event.Stage, "progress", event.Progress)
	})
	if err != nil {
		return "", err
	}

	formatted, err := w.opts.Registry.Format(result, w.opts.Format)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", w.opts.Format), err)
	}

	output := w.outputPath(path)
	if err := os.WriteFile(output, []byte(formatted), 0600); err != nil {
		return "", errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", output), err)
	}
	return output, nil
}

// outputPath maps inbox/resume.pdf to outputDir/resume.<ext>
func (w *Watcher) outputPath(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(w.opts.OutputDir, base+utils.FormatExtension(w.opts.Format))
}
