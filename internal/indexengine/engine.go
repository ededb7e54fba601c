package indexengine

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opennote/semindex/internal/chunker"
	"github.com/opennote/semindex/internal/embedclient"
	"github.com/opennote/semindex/internal/model"
	"github.com/opennote/semindex/internal/pkg/apperr"
	"github.com/opennote/semindex/internal/progress"
	"github.com/opennote/semindex/internal/scanner"
	"github.com/opennote/semindex/internal/vectorstore"
)

const batchSize = 10

// Options is the update request payload (spec.md §6).
type Options struct {
	ReindexAll bool
}

// Engine is the Index Engine (spec.md §4.5): a per-workspace state machine
// serialized by the vector store's advisory lock, grounded on the teacher's
// internal/job/ai_embedding_job.go for the read-chunk-embed-insert shape and
// internal/schedule/scheduler.go for the non-blocking intra-process mutex.
type Engine struct {
	workspaceID string
	model       string
	store       *vectorstore.Store
	scanner     *scanner.Scanner
	chunker     *chunker.Chunker
	embedder    embedclient.Client
	reporter    *progress.Reporter

	busy   atomic.Bool
	cancel *CancelToken
}

// Scope returns the workspace+model partition this engine operates on, for
// callers (console, MCP tools) that need to query the store directly.
func (e *Engine) Scope() vectorstore.Scope {
	return vectorstore.Scope{WorkspaceID: e.workspaceID, Model: e.model}
}

func New(workspaceID, modelName string, store *vectorstore.Store, sc *scanner.Scanner, ck *chunker.Chunker, embedder embedclient.Client, reporter *progress.Reporter) *Engine {
	return &Engine{
		workspaceID: workspaceID,
		model:       modelName,
		store:       store,
		scanner:     sc,
		chunker:     ck,
		embedder:    embedder,
		reporter:    reporter,
		cancel:      NewCancelToken(),
	}
}

// CountFiles reports the number of files the scanner currently matches,
// for a status request's total_files (spec.md §6).
func (e *Engine) CountFiles() (int, error) {
	entries, err := e.scanner.Scan()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Cancel requests cancellation of the in-flight run, or the next one
// started, through the single token every control surface shares.
func (e *Engine) Cancel() {
	e.cancel.Cancel()
}

// ResetCancel clears a prior cancellation before a new run starts.
func (e *Engine) ResetCancel() {
	e.cancel.Reset()
}

// Update runs one indexing invocation per the state machine in spec.md
// §4.5, blocking until it finishes. It enforces the intra-process
// non-blocking mutex immediately (returning ErrBusy on a second concurrent
// call) before ever touching the inter-process advisory lock.
func (e *Engine) Update(ctx context.Context, opts Options, progressCb func(model.ProgressEvent)) error {
	emit, logger, err := e.beginRun(ctx, progressCb)
	if err != nil {
		return err
	}
	return e.runLocked(ctx, opts, emit, logger)
}

// UpdateAsync behaves like Update, except it returns as soon as the
// busy/schema-dimension rejection would be observable, running the
// scan-through-embed work in the background. Only the long-running part
// of a run needs to be asynchronous at a control surface's boundary
// (spec.md §5): a second concurrent request must still fail immediately
// with ErrBusy rather than receiving an unconditional acceptance.
func (e *Engine) UpdateAsync(ctx context.Context, opts Options, progressCb func(model.ProgressEvent)) error {
	emit, logger, err := e.beginRun(ctx, progressCb)
	if err != nil {
		return err
	}
	go func() {
		_ = e.runLocked(ctx, opts, emit, logger)
	}()
	return nil
}

// beginRun acquires the busy flag and validates the embedding dimension
// against the schema - the part of a run every caller must observe
// synchronously before either running or backgrounding the rest.
func (e *Engine) beginRun(ctx context.Context, progressCb func(model.ProgressEvent)) (func(model.ProgressEvent), *zap.Logger, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, nil, apperr.ErrBusy
	}

	logger := logutil.GetLogger(ctx).With(zap.String("workspace_id", e.workspaceID), zap.String("model", e.model))

	emit := func(evt model.ProgressEvent) {
		if progressCb != nil {
			progressCb(evt)
		}
		e.reporter.Emit(ctx, evt)
	}

	emit(model.ProgressEvent{Type: model.ProgressStart, Message: "indexing started"})

	dim, err := e.store.SchemaDimension(ctx)
	if err != nil {
		e.busy.Store(false)
		emit(model.ProgressEvent{Type: model.ProgressError, Message: err.Error()})
		return nil, nil, err
	}
	if dim != nil && *dim != e.embedder.Dimension() {
		e.busy.Store(false)
		emit(model.ProgressEvent{Type: model.ProgressError, Message: "embedding dimension does not match schema"})
		return nil, nil, apperr.ErrConfig
	}
	return emit, logger, nil
}

// runLocked acquires the workspace lock and executes run, releasing the
// busy flag when it finishes. Callers must have already acquired busy via
// beginRun.
func (e *Engine) runLocked(ctx context.Context, opts Options, emit func(model.ProgressEvent), logger *zap.Logger) error {
	defer e.busy.Store(false)

	scope := vectorstore.Scope{WorkspaceID: e.workspaceID, Model: e.model}

	var runErr error
	lockErr := e.store.WithWorkspaceLock(ctx, e.workspaceID, func(_ *sql.Conn) error {
		runErr = e.run(ctx, scope, opts, emit, e.cancel, logger)
		return nil
	})
	if lockErr != nil {
		emit(model.ProgressEvent{Type: model.ProgressError, Message: lockErr.Error()})
		return lockErr
	}
	return runErr
}

// run executes steps 2-10 of the state machine while the workspace lock is held.
func (e *Engine) run(ctx context.Context, scope vectorstore.Scope, opts Options, emit func(model.ProgressEvent), cancel *CancelToken, logger *zap.Logger) error {
	if opts.ReindexAll {
		if err := e.store.ClearAll(ctx, scope); err != nil {
			return err
		}
	}

	entries, err := e.scanner.Scan()
	if err != nil {
		return err
	}
	onDisk := make(map[string]scanner.Entry, len(entries))
	for _, en := range entries {
		onDisk[en.Path] = en
	}

	if !opts.ReindexAll {
		indexed, err := e.store.IndexedPaths(ctx, scope)
		if err != nil {
			return err
		}
		var gone []string
		for p := range indexed {
			if _, stillThere := onDisk[p]; !stillThere {
				gone = append(gone, p)
			}
		}
		if len(gone) > 0 {
			if err := e.store.DeleteFor(ctx, scope, gone); err != nil {
				return err
			}
		}
	}

	paths := make([]string, 0, len(onDisk))
	for p := range onDisk {
		paths = append(paths, p)
	}
	storedMtimes, err := e.store.MtimesFor(ctx, scope, paths)
	if err != nil {
		return err
	}

	var toReindex []scanner.Entry
	for p, en := range onDisk {
		stored, already := storedMtimes[p]
		if opts.ReindexAll || !already || en.MtimeMS > stored {
			toReindex = append(toReindex, en)
		}
	}

	if len(toReindex) == 0 {
		emit(model.ProgressEvent{Type: model.ProgressComplete, Message: "nothing to index"})
		return nil
	}

	reindexPaths := make([]string, len(toReindex))
	for i, en := range toReindex {
		reindexPaths[i] = en.Path
	}
	if err := e.store.DeleteFor(ctx, scope, reindexPaths); err != nil {
		return err
	}

	var chunks []*model.Chunk
	var skipped []model.ChunkRow
	var failedFiles []string
	for _, en := range toReindex {
		raw, readErr := os.ReadFile(e.abs(en.Path))
		if readErr != nil {
			failedFiles = append(failedFiles, en.Path)
			continue
		}
		fileChunks := e.chunker.Chunks(en.Path, raw, en.MtimeMS)
		if len(fileChunks) == 0 {
			skipped = append(skipped, model.SkippedMarker(scope.WorkspaceID, en.Path, en.MtimeMS, scope.Model, e.embedder.Dimension(), "no indexable content", len(raw)))
			continue
		}
		chunks = append(chunks, fileChunks...)
	}
	if len(failedFiles) > 0 {
		emit(model.ProgressEvent{Type: model.ProgressWarning, Message: "some files could not be read"})
	}

	if cancel.IsCancelled() {
		emit(model.ProgressEvent{Type: model.ProgressCancelled, IsCancelled: true, TotalChunks: len(chunks)})
		return nil
	}

	if len(failedFiles) > 0 && len(failedFiles) == len(toReindex) {
		emit(model.ProgressEvent{Type: model.ProgressError, Message: "all files in this run failed to read"})
		return apperr.ErrIndexing
	}

	if len(skipped) > 0 {
		if err := e.store.Insert(ctx, skipped); err != nil {
			return err
		}
	}

	cancelled, completed, total, failedChunks, err := e.embedAndInsert(ctx, scope, chunks, emit, cancel, logger)
	if err != nil {
		return err
	}
	if cancelled {
		emit(model.ProgressEvent{Type: model.ProgressCancelled, IsCancelled: true, CompletedChunks: completed, TotalChunks: total})
		return nil
	}
	if len(failedChunks) > 0 {
		emit(model.ProgressEvent{Type: model.ProgressWarning, Message: "some chunks failed to embed"})
		return apperr.ErrIndexing
	}

	emit(model.ProgressEvent{Type: model.ProgressComplete, CompletedFiles: len(toReindex), TotalFiles: len(toReindex), Percentage: 100})
	return nil
}

func (e *Engine) abs(relPath string) string {
	return filepath.Join(e.scanner.Root(), relPath)
}

// embedAndInsert implements the batch embedding loop of spec.md §4.5.1.
// It reports two progress paths: a throttled per-chunk-completion update
// (at most one per 500ms, emitted as chunks finish within a batch) and an
// unconditional update at the end of every batch, per spec.md §4.5.2.
func (e *Engine) embedAndInsert(ctx context.Context, scope vectorstore.Scope, chunks []*model.Chunk, emit func(model.ProgressEvent), cancel *CancelToken, logger *zap.Logger) (cancelled bool, completed, total int, failedChunks []string, err error) {
	total = len(chunks)
	throttle := progress.NewThrottle(500 * time.Millisecond)
	policy := defaultRetryPolicy()

	for start := 0; start < total; start += batchSize {
		if cancel.IsCancelled() {
			return true, completed, total, failedChunks, nil
		}
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		rows := make([]model.ChunkRow, len(batch))
		ok := make([]bool, len(batch))
		var withinBatch atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		for i, ch := range batch {
			i, ch := i, ch
			g.Go(func() error {
				if cancel.IsCancelled() {
					return nil
				}
				vec, embErr := e.embedWithRetry(gctx, ch.Content, policy, emit)
				if embErr != nil {
					logger.Warn("embedding failed", zap.String("path", ch.Path), zap.Error(embErr))
					return nil
				}
				rows[i] = model.ChunkRow{
					WorkspaceID: scope.WorkspaceID,
					Path:        ch.Path,
					Mtime:       ch.Mtime,
					Content:     ch.Content,
					Model:       scope.Model,
					Dimension:   e.embedder.Dimension(),
					Embedding:   vec,
					Metadata:    model.ChunkMetadata{StartLine: ch.StartLine, EndLine: ch.EndLine},
				}
				ok[i] = true
				n := withinBatch.Add(1)
				if throttle.Allow(time.Now()) {
					soFar := completed + int(n)
					emit(model.ProgressEvent{
						Type:            model.ProgressUpdate,
						CompletedChunks: soFar,
						TotalChunks:     total,
						Percentage:      model.Percentage(soFar, total),
					})
				}
				return nil
			})
		}
		_ = g.Wait()

		if cancel.IsCancelled() {
			return true, completed, total, failedChunks, nil
		}

		var toInsert []model.ChunkRow
		for i, succeeded := range ok {
			if succeeded {
				toInsert = append(toInsert, rows[i])
			} else {
				failedChunks = append(failedChunks, batch[i].Path)
			}
		}
		if len(toInsert) > 0 {
			if insErr := e.store.Insert(ctx, toInsert); insErr != nil {
				return false, completed, total, failedChunks, insErr
			}
		}
		completed += len(batch)

		emit(model.ProgressEvent{
			Type:            model.ProgressUpdate,
			CompletedChunks: completed,
			TotalChunks:     total,
			Percentage:      model.Percentage(completed, total),
		})

		if cancel.IsCancelled() {
			return true, completed, total, failedChunks, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false, completed, total, failedChunks, nil
}

func (e *Engine) embedWithRetry(ctx context.Context, text string, policy retryPolicy, emit func(model.ProgressEvent)) ([]float32, error) {
	var vec []float32
	err := policy.run(ctx, func() error {
		v, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	}, func(attempt int) {
		emit(model.ProgressEvent{Type: model.ProgressUpdate, WaitingForRateLimit: true, Message: "retrying embedding call"})
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}
