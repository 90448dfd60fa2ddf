package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/Ning0612/Stowage/internal/adapter"
	"github.com/Ning0612/Stowage/internal/core/diff"
	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
	"github.com/Ning0612/Stowage/internal/progress"
	"github.com/Ning0612/Stowage/internal/security"
)

// DefaultWorkers is the number of concurrent object copies per run
const DefaultWorkers = 4

// Resolver looks up connections and their adapters by name.
// *registry.Registry implements it.
type Resolver interface {
	Connection(name string) (domain.Connection, error)
	Get(ctx context.Context, name string) (adapter.Adapter, error)
}

// TransferRequest copies every object under SourcePrefix of Source to the
// same relative path under TargetPrefix of Target.
type TransferRequest struct {
	Source       string
	SourcePrefix string
	Target       string
	TargetPrefix string

	// Public uploads every copied object with public visibility
	Public bool

	// SkipExisting leaves out objects the target already holds at the same
	// relative path with the same size
	SkipExisting bool
}

// TransferResult summarizes a finished run
type TransferResult struct {
	RunID     string
	Files     int
	Bytes     int64
	Skipped   int // folder entries and entries outside the source prefix
	Unchanged int // objects left out by SkipExisting
}

// TransferService copies objects between named connections
type TransferService struct {
	resolver Resolver
	workers  int
	reporter progress.Reporter
}

// TransferOption configures a TransferService
type TransferOption func(*TransferService)

// WithWorkers sets the worker pool size. Values below 1 mean 1.
func WithWorkers(n int) TransferOption {
	return func(s *TransferService) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithReporter sets the progress reporter
func WithReporter(r progress.Reporter) TransferOption {
	return func(s *TransferService) {
		if r != nil {
			s.reporter = r
		}
	}
}

// NewTransferService creates a transfer service
func NewTransferService(resolver Resolver, opts ...TransferOption) *TransferService {
	s := &TransferService{
		resolver: resolver,
		workers:  DefaultWorkers,
		reporter: progress.NullReporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// copyPlan is the work derived from the source and target listings
type copyPlan struct {
	items     []copyItem
	skipped   int
	unchanged int
	bytes     int64
}

// copyItem is one object scheduled for copy
type copyItem struct {
	sourceKey string
	targetKey string
	size      int64
}

// Copy runs a transfer. The first failed object cancels the remaining work
// and its error is returned together with the partial result.
func (s *TransferService) Copy(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	result := &TransferResult{RunID: uuid.NewString()}
	log := logger.With("run_id", result.RunID, "source", req.Source, "target", req.Target)

	srcConn, err := s.resolver.Connection(req.Source)
	if err != nil {
		return result, fmt.Errorf("source: %w", err)
	}
	dstConn, err := s.resolver.Connection(req.Target)
	if err != nil {
		return result, fmt.Errorf("target: %w", err)
	}

	sourcePrefix, err := security.SanitizeKey(req.SourcePrefix)
	if err != nil {
		return result, fmt.Errorf("source prefix: %w", err)
	}
	targetPrefix, err := security.SanitizeKey(req.TargetPrefix)
	if err != nil {
		return result, fmt.Errorf("target prefix: %w", err)
	}

	src, err := s.resolver.Get(ctx, req.Source)
	if err != nil {
		return result, fmt.Errorf("source: %w", err)
	}
	dst, err := s.resolver.Get(ctx, req.Target)
	if err != nil {
		return result, fmt.Errorf("target: %w", err)
	}

	entries, err := src.ListFiles(ctx, sourcePrefix)
	if err != nil {
		log.Error("Failed to list source", "prefix", sourcePrefix, "error", err)
		return result, err
	}

	var existing map[string]domain.FileMetadata
	if req.SkipExisting {
		targetEntries, err := dst.ListFiles(ctx, targetPrefix)
		if err != nil {
			log.Error("Failed to list target", "prefix", targetPrefix, "error", err)
			return result, err
		}
		existing = diff.Index(targetEntries, dstConn.Type.ListsFullPaths(), targetPrefix)
	}

	plan := planCopy(entries, srcConn.Type, sourcePrefix, targetPrefix, existing)
	items := plan.items
	result.Skipped = plan.skipped
	result.Unchanged = plan.unchanged

	workers := effectiveWorkers(s.workers, dstConn.Type)
	log.Info("Transfer started",
		"source_prefix", sourcePrefix,
		"target_prefix", targetPrefix,
		"files", len(items),
		"bytes", plan.bytes,
		"unchanged", plan.unchanged,
		"workers", workers,
	)
	s.reporter.SetTotal(len(items), plan.bytes)

	if len(items) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return result, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		files    atomic.Int64
		moved    atomic.Int64
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, item := range items {
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			// A panicking copy fails the run like any other error
			defer func() {
				if p := recover(); p != nil {
					err := fmt.Errorf("panic: %v", p)
					s.reporter.Error(item.targetKey, err)
					log.Error("Transfer worker panicked", "key", item.sourceKey, "panic", p)
					fail(fmt.Errorf("copy %s: %w", item.sourceKey, err))
				}
			}()
			if runCtx.Err() != nil {
				return
			}

			n, err := s.copyOne(runCtx, src, dst, item, req.Public)
			if err != nil {
				s.reporter.Error(item.targetKey, err)
				log.Warn("Object copy failed", "key", item.sourceKey, "error", err)
				fail(fmt.Errorf("copy %s: %w", item.sourceKey, err))
				return
			}

			files.Add(1)
			moved.Add(n)
			s.reporter.Complete(item.targetKey)
			log.Debug("Object copied", "key", item.sourceKey, "target_key", item.targetKey, "bytes", n)
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("failed to schedule %s: %w", item.sourceKey, submitErr))
		}
	}
	wg.Wait()

	result.Files = int(files.Load())
	result.Bytes = moved.Load()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		log.Error("Transfer failed", "files", result.Files, "bytes", result.Bytes, "error", firstErr)
		return result, firstErr
	}

	log.Info("Transfer completed", "files", result.Files, "bytes", result.Bytes, "skipped", result.Skipped, "unchanged", result.Unchanged)
	return result, nil
}

// copyOne streams one object from src and uploads it to dst
func (s *TransferService) copyOne(ctx context.Context, src, dst adapter.Adapter, item copyItem, public bool) (int64, error) {
	s.reporter.Start(item.targetKey, item.size)

	stream, err := src.GetStream(ctx, item.sourceKey)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	data, err := io.ReadAll(progress.NewProgressReader(stream, s.reporter, item.targetKey))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", item.sourceKey, err)
	}

	contentType := mime.TypeByExtension(path.Ext(item.targetKey))
	if _, err := dst.UploadFile(ctx, item.targetKey, data, contentType, public); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// planCopy maps a source listing onto copy items. Folder entries are
// skipped; the target key is the entry path relative to the source prefix
// joined under the target prefix. Objects matching an entry of existing,
// indexed by the same relative path, are left out.
func planCopy(entries []domain.FileMetadata, srcType domain.BackendType, sourcePrefix, targetPrefix string, existing map[string]domain.FileMetadata) copyPlan {
	var plan copyPlan
	for _, e := range entries {
		if e.IsFolder() {
			plan.skipped++
			continue
		}

		rel, ok := diff.RelPath(e, srcType.ListsFullPaths(), sourcePrefix)
		if !ok {
			plan.skipped++
			continue
		}

		if tgt, found := existing[rel]; found && diff.Compare(&e, &tgt) == diff.Identical {
			plan.unchanged++
			continue
		}

		sourceKey := e.Key
		if srcType.ListsFullPaths() {
			// Full-path listings are addressed by path, not by native ID
			sourceKey = e.Name
		}

		plan.items = append(plan.items, copyItem{
			sourceKey: sourceKey,
			targetKey: path.Join(targetPrefix, rel),
			size:      e.Size,
		})
		plan.bytes += e.Size
	}
	return plan
}

// effectiveWorkers limits runs into full-path backends to one worker.
// Concurrent uploads there race on folder materialization and can create
// duplicate folders with the same path.
func effectiveWorkers(workers int, target domain.BackendType) int {
	if workers < 1 {
		workers = 1
	}
	if target.ListsFullPaths() {
		return 1
	}
	return workers
}
