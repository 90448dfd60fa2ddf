package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Reporter receives progress for concurrent object transfers.
// Every per-object call names the key it refers to.
type Reporter interface {
	// SetTotal sets the number of objects and bytes the run will move
	SetTotal(totalFiles int, totalBytes int64)
	// Start begins tracking the transfer of key
	Start(key string, totalBytes int64)
	// Update reports the bytes moved so far for key
	Update(key string, bytesTransferred int64)
	// Complete marks the transfer of key as done
	Complete(key string)
	// Error reports a failed transfer of key
	Error(key string, err error)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type           UpdateType
	Key            string
	CurrentBytes   int64
	CurrentTotal   int64
	FilesCompleted int
	FilesFailed    int
	FilesTotal     int
	BytesCompleted int64
	BytesTotal     int64
	BytesPerSecond float64
	Error          error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateProgress
	UpdateComplete
	UpdateError
)

// String returns the string representation of the update type
func (t UpdateType) String() string {
	switch t {
	case UpdateStart:
		return "start"
	case UpdateProgress:
		return "progress"
	case UpdateComplete:
		return "complete"
	case UpdateError:
		return "error"
	default:
		return "unknown"
	}
}

type transfer struct {
	total   int64
	current int64
	started time.Time
}

// CallbackReporter implements Reporter with a callback function.
// It is safe for concurrent use; the callback runs outside the lock and
// may call back into the reporter.
type CallbackReporter struct {
	callback       Callback
	mu             sync.Mutex
	active         map[string]*transfer
	filesTotal     int
	bytesTotal     int64
	filesCompleted int
	filesFailed    int
	bytesCompleted int64
	now            func() time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
		active:   make(map[string]*transfer),
		now:      time.Now,
	}
}

// SetTotal sets the total number of objects and bytes
func (r *CallbackReporter) SetTotal(totalFiles int, totalBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
}

// Start begins tracking the transfer of key
func (r *CallbackReporter) Start(key string, totalBytes int64) {
	r.mu.Lock()
	r.active[key] = &transfer{total: totalBytes, started: r.now()}
	update := r.snapshot(UpdateStart, key)
	update.CurrentTotal = totalBytes
	r.mu.Unlock()

	r.emit(update)
}

// Update reports the bytes moved so far for key
func (r *CallbackReporter) Update(key string, bytesTransferred int64) {
	r.mu.Lock()
	t, ok := r.active[key]
	if !ok {
		// Updates without Start are tracked from now
		t = &transfer{started: r.now()}
		r.active[key] = t
	}
	t.current = bytesTransferred

	update := r.snapshot(UpdateProgress, key)
	update.CurrentBytes = bytesTransferred
	update.CurrentTotal = t.total
	update.BytesCompleted += bytesTransferred
	if elapsed := r.now().Sub(t.started).Seconds(); elapsed > 0 {
		update.BytesPerSecond = float64(bytesTransferred) / elapsed
	}
	r.mu.Unlock()

	r.emit(update)
}

// Complete marks the transfer of key as done
func (r *CallbackReporter) Complete(key string) {
	r.mu.Lock()
	var size int64
	if t, ok := r.active[key]; ok {
		size = t.total
		if t.current > size {
			size = t.current
		}
		delete(r.active, key)
	}
	r.filesCompleted++
	r.bytesCompleted += size

	update := r.snapshot(UpdateComplete, key)
	update.CurrentBytes = size
	update.CurrentTotal = size
	r.mu.Unlock()

	r.emit(update)
}

// Error reports a failed transfer of key
func (r *CallbackReporter) Error(key string, err error) {
	r.mu.Lock()
	delete(r.active, key)
	r.filesFailed++
	update := r.snapshot(UpdateError, key)
	update.Error = err
	r.mu.Unlock()

	r.emit(update)
}

// snapshot captures the run totals; caller holds the lock
func (r *CallbackReporter) snapshot(typ UpdateType, key string) Update {
	return Update{
		Type:           typ,
		Key:            key,
		FilesCompleted: r.filesCompleted,
		FilesFailed:    r.filesFailed,
		FilesTotal:     r.filesTotal,
		BytesCompleted: r.bytesCompleted,
		BytesTotal:     r.bytesTotal,
	}
}

// emit calls the callback outside the lock to prevent deadlock
func (r *CallbackReporter) emit(update Update) {
	if r.callback != nil {
		r.callback(update)
	}
}

// ProgressReader wraps an io.Reader to track read progress of one key
type ProgressReader struct {
	reader      io.Reader
	reporter    Reporter
	key         string
	transferred int64
}

// NewProgressReader creates a new progress-tracking reader
func NewProgressReader(r io.Reader, reporter Reporter, key string) *ProgressReader {
	return &ProgressReader{
		reader:   r,
		reporter: reporter,
		key:      key,
	}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.reporter != nil {
			pr.reporter.Update(pr.key, pr.transferred)
		}
	}
	return n, err
}

// ProgressWriter wraps an io.Writer to track write progress of one key
type ProgressWriter struct {
	writer      io.Writer
	reporter    Reporter
	key         string
	transferred int64
}

// NewProgressWriter creates a new progress-tracking writer
func NewProgressWriter(w io.Writer, reporter Reporter, key string) *ProgressWriter {
	return &ProgressWriter{
		writer:   w,
		reporter: reporter,
		key:      key,
	}
}

// Write implements io.Writer
func (pw *ProgressWriter) Write(p []byte) (n int, err error) {
	n, err = pw.writer.Write(p)
	if n > 0 {
		pw.transferred += int64(n)
		if pw.reporter != nil {
			pw.reporter.Update(pw.key, pw.transferred)
		}
	}
	return n, err
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int, totalBytes int64) {}
func (NullReporter) Start(key string, totalBytes int64)        {}
func (NullReporter) Update(key string, bytesTransferred int64) {}
func (NullReporter) Complete(key string)                       {}
func (NullReporter) Error(key string, err error)               {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSpeed formats bytes per second into human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// FormatProgress returns a progress bar string
func FormatProgress(current, total int64, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}

	bar := make([]byte, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar[i] = '='
		} else if i == filled {
			bar[i] = '>'
		} else {
			bar[i] = ' '
		}
	}

	return fmt.Sprintf("[%s] %5.1f%%", string(bar), percent*100)
}
