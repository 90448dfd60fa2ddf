package progress

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock advances by step on every call
func fakeClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

// TestCallbackReporter_SetTotal tests setting total files and bytes
func TestCallbackReporter_SetTotal(t *testing.T) {
	var updates []Update
	var mu sync.Mutex

	reporter := NewCallbackReporter(func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	reporter.SetTotal(10, 1024*1024)
	reporter.Start("test.txt", 100)

	mu.Lock()
	defer mu.Unlock()

	if len(updates) == 0 {
		t.Fatal("expected updates")
	}

	update := updates[0]
	if update.FilesTotal != 10 {
		t.Errorf("expected FilesTotal 10, got %d", update.FilesTotal)
	}
	if update.BytesTotal != 1024*1024 {
		t.Errorf("expected BytesTotal 1048576, got %d", update.BytesTotal)
	}
}

// TestCallbackReporter_Start tests starting an object transfer
func TestCallbackReporter_Start(t *testing.T) {
	var update Update
	reporter := NewCallbackReporter(func(u Update) {
		update = u
	})

	reporter.Start("docs/test-file.txt", 500)

	if update.Type != UpdateStart {
		t.Errorf("expected UpdateStart, got %v", update.Type)
	}
	if update.Key != "docs/test-file.txt" {
		t.Errorf("expected key 'docs/test-file.txt', got '%s'", update.Key)
	}
	if update.CurrentTotal != 500 {
		t.Errorf("expected total 500, got %d", update.CurrentTotal)
	}
}

// TestCallbackReporter_Update tests progress updates and speed
func TestCallbackReporter_Update(t *testing.T) {
	var update Update
	reporter := NewCallbackReporter(func(u Update) {
		update = u
	})
	reporter.now = fakeClock(100 * time.Millisecond)

	reporter.Start("test.txt", 100000)
	reporter.Update("test.txt", 50000)

	if update.Type != UpdateProgress {
		t.Errorf("expected UpdateProgress, got %v", update.Type)
	}
	if update.CurrentBytes != 50000 || update.CurrentTotal != 100000 {
		t.Errorf("got %d/%d bytes", update.CurrentBytes, update.CurrentTotal)
	}
	// 50000 bytes over one 100ms clock step
	if math.Abs(update.BytesPerSecond-500000) > 1 {
		t.Errorf("expected 500000 B/s, got %.0f", update.BytesPerSecond)
	}
}

// TestCallbackReporter_Interleaved tests that concurrent keys are tracked apart
func TestCallbackReporter_Interleaved(t *testing.T) {
	var updates []Update
	reporter := NewCallbackReporter(func(u Update) {
		updates = append(updates, u)
	})

	reporter.SetTotal(2, 300)
	reporter.Start("a", 100)
	reporter.Start("b", 200)
	reporter.Update("a", 40)
	reporter.Update("b", 150)
	reporter.Complete("b")
	reporter.Complete("a")

	last := updates[len(updates)-1]
	if last.Key != "a" || last.CurrentBytes != 100 {
		t.Errorf("last update = %+v, want key a with 100 bytes", last)
	}
	if last.FilesCompleted != 2 || last.BytesCompleted != 300 {
		t.Errorf("expected 2 files / 300 bytes completed, got %d / %d", last.FilesCompleted, last.BytesCompleted)
	}

	bUpdate := updates[3]
	if bUpdate.Key != "b" || bUpdate.CurrentTotal != 200 {
		t.Errorf("update for b = %+v", bUpdate)
	}
}

// TestCallbackReporter_Complete tests completion callback
func TestCallbackReporter_Complete(t *testing.T) {
	var updates []Update
	var mu sync.Mutex

	reporter := NewCallbackReporter(func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	reporter.SetTotal(3, 3000)
	reporter.Start("file1.txt", 1000)
	reporter.Complete("file1.txt")

	mu.Lock()
	defer mu.Unlock()

	var completeUpdate *Update
	for i := range updates {
		if updates[i].Type == UpdateComplete {
			completeUpdate = &updates[i]
			break
		}
	}

	if completeUpdate == nil {
		t.Fatal("expected UpdateComplete")
	}
	if completeUpdate.FilesCompleted != 1 {
		t.Errorf("expected 1 file completed, got %d", completeUpdate.FilesCompleted)
	}
	if completeUpdate.BytesCompleted != 1000 {
		t.Errorf("expected 1000 bytes completed, got %d", completeUpdate.BytesCompleted)
	}
}

// TestCallbackReporter_CompleteUnknownSize counts streamed bytes when the
// size was not known at Start
func TestCallbackReporter_CompleteUnknownSize(t *testing.T) {
	var update Update
	reporter := NewCallbackReporter(func(u Update) { update = u })

	reporter.Start("stream.bin", 0)
	reporter.Update("stream.bin", 4096)
	reporter.Complete("stream.bin")

	if update.BytesCompleted != 4096 {
		t.Errorf("expected 4096 bytes completed, got %d", update.BytesCompleted)
	}
}

// TestCallbackReporter_Error tests error reporting
func TestCallbackReporter_Error(t *testing.T) {
	var update Update
	reporter := NewCallbackReporter(func(u Update) {
		update = u
	})

	reporter.Start("failing.txt", 100)
	testErr := io.ErrUnexpectedEOF
	reporter.Error("failing.txt", testErr)

	if update.Type != UpdateError {
		t.Errorf("expected UpdateError, got %v", update.Type)
	}
	if update.Error != testErr {
		t.Errorf("expected error %v, got %v", testErr, update.Error)
	}
	if update.FilesFailed != 1 || update.FilesCompleted != 0 {
		t.Errorf("expected 1 failed / 0 completed, got %d / %d", update.FilesFailed, update.FilesCompleted)
	}
}

// TestProgressReader tests the ProgressReader wrapper
func TestProgressReader(t *testing.T) {
	data := []byte("Hello, World!")
	reader := bytes.NewReader(data)

	var bytesRead int64
	var key string
	reporter := NewCallbackReporter(func(u Update) {
		if u.Type == UpdateProgress {
			bytesRead = u.CurrentBytes
			key = u.Key
		}
	})

	reporter.Start("test.txt", int64(len(data)))
	pr := NewProgressReader(reader, reporter, "test.txt")

	got, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if len(got) != len(data) {
		t.Errorf("expected to read %d bytes, got %d", len(data), len(got))
	}
	if bytesRead != int64(len(data)) || key != "test.txt" {
		t.Errorf("expected progress update of %d bytes for test.txt, got %d for %q", len(data), bytesRead, key)
	}
}

// TestProgressWriter tests the ProgressWriter wrapper
func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("Test data for writer")

	var bytesWritten int64
	reporter := NewCallbackReporter(func(u Update) {
		if u.Type == UpdateProgress {
			bytesWritten = u.CurrentBytes
		}
	})

	reporter.Start("test.txt", int64(len(data)))
	pw := NewProgressWriter(&buf, reporter, "test.txt")

	n, err := pw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != len(data) {
		t.Errorf("expected to write %d bytes, got %d", len(data), n)
	}
	if bytesWritten != int64(n) {
		t.Errorf("expected progress update of %d bytes, got %d", n, bytesWritten)
	}
	if buf.String() != string(data) {
		t.Error("written data does not match")
	}
}

// TestCallbackReporter_Concurrent tests concurrent progress updates
func TestCallbackReporter_Concurrent(t *testing.T) {
	var mu sync.Mutex
	var last Update

	reporter := NewCallbackReporter(func(u Update) {
		mu.Lock()
		if u.FilesCompleted > last.FilesCompleted {
			last = u
		}
		mu.Unlock()
	})

	reporter.SetTotal(5, 500)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			key := fmt.Sprintf("file-%d.txt", idx)
			reporter.Start(key, 100)
			for j := 1; j <= 10; j++ {
				reporter.Update(key, int64(j*10))
			}
			reporter.Complete(key)
		}(i)
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last.FilesCompleted != 5 || last.BytesCompleted != 500 {
		t.Errorf("expected 5 files / 500 bytes, got %d / %d", last.FilesCompleted, last.BytesCompleted)
	}
}

// TestSecurity_CallbackDeadlock tests that callbacks don't cause deadlock
func TestSecurity_CallbackDeadlock(t *testing.T) {
	done := make(chan bool, 1)

	var reporter *CallbackReporter
	reporter = NewCallbackReporter(func(u Update) {
		// Re-entrance would deadlock if the reporter held its lock here
		switch u.Type {
		case UpdateStart:
			reporter.Update(u.Key, 10)
		case UpdateProgress:
			reporter.SetTotal(1, 100)
		}
	})

	go func() {
		reporter.SetTotal(1, 100)
		reporter.Start("test.txt", 100)
		reporter.Update("test.txt", 50)
		reporter.Complete("test.txt")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deadlock detected - callback was called while holding lock")
	}
}

// TestTextCallback tests the line renderer
func TestTextCallback(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewCallbackReporter(TextCallback(&buf))

	reporter.SetTotal(2, 2048)
	reporter.Start("photos/a.jpg", 1536)
	reporter.Complete("photos/a.jpg")
	reporter.Start("photos/b.jpg", 512)
	reporter.Error("photos/b.jpg", io.ErrUnexpectedEOF)

	out := buf.String()
	for _, want := range []string{
		"done   photos/a.jpg (1.5 KB)",
		" 50.0% 1/2",
		"failed photos/b.jpg: unexpected EOF",
		"100.0% 2/2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestSpeedCallback tests the single-line renderer
func TestSpeedCallback(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewCallbackReporter(SpeedCallback(&buf))

	reporter.Start("video.mp4", 0)
	reporter.Update("video.mp4", 2048)
	reporter.Complete("video.mp4")

	out := buf.String()
	if !strings.Contains(out, "\rvideo.mp4 2.0 KB") || !strings.HasSuffix(out, "done\n") {
		t.Errorf("unexpected output %q", out)
	}
}

// TestFormatBytes tests byte formatting
func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{1536 * 1024, "1.5 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
		{1536 * 1024 * 1024, "1.5 GB"},
	}

	for _, tt := range tests {
		got := FormatBytes(tt.bytes)
		if got != tt.expected {
			t.Errorf("FormatBytes(%d) = %s, want %s", tt.bytes, got, tt.expected)
		}
	}
}

// TestFormatSpeed tests speed formatting
func TestFormatSpeed(t *testing.T) {
	speed := 1024.0 * 1024.0 // 1 MB/s
	result := FormatSpeed(speed)
	if result != "1.0 MB/s" {
		t.Errorf("FormatSpeed(1048576) = %s, want '1.0 MB/s'", result)
	}
}

// TestFormatProgress tests progress bar generation
func TestFormatProgress(t *testing.T) {
	tests := []struct {
		current  int64
		total    int64
		width    int
		contains string
	}{
		{0, 100, 20, "[>"},
		{50, 100, 20, "50.0%"},
		{100, 100, 20, "100.0%"},
		{0, 0, 20, ""},
	}

	for _, tt := range tests {
		got := FormatProgress(tt.current, tt.total, tt.width)
		if tt.contains != "" && !strings.Contains(got, tt.contains) {
			t.Errorf("FormatProgress(%d, %d, %d) = %s, should contain '%s'",
				tt.current, tt.total, tt.width, got, tt.contains)
		}
		if tt.total == 0 && got != "" {
			t.Errorf("FormatProgress with zero total = %q, want empty", got)
		}
	}
}

// TestNullReporter tests that NullReporter doesn't panic
func TestNullReporter(t *testing.T) {
	var nr Reporter = NullReporter{}

	nr.SetTotal(10, 1000)
	nr.Start("test.txt", 100)
	nr.Update("test.txt", 50)
	nr.Complete("test.txt")
	nr.Error("test.txt", io.EOF)
}
