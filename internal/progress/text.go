package progress

import (
	"fmt"
	"io"
	"sync"
)

// TextCallback returns a Callback printing one line per finished object
// and an overall bar after each, e.g.
//
//	done   photos/a.jpg (1.5 KB)
//	[=========>          ]  50.0% 2/4
func TextCallback(w io.Writer) Callback {
	var mu sync.Mutex
	return func(u Update) {
		var line string
		switch u.Type {
		case UpdateComplete:
			line = fmt.Sprintf("done   %s (%s)\n", u.Key, FormatBytes(u.CurrentBytes))
		case UpdateError:
			line = fmt.Sprintf("failed %s: %v\n", u.Key, u.Error)
		default:
			return
		}
		if bar := FormatProgress(int64(u.FilesCompleted+u.FilesFailed), int64(u.FilesTotal), 20); bar != "" {
			line += fmt.Sprintf("%s %d/%d\n", bar, u.FilesCompleted+u.FilesFailed, u.FilesTotal)
		}

		mu.Lock()
		defer mu.Unlock()
		io.WriteString(w, line)
	}
}

// SpeedCallback returns a Callback that rewrites a single status line with
// the bytes moved and the current rate. Used for single-object downloads.
func SpeedCallback(w io.Writer) Callback {
	return func(u Update) {
		switch u.Type {
		case UpdateProgress:
			fmt.Fprintf(w, "\r%s %s  %s", u.Key, FormatBytes(u.CurrentBytes), FormatSpeed(u.BytesPerSecond))
		case UpdateComplete:
			fmt.Fprintf(w, "\r%s %s  done\n", u.Key, FormatBytes(u.CurrentBytes))
		}
	}
}
