// Package tailer follows the game's log file, delivering chunks of complete
// lines in file order. The game appends continuously while running and
// truncates the file on restart; truncation is treated as a rotation and the
// tail restarts from the top.
package tailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/logging"
)

// defaultPollInterval backs up fsnotify: some platforms coalesce or drop
// write events on files other processes hold open.
const defaultPollInterval = 2 * time.Second

// Tailer follows one log file. A partial final line is held back until its
// terminating newline arrives, so consumers only ever see complete lines.
type Tailer struct {
	path     string
	onChunk  func(string)
	interval time.Duration

	file    *os.File
	offset  int64
	partial strings.Builder

	log zerolog.Logger
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithPollInterval overrides the fallback polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tailer) { t.interval = d }
}

// New creates a tailer for path. onChunk receives blocks of complete lines,
// called from the tailer's goroutine in file order.
func New(path string, onChunk func(string), opts ...Option) *Tailer {
	t := &Tailer{
		path:     path,
		onChunk:  onChunk,
		interval: defaultPollInterval,
		log:      logging.Component("tailer"),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Run tails the file until the context is cancelled. The existing content is
// delivered first, then appended data as it arrives. A missing file is
// waited for rather than an error: the game may not be running yet.
func (t *Tailer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	defer t.closeFile()

	// Watch the directory, not the file: the file may not exist yet, and
	// rotation replaces the inode.
	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	t.drain()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !sameFile(ev.Name, t.path) {
				continue
			}
			if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				t.closeFile()
				continue
			}
			t.drain()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Warn().Err(err).Msg("watcher error")

		case <-ticker.C:
			t.drain()
		}
	}
}

// drain reads everything new in the file and emits complete lines. Handles
// the file appearing, growing and being truncated.
func (t *Tailer) drain() {
	if t.file == nil && !t.open() {
		return
	}

	info, err := t.file.Stat()
	if err != nil {
		t.log.Warn().Err(err).Msg("stat failed, reopening")
		t.closeFile()
		return
	}
	if info.Size() < t.offset {
		// Shrunk under us: the game restarted and truncated its log.
		t.log.Info().Str("path", t.path).Msg("log truncated, restarting tail")
		t.closeFile()
		t.partial.Reset()
		if !t.open() {
			return
		}
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := t.file.ReadAt(buf, t.offset)
		if n > 0 {
			t.offset += int64(n)
			t.feed(string(buf[:n]))
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			t.log.Warn().Err(err).Msg("read failed, reopening")
			t.closeFile()
			return
		}
	}
}

// feed appends data to the holdback buffer and emits every complete line.
func (t *Tailer) feed(data string) {
	t.partial.WriteString(data)
	whole := t.partial.String()
	idx := strings.LastIndexByte(whole, '\n')
	if idx < 0 {
		return
	}
	chunk := whole[:idx+1]
	rest := whole[idx+1:]
	t.partial.Reset()
	t.partial.WriteString(rest)
	if t.onChunk != nil {
		t.onChunk(chunk)
	}
}

func (t *Tailer) open() bool {
	f, err := os.Open(t.path)
	if err != nil {
		return false
	}
	t.file = f
	t.offset = 0
	return true
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	t.offset = 0
}

func sameFile(a, b string) bool {
	ra, err1 := filepath.Abs(a)
	rb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return strings.EqualFold(ra, rb)
}
