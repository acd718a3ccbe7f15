package logger

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SmartWriter buffers log lines and flushes them when the buffer fills, on
// every flush interval, on error or fatal lines, and on Sync or Close.
type SmartWriter struct {
	bufWriter     *bufio.Writer
	mu            sync.Mutex
	flushInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

var (
	jsonErrorLevel = []byte(`"level":"error"`)
	jsonFatalLevel = []byte(`"level":"fatal"`)
	jsonPanicLevel = []byte(`"level":"panic"`)
)

// NewSmartWriter creates a new SmartWriter
func NewSmartWriter(w io.Writer, flushInterval time.Duration) *SmartWriter {
	sw := &SmartWriter{
		bufWriter:     bufio.NewWriterSize(w, 256*1024),
		flushInterval: flushInterval,
		stopChan:      make(chan struct{}),
	}

	sw.wg.Add(1)
	go sw.runFlusher()

	return sw
}

// Write implements io.Writer. Lines produced by the console writer carry no
// JSON level, so they are only flushed by the timer or an explicit Sync.
func (sw *SmartWriter) Write(p []byte) (int, error) {
	urgent := bytes.Contains(p, jsonErrorLevel) ||
		bytes.Contains(p, jsonFatalLevel) ||
		bytes.Contains(p, jsonPanicLevel)
	return sw.write(p, urgent)
}

// WriteLevel implements zerolog.LevelWriter
func (sw *SmartWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	return sw.write(p, level >= zerolog.ErrorLevel && level <= zerolog.PanicLevel)
}

func (sw *SmartWriter) write(p []byte, flush bool) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	n, err := sw.bufWriter.Write(p)
	if err == nil && flush {
		err = sw.bufWriter.Flush()
	}
	return n, err
}

// Sync flushes the buffer
func (sw *SmartWriter) Sync() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.bufWriter.Flush()
}

// Close stops the background flusher and flushes. Safe to call twice.
func (sw *SmartWriter) Close() error {
	sw.stopOnce.Do(func() { close(sw.stopChan) })
	sw.wg.Wait()
	return sw.Sync()
}

func (sw *SmartWriter) runFlusher() {
	defer sw.wg.Done()
	ticker := time.NewTicker(sw.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = sw.Sync()
		case <-sw.stopChan:
			return
		}
	}
}
