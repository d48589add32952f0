// Package sollog provides an append-only history log of improving solutions.
//
// Every strictly improving incumbent can be appended with its objective and
// variable vector; the log can later be replayed, e.g. to warm-start a
// subsequent solve or to audit solver progress. Appending is a pass-through
// side effect of the solver core, which owns no other persisted state.
package sollog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// magic identifies a solution log stream.
var magic = [4]byte{'m', 'i', 'p', 'S'}

const version = 1

var (
	// ErrCorrupt is returned when the log stream fails validation.
	ErrCorrupt = errors.New("sollog: corrupt log")
	// ErrClosed is returned when appending to a closed log.
	ErrClosed = errors.New("sollog: log closed")
)

// Options configures a Log.
type Options struct {
	// Compress enables zstd compression of the record stream.
	Compress bool
	// CompressionLevel is the zstd level used when Compress is set.
	CompressionLevel zstd.EncoderLevel
	// Sync forces an fsync after every record.
	Sync bool
}

// DefaultOptions are used when no option function is supplied.
var DefaultOptions = Options{
	Compress:         true,
	CompressionLevel: zstd.SpeedDefault,
}

// Record is one logged solution.
type Record struct {
	Objective float64
	Solution  []float64
}

// Log is an append-only solution history log.
type Log struct {
	mu         sync.Mutex
	file       *os.File
	buf        *bufio.Writer
	writer     io.Writer
	compressor *zstd.Encoder
	numRecords int
	sync       bool
	closed     bool
}

// Open creates or truncates a solution log at path.
func Open(path string, optFns ...func(o *Options)) (*Log, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("sollog: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("sollog: open: %w", err)
	}

	header := make([]byte, 6)
	copy(header, magic[:])
	header[4] = version
	if opts.Compress {
		header[5] = 1
	}
	if _, err := file.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("sollog: write header: %w", err)
	}

	l := &Log{
		file: file,
		buf:  bufio.NewWriter(file),
		sync: opts.Sync,
	}
	l.writer = l.buf
	if opts.Compress {
		enc, err := zstd.NewWriter(l.buf, zstd.WithEncoderLevel(opts.CompressionLevel))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("sollog: compressor: %w", err)
		}
		l.compressor = enc
		l.writer = enc
	}
	return l, nil
}

// Append writes one improving solution to the log.
func (l *Log) Append(objective float64, solution []float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	record := make([]byte, 8+4+8*len(solution))
	binary.LittleEndian.PutUint64(record, math.Float64bits(objective))
	binary.LittleEndian.PutUint32(record[8:], uint32(len(solution)))
	for i, v := range solution {
		binary.LittleEndian.PutUint64(record[12+8*i:], math.Float64bits(v))
	}
	if _, err := l.writer.Write(record); err != nil {
		return fmt.Errorf("sollog: append: %w", err)
	}
	l.numRecords++

	if l.sync {
		if err := l.flushLocked(); err != nil {
			return err
		}
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("sollog: sync: %w", err)
		}
	}
	return nil
}

// NumRecords returns the number of appended solutions.
func (l *Log) NumRecords() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numRecords
}

func (l *Log) flushLocked() error {
	if l.compressor != nil {
		if err := l.compressor.Flush(); err != nil {
			return fmt.Errorf("sollog: flush compressor: %w", err)
		}
	}
	if err := l.buf.Flush(); err != nil {
		return fmt.Errorf("sollog: flush buffer: %w", err)
	}
	return nil
}

// Close flushes and closes the log.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	if l.compressor != nil {
		if err := l.compressor.Close(); err != nil {
			l.file.Close()
			return fmt.Errorf("sollog: close compressor: %w", err)
		}
	}
	if err := l.buf.Flush(); err != nil {
		l.file.Close()
		return fmt.Errorf("sollog: flush: %w", err)
	}
	return l.file.Close()
}

// Replay reads every record of a log at path in append order.
func Replay(path string, fn func(Record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sollog: open: %w", err)
	}
	defer file.Close()

	header := make([]byte, 6)
	if _, err := io.ReadFull(file, header); err != nil {
		return fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if [4]byte(header[:4]) != magic || header[4] != version {
		return fmt.Errorf("%w: bad magic or version", ErrCorrupt)
	}

	var reader io.Reader = bufio.NewReader(file)
	if header[5] == 1 {
		dec, err := zstd.NewReader(reader)
		if err != nil {
			return fmt.Errorf("sollog: decompressor: %w", err)
		}
		defer dec.Close()
		reader = dec
	}

	prefix := make([]byte, 12)
	for {
		if _, err := io.ReadFull(reader, prefix); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: truncated record", ErrCorrupt)
		}
		rec := Record{
			Objective: math.Float64frombits(binary.LittleEndian.Uint64(prefix)),
		}
		n := binary.LittleEndian.Uint32(prefix[8:])
		body := make([]byte, 8*n)
		if _, err := io.ReadFull(reader, body); err != nil {
			return fmt.Errorf("%w: truncated solution", ErrCorrupt)
		}
		rec.Solution = make([]float64, n)
		for i := range rec.Solution {
			rec.Solution[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[8*i:]))
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
