// Package loader is the board load pipeline: it picks the parser for a file
// by extension, parses, unifies and returns the finished board.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/eagle"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/layers"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/unify"
)

// ErrUnsupportedFormat is returned for files no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported board format")

var extensions = map[string]records.Format{
	".brd":       records.FormatEagle,
	".kicad_pcb": records.FormatKiCad,
}

// DetectFormat selects the board format from a file extension.
func DetectFormat(path string) (records.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if ext == ".pcbdoc" {
		return "", fmt.Errorf("%w: %s (binary Altium boards are not supported)", ErrUnsupportedFormat, ext)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Result is a loaded board with timing information.
type Result struct {
	Path     string
	Format   records.Format
	Board    *model.Board
	Duration time.Duration
}

// Loader parses and unifies board files. It holds no per-load state and is
// safe for concurrent use.
type Loader struct {
	registry *layers.Registry
	log      *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry sets the layer registry used for unification.
func WithRegistry(r *layers.Registry) Option {
	return func(l *Loader) {
		if r != nil {
			l.registry = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = layers.Default()
	}
	return l
}

// Parse runs the parser for format over r.
func Parse(format records.Format, r io.Reader) (*records.RawBoardRecords, error) {
	switch format {
	case records.FormatEagle:
		return eagle.Parse(r)
	case records.FormatKiCad:
		return pcb.Parse(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Read parses and unifies a board from r.
func (l *Loader) Read(format records.Format, r io.Reader) (*model.Board, error) {
	recs, err := Parse(format, r)
	if err != nil {
		return nil, err
	}
	return unify.Build(recs, l.registry, unify.WithLogger(l.log)), nil
}

// Load reads the board file at path. Fatal errors are wrapped with the path.
func (l *Loader) Load(path string) (*Result, error) {
	start := time.Now()
	format, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open board: %w", err)
	}
	defer f.Close()

	board, err := l.Read(format, f)
	if err != nil {
		l.log.Error("board load failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res := &Result{Path: path, Format: format, Board: board, Duration: time.Since(start)}
	for _, w := range board.Warnings() {
		l.log.Debug(w.Message,
			zap.String("stage", string(w.Stage)),
			zap.String("kind", string(w.Kind)),
			zap.String("location", w.Location))
	}
	l.log.Info("board loaded",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.String("summary", unify.Summary(board)),
		zap.Duration("took", res.Duration))
	return res, nil
}

// Load reads a board with the default registry and no logging.
func Load(path string) (*model.Board, error) {
	res, err := New().Load(path)
	if err != nil {
		return nil, err
	}
	return res.Board, nil
}
