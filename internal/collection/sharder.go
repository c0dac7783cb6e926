// Package collection converts a directory of JSON-lines documents into
// size-bounded shard files of {id, contents} records.
package collection

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ricesearch/irtools/internal/bus"
	"github.com/ricesearch/irtools/internal/metrics"
	"github.com/ricesearch/irtools/internal/pkg/errors"
	"github.com/ricesearch/irtools/internal/pkg/logger"
)

// DefaultProgressInterval is the number of accepted documents between
// progress notices.
const DefaultProgressInterval = 100000

const eventSource = "collection"

// Options configures one conversion run.
type Options struct {
	// InputDir holds the JSON-lines input files.
	InputDir string

	// OutputDir receives docsNN.json shards. Created if missing.
	OutputDir string

	// MaxDocsPerFile bounds the number of documents per shard.
	MaxDocsPerFile int

	// ProgressInterval defaults to DefaultProgressInterval.
	ProgressInterval int

	// TextField defaults to DefaultTextField.
	TextField string

	// Manifest writes manifest.json after the last shard is closed.
	Manifest bool

	// RunID correlates bus events; generated when empty.
	RunID string

	// OnProgress, if set, is called with every progress notice.
	OnProgress func(Progress)
}

// Progress is a periodic conversion notice.
type Progress struct {
	Documents int `json:"documents"`
	Shards    int `json:"shards"`
}

// Result summarizes a finished conversion.
type Result struct {
	RunID     string        `json:"run_id"`
	Files     int           `json:"files"`
	Lines     int           `json:"lines"`
	Documents int           `json:"documents"`
	Skipped   int           `json:"skipped"`
	Shards    []ShardInfo   `json:"shards"`
	Duration  time.Duration `json:"duration"`
}

// ShardCount returns the number of shard files written.
func (r *Result) ShardCount() int {
	return len(r.Shards)
}

// Sharder converts collections. It holds no per-run state and may be reused.
type Sharder struct {
	bus     bus.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewSharder creates a sharder. eventBus and m are optional.
func NewSharder(log *logger.Logger, eventBus bus.Bus, m *metrics.Metrics) *Sharder {
	if log == nil {
		log = logger.Discard()
	}
	return &Sharder{
		bus:     eventBus,
		metrics: m,
		log:     log.WithComponent("collection"),
	}
}

// run holds the state of a single conversion.
type run struct {
	opts    Options
	log     *logger.Logger
	result  *Result
	current *shardWriter
	nextID  int
}

// Shard reads every input file in name order and writes the accepted
// documents to shards of at most MaxDocsPerFile documents each. Ids are
// dense and start at 0. Documents with an empty, null or missing text
// field are dropped without consuming an id.
func (s *Sharder) Shard(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	opts, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	ctx = logger.ContextWithRunID(ctx, opts.RunID)
	r := &run{
		opts:   opts,
		log:    s.log.WithContext(ctx),
		result: &Result{RunID: opts.RunID, Shards: []ShardInfo{}},
	}

	files, err := listInputFiles(opts.InputDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.IOError("creating output directory", opts.OutputDir, err)
	}

	r.log.Info("Converting collection",
		"input", opts.InputDir,
		"output", opts.OutputDir,
		"files", len(files),
		"max_docs_per_file", opts.MaxDocsPerFile,
	)

	for _, name := range files {
		if err := s.convertFile(ctx, r, name); err != nil {
			if r.current != nil {
				r.current.abort()
			}
			r.log.Error("Conversion aborted", "file", name, "error", err)
			return nil, err
		}
		r.result.Files++
	}

	if err := s.closeShard(ctx, r); err != nil {
		return nil, err
	}

	if opts.Manifest {
		m := &Manifest{
			CollectionPath: opts.InputDir,
			TextField:      opts.TextField,
			MaxDocsPerFile: opts.MaxDocsPerFile,
			Documents:      r.result.Documents,
			Skipped:        r.result.Skipped,
			Shards:         r.result.Shards,
		}
		if err := WriteManifest(opts.OutputDir, m); err != nil {
			return nil, err
		}
	}

	r.result.Duration = time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordConversion(r.result.Duration)
	}

	r.log.Info("Conversion complete",
		"documents", r.result.Documents,
		"skipped", r.result.Skipped,
		"shards", len(r.result.Shards),
		"duration", r.result.Duration,
	)
	s.publish(ctx, r, bus.TopicCollectionCompleted, r.result)

	return r.result, nil
}

func normalizeOptions(opts Options) (Options, error) {
	if strings.TrimSpace(opts.InputDir) == "" {
		return opts, errors.ValidationError("collection path is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return opts, errors.ValidationError("output folder is required")
	}
	if opts.MaxDocsPerFile < 1 {
		return opts, errors.ValidationError(fmt.Sprintf("max docs per file must be positive, got %d", opts.MaxDocsPerFile))
	}
	if opts.ProgressInterval < 0 {
		return opts, errors.ValidationError(fmt.Sprintf("progress interval must not be negative, got %d", opts.ProgressInterval))
	}
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.TextField == "" {
		opts.TextField = DefaultTextField
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return opts, nil
}

func (s *Sharder) convertFile(ctx context.Context, r *run, name string) error {
	path := filepath.Join(r.opts.InputDir, name)
	f, err := os.Open(path)
	if err != nil {
		return errors.IOError("opening input file", path, err)
	}
	defer f.Close()

	r.log.WithFile(path).Debug("Reading input file")

	lines := newLineReader(f)
	for {
		if err := ctx.Err(); err != nil {
			return errors.InternalError("conversion interrupted", err)
		}

		line, err := lines.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.IOError("reading input file", path, err)
		}

		if isBlank(line) {
			continue
		}
		r.result.Lines++
		if s.metrics != nil {
			s.metrics.RecordLine()
		}

		text, ok, err := extractText(line, r.opts.TextField)
		if err != nil {
			return errors.ParseError(path, lines.LineNo(), err)
		}
		if !ok {
			r.result.Skipped++
			if s.metrics != nil {
				s.metrics.RecordDocument(false)
			}
			continue
		}

		if err := s.accept(ctx, r, text); err != nil {
			return err
		}
	}
}

// accept assigns the next id to text, rotating shards on boundaries.
func (s *Sharder) accept(ctx context.Context, r *run, text string) error {
	if r.nextID%r.opts.MaxDocsPerFile == 0 {
		if err := s.closeShard(ctx, r); err != nil {
			return err
		}
		index := r.nextID / r.opts.MaxDocsPerFile
		w, err := openShard(r.opts.OutputDir, index, r.nextID)
		if err != nil {
			return err
		}
		r.current = w
		r.log.Debug("Opened shard", "file", w.info.File)
		s.publish(ctx, r, bus.TopicShardOpened, w.info)
	}

	if err := r.current.Write(OutputDocument{ID: r.nextID, Contents: text}); err != nil {
		return err
	}
	r.nextID++
	r.result.Documents++
	if s.metrics != nil {
		s.metrics.RecordDocument(true)
	}

	if r.nextID%r.opts.ProgressInterval == 0 {
		p := Progress{Documents: r.nextID, Shards: r.current.info.Index + 1}
		r.log.Debug("Progress", "documents", p.Documents, "shards", p.Shards)
		if r.opts.OnProgress != nil {
			r.opts.OnProgress(p)
		}
		s.publish(ctx, r, bus.TopicCollectionProgress, p)
	}

	return nil
}

func (s *Sharder) closeShard(ctx context.Context, r *run) error {
	if r.current == nil {
		return nil
	}
	w := r.current
	r.current = nil

	info, err := w.Close()
	if err != nil {
		return err
	}
	r.result.Shards = append(r.result.Shards, info)
	if s.metrics != nil {
		s.metrics.RecordShardClosed(info.Documents)
	}
	r.log.Debug("Closed shard", "file", info.File, "documents", info.Documents, "bytes", info.Bytes)
	s.publish(ctx, r, bus.TopicShardClosed, info)
	return nil
}

// publish emits a best-effort event; failures are only logged.
func (s *Sharder) publish(ctx context.Context, r *run, topic string, payload any) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(topic, eventSource, r.opts.RunID, payload)
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		r.log.Warn("Failed to publish event", "topic", topic, "error", err)
	}
}
