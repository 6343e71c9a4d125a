// Package pipeline sequences extraction, the length gate, the generation
// request and response parsing for one document at a time.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"unicode/utf8"

	"social_media_analyzer/extract"
	"social_media_analyzer/failure"
	"social_media_analyzer/generator"
)

// DefaultMinTextLength is the smallest extracted text, in characters, that
// is sent to the model.
const DefaultMinTextLength = 10

const insufficientTextMsg = "No text could be extracted from this file."

// ErrReplaced is returned by a Run that was abandoned because Reset or a
// newer Run started while it was in flight.
var ErrReplaced = errors.New("pipeline: run replaced")

// State is a step of the pipeline state machine.
type State int

const (
	Idle State = iota
	Extracting
	Gating
	Requesting
	Parsing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Gating:
		return "gating"
	case Requesting:
		return "requesting"
	case Parsing:
		return "parsing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Extractor turns a document into trimmed text.
type Extractor interface {
	Extract(ctx context.Context, doc extract.SourceDocument) (string, error)
}

// Requester sends extracted text to the model and returns its raw answer.
type Requester interface {
	Request(ctx context.Context, text, credential string) (string, error)
}

// Result is what a successful run exposes for rendering and export.
type Result struct {
	Document    string                 `json:"document"`
	Text        string                 `json:"text"`
	Suggestions []generator.Suggestion `json:"suggestions"`
	Tier        string                 `json:"tier"`
	Outcome     string                 `json:"outcome"`
}

// Config wires an Orchestrator.
type Config struct {
	Extractor Extractor
	Requester Requester
	// Credential is called once per run, right before the request.
	Credential    func() string
	MinTextLength int
	// OnState, if set, observes every transition of the current run.
	OnState func(State)
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.MinTextLength <= 0 {
		c.MinTextLength = DefaultMinTextLength
	}
	if c.Credential == nil {
		c.Credential = func() string { return "" }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Orchestrator runs one document at a time. Starting a run abandons the one
// in flight.
type Orchestrator struct {
	cfg Config

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State
	result *Result
	err    error
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if cfg.Requester == nil {
		return nil, errors.New("requester is required")
	}
	cfg.defaults()
	return &Orchestrator{cfg: cfg}, nil
}

// Run processes doc to completion. Failures carry a failure.Kind; a run
// that was replaced returns ErrReplaced and leaves no trace in the
// orchestrator's state.
func (o *Orchestrator) Run(ctx context.Context, doc extract.SourceDocument) (Result, error) {
	runCtx, gen := o.begin(ctx)
	defer o.end(gen)

	logger := o.cfg.Logger.With("document", doc.Name, "run_seq", gen)
	logger.Info("run started", "mime_type", doc.MIMEType, "size", doc.Size())

	o.transition(gen, Extracting)
	text, err := o.cfg.Extractor.Extract(runCtx, doc)
	if err != nil {
		return Result{}, o.fail(gen, logger, orKind(err, failure.ExtractionFailed))
	}

	o.transition(gen, Gating)
	if n := utf8.RuneCountInString(text); n < o.cfg.MinTextLength {
		logger.Info("extracted text below minimum", "chars", n, "min", o.cfg.MinTextLength)
		return Result{}, o.fail(gen, logger, failure.New(failure.InsufficientText, insufficientTextMsg))
	}
	logger.Debug("text extracted", "chars", utf8.RuneCountInString(text))

	if !o.transition(gen, Requesting) {
		return Result{}, ErrReplaced
	}
	raw, err := o.cfg.Requester.Request(runCtx, text, o.cfg.Credential())
	if err != nil {
		return Result{}, o.fail(gen, logger, orKind(err, failure.ServiceError))
	}

	o.transition(gen, Parsing)
	parsed := generator.ParseSuggestions(raw)
	res := Result{
		Document:    doc.Name,
		Text:        text,
		Suggestions: parsed.Suggestions,
		Tier:        parsed.Tier.String(),
		Outcome:     parsed.Outcome.String(),
	}

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return Result{}, ErrReplaced
	}
	o.state = Done
	o.result = &res
	o.mu.Unlock()
	o.notify(Done)

	logger.Info("run finished", "suggestions", len(res.Suggestions), "tier", res.Tier, "outcome", res.Outcome)
	return res, nil
}

// begin abandons any run in flight and resets to Idle.
func (o *Orchestrator) begin(ctx context.Context) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.gen++
	gen := o.gen
	o.cancel = cancel
	o.state = Idle
	o.result = nil
	o.err = nil
	o.mu.Unlock()

	o.notify(Idle)
	return runCtx, gen
}

func (o *Orchestrator) end(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.gen && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// transition moves the run identified by gen to s; it is a no-op once the
// run has been replaced.
func (o *Orchestrator) transition(gen uint64, s State) bool {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return false
	}
	o.state = s
	o.mu.Unlock()
	o.notify(s)
	return true
}

func (o *Orchestrator) fail(gen uint64, logger *slog.Logger, err error) error {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		logger.Debug("replaced run ended", "err", err)
		return ErrReplaced
	}
	o.state = Failed
	o.result = nil
	o.err = err
	o.mu.Unlock()
	o.notify(Failed)

	logger.Warn("run failed", "kind", failure.KindOf(err), "err", err)
	return err
}

func (o *Orchestrator) notify(s State) {
	if o.cfg.OnState != nil {
		o.cfg.OnState(s)
	}
}

// orKind tags untagged errors with kind.
func orKind(err error, kind failure.Kind) error {
	if failure.KindOf(err) != "" {
		return err
	}
	return failure.Wrap(kind, err.Error(), err)
}

// State returns the state of the latest run.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the latest run's result once it is Done.
func (o *Orchestrator) Result() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return Result{}, false
	}
	return *o.result, true
}

// Err returns the latest run's failure, if it Failed.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Reset abandons any run in flight and clears text, suggestions and error.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	o.state = Idle
	o.result = nil
	o.err = nil
	o.mu.Unlock()
	o.notify(Idle)
}
