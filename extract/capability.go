package extract

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"social_media_analyzer/failure"
)

// CapabilityState is the readiness of the PDF-parsing capability.
type CapabilityState int32

const (
	Uninitialized CapabilityState = iota
	Ready
	Failed
)

func (s CapabilityState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

const notReadyMsg = "PDF library still loading. Try again in a few seconds."

// PDFBackend is an external PDF-parsing library.
type PDFBackend interface {
	// Name identifies the backend in logs and config.
	Name() string
	// Init performs the backend's one-time setup.
	Init(ctx context.Context) error
	// Open parses content as a paginated document.
	Open(content []byte) (PageSource, error)
}

// PageSource is an opened PDF. Pages are numbered from 1.
type PageSource interface {
	NumPages() int
	// PageTokens returns the page's text items in extraction order.
	PageTokens(page int) ([]string, error)
}

// Capability gates access to a PDFBackend until its initialization has
// finished. Readiness checks never block.
type Capability struct {
	backend PDFBackend
	state   atomic.Int32
	once    sync.Once
	done    chan struct{}
	err     error
}

// NewCapability wraps backend in the Uninitialized state.
func NewCapability(backend PDFBackend) *Capability {
	return &Capability{
		backend: backend,
		done:    make(chan struct{}),
	}
}

// Start runs the backend initialization in the background. Only the first
// call (of Start or Init) has any effect.
func (c *Capability) Start(ctx context.Context) {
	c.once.Do(func() {
		go c.initialize(ctx)
	})
}

// Init runs the backend initialization synchronously and returns its
// result. If initialization was already started it waits for it.
func (c *Capability) Init(ctx context.Context) error {
	c.once.Do(func() {
		c.initialize(ctx)
	})
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Capability) initialize(ctx context.Context) {
	defer close(c.done)
	if c.backend == nil {
		c.err = failure.New(failure.DependencyNotReady, "no PDF backend configured")
		c.state.Store(int32(Failed))
		return
	}
	if err := c.backend.Init(ctx); err != nil {
		c.err = err
		c.state.Store(int32(Failed))
		return
	}
	c.state.Store(int32(Ready))
}

// State returns the current readiness.
func (c *Capability) State() CapabilityState {
	if c == nil {
		return Uninitialized
	}
	return CapabilityState(c.state.Load())
}

// Done is closed once initialization has finished, successfully or not.
func (c *Capability) Done() <-chan struct{} {
	return c.done
}

// Err returns the initialization error, if any. It is only meaningful
// after Done is closed.
func (c *Capability) Err() error {
	if c.State() != Failed {
		return nil
	}
	return c.err
}

// BackendName returns the wrapped backend's name.
func (c *Capability) BackendName() string {
	if c == nil || c.backend == nil {
		return ""
	}
	return c.backend.Name()
}

// open checks readiness and opens content with the backend.
func (c *Capability) open(content []byte) (PageSource, error) {
	if c.State() != Ready {
		return nil, failure.Wrap(failure.DependencyNotReady, notReadyMsg, c.Err())
	}
	return c.backend.Open(content)
}

// NewBackend returns the PDF backend registered under name. An empty name
// selects ledongthuc.
func NewBackend(name string) (PDFBackend, error) {
	switch name {
	case "", "ledongthuc":
		return NewLedongthucBackend(), nil
	case "pdfcpu":
		return NewPDFCPUBackend(), nil
	default:
		return nil, fmt.Errorf("pdf backend %s not supported", name)
	}
}
