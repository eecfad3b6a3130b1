package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cancoktug/ginovainno-replit-sub001/storage"
)

// State is a step of a single upload's lifecycle.
type State int

const (
	Received State = iota
	Validated
	Decoded
	Resized
	Stored
	Resolved
	Complete
	Errored
)

var stateNames = [...]string{"received", "validated", "decoded", "resized", "stored", "resolved", "complete", "errored"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Request is one upload. It is discarded once Process returns.
type Request struct {
	Data          []byte
	DeclaredType  string
	Category      string
	SuggestedName string
	Actor         string
}

// Result is only returned when every stage succeeded.
type Result struct {
	Object       *storage.Object
	URL          string
	Width        int
	Height       int
	SourceFormat string
}

// StageError records the state the pipeline was in when it moved to Errored.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.State, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

type ServiceOptions struct {
	Limits Limits
	// Categories restricts Request.Category; empty allows any valid namespace.
	Categories []string
	// Workers bounds concurrent decode/encode work.
	Workers int64
}

// Option customizes a Service.
type Option func(*Service)

// WithTransitionHook is called on every state change, in order.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(s *Service) { s.onTransition = fn }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service runs Intake -> Validator -> Normalizer -> Store -> Resolver.
type Service struct {
	limits       Limits
	categories   map[string]bool
	normalizer   *Normalizer
	store        storage.Store
	resolver     *Resolver
	sem          *semaphore.Weighted
	log          *zap.Logger
	onTransition func(from, to State)
}

func NewService(store storage.Store, normalizer *Normalizer, resolver *Resolver, opts ServiceOptions, options ...Option) (*Service, error) {
	if store == nil {
		return nil, &ConfigurationError{Field: "storage", Reason: "store is required"}
	}
	if resolver == nil {
		return nil, &ConfigurationError{Field: "media.public_base_url", Reason: "resolver is required"}
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil, NormalizeOptions{})
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	cats := make(map[string]bool, len(opts.Categories))
	for _, c := range opts.Categories {
		c = strings.TrimSpace(c)
		if !storage.ValidNamespace(c) {
			return nil, &ConfigurationError{Field: "media.categories", Reason: fmt.Sprintf("invalid category %q", c)}
		}
		cats[c] = true
	}
	s := &Service{
		limits:     opts.Limits,
		categories: cats,
		normalizer: normalizer,
		store:      store,
		resolver:   resolver,
		sem:        semaphore.NewWeighted(opts.Workers),
		log:        zap.NewNop(),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

func (s *Service) Limits() Limits { return s.limits }

func (s *Service) Resolver() *Resolver { return s.resolver }

func (s *Service) Store() storage.Store { return s.store }

// CategoryAllowed reports whether uploads may target category.
func (s *Service) CategoryAllowed(category string) bool {
	if !storage.ValidNamespace(category) {
		return false
	}
	return len(s.categories) == 0 || s.categories[category]
}

// Process runs the whole pipeline. On any failure nothing has been written and the
// returned error is a *StageError wrapping one of ValidationError, DecodeError,
// storage.ErrStorageUnavailable, storage.ErrQuotaExceeded or a context error.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	run := &run{svc: s, state: Received, started: time.Now(),
		log: s.log.With(zap.String("category", req.Category), zap.String("actor", req.Actor), zap.Int("bytes", len(req.Data)))}
	run.log.Debug("upload received", zap.String("declared_type", req.DeclaredType))

	// validate
	if !s.CategoryAllowed(req.Category) {
		return nil, run.fail(&ValidationError{Kind: InvalidCategory, Category: req.Category})
	}
	if err := Validate(int64(len(req.Data)), req.DeclaredType, s.limits); err != nil {
		return nil, run.fail(err)
	}
	if err := run.advance(ctx, Validated); err != nil {
		return nil, err
	}

	// decode, resize and encode under the worker bound
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, run.fail(err)
	}
	img, format, err := s.normalizer.Decode(req.Data)
	if err != nil {
		s.sem.Release(1)
		return nil, run.fail(err)
	}
	if err := run.advance(ctx, Decoded); err != nil {
		s.sem.Release(1)
		return nil, err
	}
	canvas := s.normalizer.Resize(img)
	if err := run.advance(ctx, Resized); err != nil {
		s.sem.Release(1)
		return nil, err
	}
	encoded, err := s.normalizer.Encode(canvas)
	s.sem.Release(1)
	if err != nil {
		return nil, run.fail(&DecodeError{Format: format, Err: err})
	}
	if err := ctx.Err(); err != nil {
		return nil, run.fail(err)
	}

	// store
	obj, err := s.store.Put(ctx, encoded, storage.PutOptions{
		Namespace:     req.Category,
		SuggestedName: "upload" + CanonicalExtension,
		ContentType:   CanonicalContentType,
	})
	if err != nil {
		return nil, run.fail(err)
	}
	if err := run.advance(ctx, Stored); err != nil {
		// the object is complete but unreferenced; treat it like any other orphan
		run.log.Debug("cancelled after store", zap.String("key", obj.Key))
		return nil, err
	}

	url := s.resolver.Resolve(obj.Key)
	run.setState(Resolved)
	run.setState(Complete)
	run.log.Debug("upload complete",
		zap.String("key", obj.Key),
		zap.String("source_format", format),
		zap.Int("stored_bytes", len(encoded)),
		zap.Duration("elapsed", time.Since(run.started)))

	opts := s.normalizer.Options()
	return &Result{Object: obj, URL: url, Width: opts.Width, Height: opts.Height, SourceFormat: format}, nil
}

type run struct {
	svc     *Service
	state   State
	started time.Time
	log     *zap.Logger
}

func (r *run) setState(to State) {
	from := r.state
	r.state = to
	if r.svc.onTransition != nil {
		r.svc.onTransition(from, to)
	}
}

// advance moves to the next state unless ctx has been cancelled.
func (r *run) advance(ctx context.Context, to State) error {
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}
	r.setState(to)
	return nil
}

func (r *run) fail(err error) error {
	at := r.state
	r.setState(Errored)
	serr := &StageError{State: at, Err: err}
	switch {
	case IsClientError(err):
		r.log.Debug("upload rejected", zap.Stringer("state", at), zap.Error(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.log.Info("upload aborted", zap.Stringer("state", at), zap.Error(err))
	default:
		r.log.Error("upload failed", zap.Stringer("state", at), zap.Error(err),
			zap.Duration("elapsed", time.Since(r.started)))
	}
	return serr
}
