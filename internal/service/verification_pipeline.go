package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
)

type Channel string

const (
	ChannelScan   Channel = "scan"
	ChannelUpload Channel = "upload"
	ChannelManual Channel = "manual"
)

type PipelineState string

const (
	StateIdle       PipelineState = "idle"
	StateValidating PipelineState = "validating"
	StateValidated  PipelineState = "validated"
	StateRejected   PipelineState = "rejected"
)

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDropped   Outcome = "dropped"
	OutcomeDebounced Outcome = "debounced"
	OutcomeCancelled Outcome = "cancelled"
)

// ValidationResult is what one trigger produced. State is the pipeline state
// after the trigger was handled.
type ValidationResult struct {
	Outcome          Outcome
	State            PipelineState
	Credential       *domain.Credential
	AlreadyValidated bool
	Err              error
}

// Reason returns the rejection reason, empty for non-rejected outcomes.
func (r ValidationResult) Reason() string {
	var rej *RejectedError
	if errors.As(r.Err, &rej) {
		return rej.Reason
	}
	return ""
}

type VerificationObserver interface {
	StateChanged(from, to PipelineState)
	ValidationSucceeded(credential domain.Credential, alreadyValidated bool)
	ValidationRejected(reason error)
}

// CredentialValidator is the single store call a validation makes.
type CredentialValidator interface {
	MarkValidated(ctx context.Context, uniqueID string, at time.Time) (*domain.Credential, bool, error)
}

type noopObserver struct{}

func (noopObserver) StateChanged(PipelineState, PipelineState)   {}
func (noopObserver) ValidationSucceeded(domain.Credential, bool) {}
func (noopObserver) ValidationRejected(error)                    {}

type candidate struct {
	channel Channel
	token   string
	invalid error
}

type PipelineOption func(*Pipeline)

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline serializes validation triggers for one verifying client. At most
// one validation is in flight; triggers arriving meanwhile are dropped.
type Pipeline struct {
	validator CredentialValidator
	decoder   scancode.Decoder
	observer  VerificationObserver
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	state       PipelineState
	generation  uint64
	current     *domain.Credential
	shown       string
	lastOutcome Outcome
	lastReason  string

	// Observer notifications are queued under mu and delivered in queue order
	// by one goroutine at a time, outside mu.
	pending    []func(VerificationObserver)
	delivering bool
}

func NewPipeline(validator CredentialValidator, decoder scancode.Decoder, observer VerificationObserver, opts ...PipelineOption) *Pipeline {
	if observer == nil {
		observer = noopObserver{}
	}
	p := &Pipeline{
		validator: validator,
		decoder:   decoder,
		observer:  observer,
		logger:    slog.Default(),
		now:       time.Now,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PipelineSnapshot is a consistent read of the pipeline for display.
type PipelineSnapshot struct {
	State       PipelineState
	Credential  *domain.Credential
	LastOutcome Outcome
	LastReason  string
}

func (p *Pipeline) Snapshot() PipelineSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PipelineSnapshot{
		State:       p.state,
		Credential:  cloneCredential(p.current),
		LastOutcome: p.lastOutcome,
		LastReason:  p.lastReason,
	}
}

func (p *Pipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SubmitScan handles a live camera decode. An empty token is an unreadable
// frame. Scanning the credential already on display is ignored.
func (p *Pipeline) SubmitScan(ctx context.Context, token string) (ValidationResult, error) {
	token = strings.TrimSpace(token)
	c := candidate{channel: ChannelScan, token: token}
	if token == "" {
		c.invalid = scancode.ErrNoCodeFound
	}
	gen, res, ok := p.begin(ctx, c)
	if !ok {
		return res, nil
	}
	return p.validate(ctx, gen, c), nil
}

// SubmitImage decodes an uploaded image and validates what it contains.
func (p *Pipeline) SubmitImage(ctx context.Context, img []byte) (ValidationResult, error) {
	if len(img) == 0 {
		observability.RecordVerificationOutcome(ctx, string(ChannelUpload), "empty_input")
		return ValidationResult{}, &EmptyInputError{Channel: ChannelUpload}
	}
	c := candidate{channel: ChannelUpload}
	gen, res, ok := p.begin(ctx, c)
	if !ok {
		return res, nil
	}
	decoded := p.decoder.Decode(ctx, img)
	if decoded.OK() {
		c.token = decoded.Token
	} else {
		c.invalid = decoded.Failure
	}
	return p.validate(ctx, gen, c), nil
}

// SubmitManual validates typed text. Blank text never reaches the store.
func (p *Pipeline) SubmitManual(ctx context.Context, text string) (ValidationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		observability.RecordVerificationOutcome(ctx, string(ChannelManual), "empty_input")
		return ValidationResult{}, &EmptyInputError{Channel: ChannelManual}
	}
	c := candidate{channel: ChannelManual, token: text}
	gen, res, ok := p.begin(ctx, c)
	if !ok {
		return res, nil
	}
	return p.validate(ctx, gen, c), nil
}

// Dismiss closes the result view.
func (p *Pipeline) Dismiss() PipelineState {
	p.mu.Lock()
	from := p.state
	if from != StateValidated && from != StateRejected {
		p.mu.Unlock()
		return from
	}
	p.state = StateIdle
	p.current = nil
	p.shown = ""
	p.notify(stateChanged(from, StateIdle))
	p.mu.Unlock()

	p.flush()
	return StateIdle
}

// Cancel abandons any in-flight validation; its completion will be discarded.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	p.generation++
	from := p.state
	p.state = StateIdle
	p.current = nil
	p.shown = ""
	if from != StateIdle {
		p.notify(stateChanged(from, StateIdle))
	}
	p.mu.Unlock()

	p.flush()
}

// begin applies the gate and debounce and, if the trigger is accepted, moves
// the pipeline into Validating under a new generation.
func (p *Pipeline) begin(ctx context.Context, c candidate) (uint64, ValidationResult, bool) {
	p.mu.Lock()
	if p.state == StateValidating {
		p.mu.Unlock()
		observability.RecordVerificationOutcome(ctx, string(c.channel), string(OutcomeDropped))
		return 0, ValidationResult{Outcome: OutcomeDropped, State: StateValidating}, false
	}
	if c.channel == ChannelScan && p.state == StateValidated && c.token != "" && c.token == p.shown {
		res := ValidationResult{Outcome: OutcomeDebounced, State: StateValidated, Credential: cloneCredential(p.current)}
		p.mu.Unlock()
		observability.RecordVerificationOutcome(ctx, string(c.channel), string(OutcomeDebounced))
		return 0, res, false
	}
	from := p.state
	p.state = StateValidating
	p.generation++
	gen := p.generation
	p.notify(stateChanged(from, StateValidating))
	p.mu.Unlock()

	p.flush()
	return gen, ValidationResult{}, true
}

func (p *Pipeline) validate(ctx context.Context, gen uint64, c candidate) ValidationResult {
	ctx, span := otel.Tracer("verification").Start(ctx, "verification.validate")
	defer span.End()
	span.SetAttributes(attribute.String("verification.channel", string(c.channel)))

	var (
		cred  *domain.Credential
		fresh bool
		err   error
	)
	if c.invalid != nil {
		err = &RejectedError{Reason: ReasonUnreadable, Err: c.invalid}
	} else {
		cred, fresh, err = p.validator.MarkValidated(ctx, c.token, p.now().UTC())
		if err != nil {
			if errors.Is(err, repository.ErrCredentialNotFound) {
				err = &RejectedError{Reason: ReasonNotFound}
			} else {
				p.logger.WarnContext(ctx, "credential validation store call failed", "channel", c.channel, "error", err)
				err = &RejectedError{Reason: ReasonUnavailable, Err: err}
			}
		}
	}

	res := p.complete(gen, cred, fresh, err)
	span.SetAttributes(attribute.String("verification.outcome", string(res.Outcome)))
	observability.RecordVerificationOutcome(ctx, string(c.channel), string(res.Outcome))
	if res.Outcome == OutcomeSuccess {
		p.logger.InfoContext(ctx, "credential validated",
			"channel", c.channel,
			"unique_id", res.Credential.UniqueID,
			"already_validated", res.AlreadyValidated,
		)
	}
	return res
}

func (p *Pipeline) complete(gen uint64, cred *domain.Credential, fresh bool, err error) ValidationResult {
	p.mu.Lock()
	if gen != p.generation {
		state := p.state
		p.mu.Unlock()
		return ValidationResult{Outcome: OutcomeCancelled, State: state}
	}

	if err != nil {
		p.state = StateIdle
		p.current = nil
		p.shown = ""
		p.lastOutcome = OutcomeRejected
		p.lastReason = rejectionReason(err)
		p.notify(
			stateChanged(StateValidating, StateRejected),
			func(o VerificationObserver) { o.ValidationRejected(err) },
			stateChanged(StateRejected, StateIdle),
		)
		p.mu.Unlock()

		p.flush()
		return ValidationResult{Outcome: OutcomeRejected, State: StateIdle, Err: err}
	}

	p.state = StateValidated
	p.current = cloneCredential(cred)
	p.shown = cred.UniqueID
	p.lastOutcome = OutcomeSuccess
	p.lastReason = ""
	shown := cloneCredential(cred)
	event := *shown
	p.notify(
		stateChanged(StateValidating, StateValidated),
		func(o VerificationObserver) { o.ValidationSucceeded(event, !fresh) },
	)
	p.mu.Unlock()

	p.flush()
	return ValidationResult{Outcome: OutcomeSuccess, State: StateValidated, Credential: shown, AlreadyValidated: !fresh}
}

// notify queues observer calls. p.mu must be held, and flush called after
// it is released.
func (p *Pipeline) notify(events ...func(VerificationObserver)) {
	p.pending = append(p.pending, events...)
}

// flush delivers queued notifications. If another goroutine is already
// delivering, it picks up these events after its own, so the observer sees
// transitions in the order they were applied.
func (p *Pipeline) flush() {
	p.mu.Lock()
	if p.delivering {
		p.mu.Unlock()
		return
	}
	p.delivering = true
	for len(p.pending) > 0 {
		batch := p.pending
		p.pending = nil
		p.mu.Unlock()
		for _, deliver := range batch {
			deliver(p.observer)
		}
		p.mu.Lock()
	}
	p.delivering = false
	p.mu.Unlock()
}

func stateChanged(from, to PipelineState) func(VerificationObserver) {
	return func(o VerificationObserver) { o.StateChanged(from, to) }
}

func rejectionReason(err error) string {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// PipelineEvent is one observer notification as kept by EventRecorder.
type PipelineEvent struct {
	Kind             string        `json:"kind"`
	From             PipelineState `json:"from,omitempty"`
	To               PipelineState `json:"to,omitempty"`
	UniqueID         string        `json:"unique_id,omitempty"`
	AlreadyValidated bool          `json:"already_validated,omitempty"`
	Reason           string        `json:"reason,omitempty"`
	At               time.Time     `json:"at"`
}

const defaultEventRecorderLimit = 32

// EventRecorder keeps the most recent pipeline events.
type EventRecorder struct {
	mu     sync.Mutex
	limit  int
	events []PipelineEvent
	now    func() time.Time
}

func NewEventRecorder(limit int) *EventRecorder {
	if limit <= 0 {
		limit = defaultEventRecorderLimit
	}
	return &EventRecorder{limit: limit, now: time.Now}
}

func (r *EventRecorder) StateChanged(from, to PipelineState) {
	r.add(PipelineEvent{Kind: "state_changed", From: from, To: to})
}

func (r *EventRecorder) ValidationSucceeded(c domain.Credential, alreadyValidated bool) {
	r.add(PipelineEvent{Kind: "validation_succeeded", UniqueID: c.UniqueID, AlreadyValidated: alreadyValidated})
}

func (r *EventRecorder) ValidationRejected(reason error) {
	r.add(PipelineEvent{Kind: "validation_rejected", Reason: rejectionReason(reason)})
}

func (r *EventRecorder) add(ev PipelineEvent) {
	ev.At = r.now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append(r.events[:0], r.events[over:]...)
	}
}

func (r *EventRecorder) Events() []PipelineEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PipelineEvent(nil), r.events...)
}
