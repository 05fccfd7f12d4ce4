package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
)

type stubValidator struct {
	mu      sync.Mutex
	calls   []string
	creds   map[string]*domain.Credential
	err     error
	release chan struct{}
	entered chan struct{}
}

func newStubValidator(ids ...string) *stubValidator {
	v := &stubValidator{creds: map[string]*domain.Credential{}}
	for _, id := range ids {
		v.creds[id] = &domain.Credential{UniqueID: id}
	}
	return v
}

func (v *stubValidator) MarkValidated(ctx context.Context, uniqueID string, at time.Time) (*domain.Credential, bool, error) {
	v.mu.Lock()
	v.calls = append(v.calls, uniqueID)
	release, entered := v.release, v.entered
	v.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, false, v.err
	}
	c, ok := v.creds[uniqueID]
	if !ok {
		return nil, false, repository.ErrCredentialNotFound
	}
	if c.ValidationStatus {
		cp := *c
		return &cp, false, nil
	}
	c.ValidationStatus = true
	stamp := at
	c.DateOfValidation = &stamp
	cp := *c
	return &cp, true, nil
}

func (v *stubValidator) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}

type stubDecoder struct {
	result scancode.DecodeResult
}

func (d stubDecoder) Decode(context.Context, []byte) scancode.DecodeResult { return d.result }

func TestPipelineManualSuccessThenAlreadyValidated(t *testing.T) {
	v := newStubValidator("UID-1-abc")
	rec := NewEventRecorder(0)
	p := NewPipeline(v, stubDecoder{}, rec)
	ctx := context.Background()

	res, err := p.SubmitManual(ctx, "  UID-1-abc ")
	if err != nil {
		t.Fatalf("SubmitManual: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.State != StateValidated || res.AlreadyValidated {
		t.Fatalf("unexpected first result %+v", res)
	}
	if res.Credential == nil || !res.Credential.ValidationStatus || res.Credential.DateOfValidation == nil {
		t.Fatalf("expected validated credential, got %+v", res.Credential)
	}

	if state := p.Dismiss(); state != StateIdle {
		t.Fatalf("expected idle after dismiss, got %s", state)
	}
	res, err = p.SubmitManual(ctx, "UID-1-abc")
	if err != nil {
		t.Fatalf("SubmitManual: %v", err)
	}
	if res.Outcome != OutcomeSuccess || !res.AlreadyValidated {
		t.Fatalf("expected already-validated success, got %+v", res)
	}

	var kinds []string
	for _, ev := range rec.Events() {
		kinds = append(kinds, ev.Kind)
	}
	want := []string{
		"state_changed", "state_changed", "validation_succeeded",
		"state_changed",
		"state_changed", "state_changed", "validation_succeeded",
	}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected events %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s (%v)", i, want[i], kinds[i], kinds)
		}
	}
}

func TestPipelineEmptyManualNeverReachesStore(t *testing.T) {
	v := newStubValidator()
	rec := NewEventRecorder(0)
	p := NewPipeline(v, stubDecoder{}, rec)

	_, err := p.SubmitManual(context.Background(), "   ")
	var empty *EmptyInputError
	if !errors.As(err, &empty) || empty.Channel != ChannelManual {
		t.Fatalf("expected manual EmptyInputError, got %v", err)
	}
	if v.callCount() != 0 {
		t.Fatalf("store must not be contacted, got %d calls", v.callCount())
	}
	if p.State() != StateIdle || len(rec.Events()) != 0 {
		t.Fatalf("state must not change, got %s with %d events", p.State(), len(rec.Events()))
	}
}

func TestPipelineEmptyUploadIsRejectedLocally(t *testing.T) {
	v := newStubValidator()
	p := NewPipeline(v, stubDecoder{}, nil)
	_, err := p.SubmitImage(context.Background(), nil)
	var empty *EmptyInputError
	if !errors.As(err, &empty) || empty.Channel != ChannelUpload {
		t.Fatalf("expected upload EmptyInputError, got %v", err)
	}
}

func TestPipelineInvalidUploadRejectsWithoutMutation(t *testing.T) {
	v := newStubValidator("UID-1-abc")
	rec := NewEventRecorder(0)
	p := NewPipeline(v, stubDecoder{result: scancode.DecodeResult{Failure: scancode.ErrNoCodeFound}}, rec)

	res, err := p.SubmitImage(context.Background(), []byte("not an image"))
	if err != nil {
		t.Fatalf("SubmitImage: %v", err)
	}
	if res.Outcome != OutcomeRejected || res.Reason() != ReasonUnreadable {
		t.Fatalf("expected unreadable rejection, got %+v", res)
	}
	if !errors.Is(res.Err, scancode.ErrNoCodeFound) {
		t.Fatalf("expected decode failure to be wrapped, got %v", res.Err)
	}
	if v.callCount() != 0 {
		t.Fatalf("store must not be contacted for unreadable input, got %d calls", v.callCount())
	}
	if v.creds["UID-1-abc"].ValidationStatus {
		t.Fatal("credential must not be mutated")
	}

	events := rec.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %+v", events)
	}
	if events[1].To != StateRejected || events[2].Kind != "validation_rejected" || events[3].From != StateRejected || events[3].To != StateIdle {
		t.Fatalf("unexpected rejection sequence %+v", events)
	}
	if p.State() != StateIdle {
		t.Fatalf("expected idle after rejection, got %s", p.State())
	}
}

func TestPipelineUploadDecodesAndValidates(t *testing.T) {
	v := newStubValidator("UID-9-xyz")
	p := NewPipeline(v, stubDecoder{result: scancode.DecodeResult{Token: "UID-9-xyz"}}, nil)
	res, err := p.SubmitImage(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("SubmitImage: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.Credential.UniqueID != "UID-9-xyz" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPipelineScanDebouncesCurrentlyShownCredential(t *testing.T) {
	v := newStubValidator("UID-1-abc", "UID-2-def")
	rec := NewEventRecorder(0)
	p := NewPipeline(v, stubDecoder{}, rec)
	ctx := context.Background()

	if res, _ := p.SubmitScan(ctx, "UID-1-abc"); res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	before := len(rec.Events())

	res, _ := p.SubmitScan(ctx, "UID-1-abc")
	if res.Outcome != OutcomeDebounced || res.State != StateValidated {
		t.Fatalf("expected debounce, got %+v", res)
	}
	if v.callCount() != 1 {
		t.Fatalf("debounced scan must not reach store, got %d calls", v.callCount())
	}
	if len(rec.Events()) != before {
		t.Fatal("debounced scan must not emit events")
	}

	// A different code replaces the displayed credential.
	res, _ = p.SubmitScan(ctx, "UID-2-def")
	if res.Outcome != OutcomeSuccess || res.Credential.UniqueID != "UID-2-def" {
		t.Fatalf("expected second credential, got %+v", res)
	}

	// Manual entry of the shown id is not debounced.
	res, _ = p.SubmitManual(ctx, "UID-2-def")
	if res.Outcome != OutcomeSuccess || !res.AlreadyValidated {
		t.Fatalf("expected manual revalidation, got %+v", res)
	}
}

func TestPipelineBlankScanIsUnreadable(t *testing.T) {
	v := newStubValidator()
	p := NewPipeline(v, stubDecoder{}, nil)
	res, err := p.SubmitScan(context.Background(), "")
	if err != nil {
		t.Fatalf("SubmitScan: %v", err)
	}
	if res.Outcome != OutcomeRejected || res.Reason() != ReasonUnreadable {
		t.Fatalf("expected unreadable rejection, got %+v", res)
	}
}

func TestPipelineRejectionReasons(t *testing.T) {
	v := newStubValidator()
	p := NewPipeline(v, stubDecoder{}, nil)
	res, _ := p.SubmitManual(context.Background(), "UID-404")
	if res.Outcome != OutcomeRejected || res.Reason() != ReasonNotFound {
		t.Fatalf("expected not found, got %+v", res)
	}

	v.err = errors.New("connection refused")
	res, _ = p.SubmitManual(context.Background(), "UID-404")
	if res.Outcome != OutcomeRejected || res.Reason() != ReasonUnavailable {
		t.Fatalf("expected unavailable, got %+v", res)
	}
	if snap := p.Snapshot(); snap.LastOutcome != OutcomeRejected || snap.LastReason != ReasonUnavailable {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestPipelineGateDropsTriggersWhileValidating(t *testing.T) {
	v := newStubValidator("UID-1-abc")
	v.release = make(chan struct{})
	v.entered = make(chan struct{}, 1)
	p := NewPipeline(v, stubDecoder{}, nil)
	ctx := context.Background()

	done := make(chan ValidationResult, 1)
	go func() {
		res, _ := p.SubmitManual(ctx, "UID-1-abc")
		done <- res
	}()
	<-v.entered

	res, err := p.SubmitScan(ctx, "UID-1-abc")
	if err != nil {
		t.Fatalf("SubmitScan: %v", err)
	}
	if res.Outcome != OutcomeDropped || res.State != StateValidating {
		t.Fatalf("expected dropped trigger, got %+v", res)
	}

	close(v.release)
	first := <-done
	if first.Outcome != OutcomeSuccess {
		t.Fatalf("expected in-flight validation to succeed, got %+v", first)
	}
	if v.callCount() != 1 {
		t.Fatalf("expected exactly one store call, got %d", v.callCount())
	}
}

func TestPipelineCancelDiscardsInFlightCompletion(t *testing.T) {
	v := newStubValidator("UID-1-abc")
	v.release = make(chan struct{})
	v.entered = make(chan struct{}, 1)
	p := NewPipeline(v, stubDecoder{}, nil)

	done := make(chan ValidationResult, 1)
	go func() {
		res, _ := p.SubmitManual(context.Background(), "UID-1-abc")
		done <- res
	}()
	<-v.entered

	p.Cancel()
	if p.State() != StateIdle {
		t.Fatalf("expected idle after cancel, got %s", p.State())
	}
	close(v.release)

	res := <-done
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %+v", res)
	}
	if snap := p.Snapshot(); snap.State != StateIdle || snap.Credential != nil {
		t.Fatalf("stale completion must not change state, got %+v", snap)
	}
}

func TestEventRecorderKeepsMostRecent(t *testing.T) {
	rec := NewEventRecorder(2)
	rec.StateChanged(StateIdle, StateValidating)
	rec.ValidationRejected(&RejectedError{Reason: ReasonNotFound})
	rec.StateChanged(StateRejected, StateIdle)

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Reason != ReasonNotFound || events[1].To != StateIdle {
		t.Fatalf("unexpected events %+v", events)
	}
}

// gatedObserver holds the delivery of one transition until released.
type gatedObserver struct {
	mu      sync.Mutex
	events  []string
	holdOn  [2]PipelineState
	held    chan struct{}
	release chan struct{}
}

func (o *gatedObserver) StateChanged(from, to PipelineState) {
	if [2]PipelineState{from, to} == o.holdOn {
		o.held <- struct{}{}
		<-o.release
	}
	o.record(string(from) + "->" + string(to))
}

func (o *gatedObserver) ValidationSucceeded(c domain.Credential, _ bool) {
	o.record("success:" + c.UniqueID)
}

func (o *gatedObserver) ValidationRejected(reason error) {
	o.record("rejected:" + rejectionReason(reason))
}

func (o *gatedObserver) record(ev string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func TestPipelineCancelDuringDeliveryKeepsObserverOrder(t *testing.T) {
	obs := &gatedObserver{
		holdOn:  [2]PipelineState{StateValidating, StateValidated},
		held:    make(chan struct{}),
		release: make(chan struct{}),
	}
	p := NewPipeline(newStubValidator("UID-1"), stubDecoder{}, obs)

	done := make(chan ValidationResult, 1)
	go func() {
		res, _ := p.SubmitManual(context.Background(), "UID-1")
		done <- res
	}()

	select {
	case <-obs.held:
	case <-time.After(2 * time.Second):
		t.Fatal("validation never reached the observer")
	}
	cancelled := make(chan struct{})
	go func() {
		p.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel blocked behind observer delivery")
	}
	close(obs.release)

	select {
	case res := <-done:
		if res.Outcome != OutcomeSuccess {
			t.Fatalf("expected success, got %s", res.Outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return")
	}

	want := []string{"idle->validating", "validating->validated", "success:UID-1", "validated->idle"}
	obs.mu.Lock()
	got := append([]string(nil), obs.events...)
	obs.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if p.State() != StateIdle {
		t.Fatalf("expected idle after cancel, got %s", p.State())
	}
}
