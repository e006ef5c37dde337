package importer

// session.go is the stateful coordinator of one import attempt. All other
// components in this package are pure functions over their inputs; the
// session owns the pipeline state and exposes transition methods only.
//
// Legal transitions:
//
//	CollectingInput -> Mapping      (source parsed, auto-mapping applied)
//	Mapping         -> CollectingInput (back)
//	Mapping         -> Previewing   (confirm: validates every row)
//	Previewing      -> Mapping      (back: discards validated records)
//	Previewing      -> Processing   (confirm, needs >= 1 valid record)
//	Processing      -> Complete     (automatic when submission returns)
//	Complete        -> CollectingInput (reset / acknowledgement)
//
// Anything else is rejected with a TransitionError. While a submission is
// in flight the session stays in Processing and rejects all transitions.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexcrm/importer/internal/schema"
)

// State identifies the current pipeline stage of a session.
type State string

const (
	StateCollectingInput State = "collecting_input"
	StateMapping         State = "mapping"
	StatePreviewing      State = "previewing"
	StateProcessing      State = "processing"
	StateComplete        State = "complete"
)

func (s State) String() string { return string(s) }

// Session orchestrates one import attempt for one principal.
type Session struct {
	ID        string
	Principal string
	CreatedAt time.Time

	mu       sync.Mutex
	state    State
	source   *Source
	mapping  ColumnMapping
	records  []ValidatedRecord
	progress Progress
	outcomes []SubmissionOutcome
	cancel   context.CancelFunc
}

// Snapshot is an immutable view of session state for rendering.
type Snapshot struct {
	ID              string
	State           State
	FileName        string
	Headers         []string
	Mapping         ColumnMapping
	MappingWarnings []string
	TotalRows       int
	ValidRows       int
	InvalidRows     int
	Records         []ValidatedRecord
	Progress        Progress
	Outcomes        []SubmissionOutcome
}

// NewSession creates a session in the CollectingInput state.
func NewSession(principal string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Principal: principal,
		CreatedAt: time.Now(),
		state:     StateCollectingInput,
	}
}

// LoadSource parses an uploaded file and, on success, moves the session to
// Mapping with an auto-generated column mapping. Input errors (empty
// source, unsupported format, too large) leave the session in
// CollectingInput; the caller must supply a new source.
func (s *Session) LoadSource(fileName, contentType string, data []byte, opts SourceOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollectingInput {
		return &TransitionError{From: s.state, To: StateMapping}
	}

	src, err := ParseSource(fileName, contentType, data, opts)
	if err != nil {
		return err
	}

	s.source = src
	s.mapping = AutoMap(src.Headers, schema.Fields())
	s.state = StateMapping
	return nil
}

// SetColumnMapping overrides one mapping entry. Only legal in Mapping.
func (s *Session) SetColumnMapping(header, targetKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateMapping {
		return &TransitionError{From: s.state, To: StateMapping}
	}
	if _, ok := s.mapping[header]; !ok {
		return &TransitionError{From: s.state, To: StateMapping}
	}
	s.mapping = SetMapping(s.mapping, header, targetKey)
	return nil
}

// ConfirmMapping validates every raw row under the current mapping and
// moves to Previewing. Validation failures are data, not state-machine
// errors: this transition always succeeds from Mapping.
func (s *Session) ConfirmMapping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateMapping {
		return &TransitionError{From: s.state, To: StatePreviewing}
	}

	s.records = ValidateRows(s.source.Rows, s.mapping, schema.Fields())
	s.state = StatePreviewing
	return nil
}

// Back navigates one step backwards. Previewing returns to Mapping and
// discards validated records (they must be regenerated if the mapping
// changes); Mapping returns to CollectingInput and discards the source.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePreviewing:
		s.records = nil
		s.state = StateMapping
		return nil
	case StateMapping:
		s.source = nil
		s.mapping = nil
		s.state = StateCollectingInput
		return nil
	default:
		return &TransitionError{From: s.state, To: StateMapping}
	}
}

// Submit moves Previewing -> Processing, runs the submitter over the valid
// subset, and lands in Complete. It is rejected with ErrNoValidRecords when
// nothing passed validation. The call blocks until submission finishes;
// progress is readable concurrently via Snapshot. Cancelling ctx stops new
// batches without undoing batches already accepted downstream.
func (s *Session) Submit(ctx context.Context, submitter *Submitter, sink Sink) error {
	s.mu.Lock()
	if s.state != StatePreviewing {
		s.mu.Unlock()
		return &TransitionError{From: s.state, To: StateProcessing}
	}

	valid := ValidOnly(s.records)
	if len(valid) == 0 {
		s.mu.Unlock()
		return ErrNoValidRecords
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateProcessing
	s.progress = Progress{Total: len(valid)}
	s.mu.Unlock()

	defer cancel()

	// Progress updates flow through a single accumulation point; the
	// submitter already serializes them, the session lock protects reads.
	inner := submitter.OnProgress
	wrapped := *submitter
	wrapped.OnProgress = func(p Progress) {
		s.mu.Lock()
		s.progress = p
		s.mu.Unlock()
		if inner != nil {
			inner(p)
		}
	}

	progress, outcomes := wrapped.Submit(subCtx, valid, sink)

	s.mu.Lock()
	s.progress = progress
	s.outcomes = outcomes
	s.cancel = nil
	s.state = StateComplete
	s.mu.Unlock()
	return nil
}

// Cancel stops an in-flight submission. Batches already accepted by the
// downstream service stay accepted; unsubmitted batches are never attempted.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset wipes all state and returns to CollectingInput. Rejected while a
// submission is in flight; cancel first.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateProcessing {
		return &TransitionError{From: s.state, To: StateCollectingInput}
	}

	s.source = nil
	s.mapping = nil
	s.records = nil
	s.progress = Progress{}
	s.outcomes = nil
	s.state = StateCollectingInput
	return nil
}

// State returns the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:       s.ID,
		State:    s.state,
		Progress: s.progress,
	}

	if s.source != nil {
		snap.FileName = s.source.FileName
		snap.Headers = append([]string(nil), s.source.Headers...)
		snap.TotalRows = len(s.source.Rows)
	}
	if s.mapping != nil {
		snap.Mapping = make(ColumnMapping, len(s.mapping))
		for h, k := range s.mapping {
			snap.Mapping[h] = k
		}
		snap.MappingWarnings = ValidateCompleteness(s.mapping, schema.Fields())
	}
	if s.records != nil {
		snap.Records = append([]ValidatedRecord(nil), s.records...)
		for _, r := range s.records {
			if r.IsValid {
				snap.ValidRows++
			} else {
				snap.InvalidRows++
			}
		}
	}
	if s.outcomes != nil {
		snap.Outcomes = append([]SubmissionOutcome(nil), s.outcomes...)
	}
	return snap
}
