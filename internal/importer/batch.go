package importer

// batch.go partitions validated records into size-bounded batches and hands
// each batch to the record sink, merging downstream-reported outcomes with
// local failure detection.
//
// A transport failure fails every record in that batch and nothing else:
// prior and subsequent batches are unaffected. When the downstream response
// reports failures but its error list length does not match the failed
// count, the batch is flagged with ErrAmbiguousBatchErrors rather than
// guessing positional alignment.

import (
	"context"
	"sync"
)

// DefaultBatchSize is the number of records submitted per batch.
const DefaultBatchSize = 10

// Submitter submits valid records to a Sink in ordered batches.
type Submitter struct {
	// BatchSize is the maximum records per batch; 0 means DefaultBatchSize.
	BatchSize int
	// Workers bounds concurrent in-flight batches; 0 or 1 means strictly
	// sequential submission. Batches share no mutable state, so concurrent
	// submission does not affect report correctness.
	Workers int
	// OnProgress, when set, is invoked with running totals after each batch.
	OnProgress func(Progress)
}

// Submit partitions records into contiguous batches and submits them,
// returning aggregated progress and one outcome per attempted record in
// original row order. When ctx is cancelled, no further batches are
// started; records in unattempted batches yield no outcomes and batches
// already accepted downstream stay accepted.
func (s *Submitter) Submit(ctx context.Context, records []ValidatedRecord, sink Sink) (Progress, []SubmissionOutcome) {
	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var batches [][]ValidatedRecord
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}

	progress := Progress{Total: len(records)}
	results := make([][]SubmissionOutcome, len(batches))

	if s.Workers <= 1 {
		for i, batch := range batches {
			if ctx.Err() != nil {
				break
			}
			results[i] = submitBatch(ctx, batch, sink)
			s.account(&progress, results[i], nil)
		}
	} else {
		s.submitConcurrent(ctx, batches, sink, results, &progress)
	}

	var outcomes []SubmissionOutcome
	for _, r := range results {
		outcomes = append(outcomes, r...)
	}
	return progress, outcomes
}

// submitConcurrent runs a bounded worker pool over independent batches.
// Outcomes land in per-batch slots so workers never race on ordering;
// running totals are accumulated under a single mutex.
func (s *Submitter) submitConcurrent(ctx context.Context, batches [][]ValidatedRecord, sink Sink, results [][]SubmissionOutcome, progress *Progress) {
	workers := min(s.Workers, len(batches))

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		next = make(chan int)
	)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range next {
				outcomes := submitBatch(ctx, batches[i], sink)
				results[i] = outcomes
				s.account(progress, outcomes, &mu)
			}
		}()
	}

	for i := range batches {
		if ctx.Err() != nil {
			break
		}
		next <- i
	}
	close(next)
	wg.Wait()
}

// account folds one batch's outcomes into the running totals.
func (s *Submitter) account(progress *Progress, outcomes []SubmissionOutcome, mu *sync.Mutex) {
	if mu != nil {
		mu.Lock()
	}
	progress.Processed += len(outcomes)
	for _, o := range outcomes {
		if o.Success {
			progress.Successful++
		} else {
			progress.Failed++
		}
	}
	snapshot := *progress
	if mu != nil {
		mu.Unlock()
	}
	if s.OnProgress != nil {
		s.OnProgress(snapshot)
	}
}

// submitBatch submits one batch and merges the response into per-record
// outcomes. Every record in the batch yields exactly one outcome.
func submitBatch(ctx context.Context, batch []ValidatedRecord, sink Sink) []SubmissionOutcome {
	outcomes := make([]SubmissionOutcome, len(batch))

	result, err := sink.SubmitBatch(ctx, batch)
	if err != nil {
		// Batch-level failure must not silently drop rows from the report.
		for i, rec := range batch {
			outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Error: err.Error()}
		}
		return outcomes
	}

	switch {
	case result.Failed <= 0:
		for i, rec := range batch {
			outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Success: true}
		}

	case errorsEchoRows(result.Errors):
		// Exact attribution: the sink echoed the row index of each failure.
		byRow := make(map[int]string, len(result.Errors))
		for _, e := range result.Errors {
			byRow[e.Row] = e.Message
		}
		for i, rec := range batch {
			if msg, failed := byRow[rec.RowIndex]; failed {
				outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Error: msg}
			} else {
				outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Success: true}
			}
		}

	case len(result.Errors) == result.Failed:
		// Legacy contract: the error list aligns positionally with the
		// batch, in submission order.
		for i, rec := range batch {
			if i < len(result.Errors) {
				outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Error: result.Errors[i].Message}
			} else {
				outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Success: true}
			}
		}

	default:
		// Failed and error counts disagree. Guessing alignment here would
		// misattribute errors, so the whole batch is reported failed with
		// an explicit ambiguity condition.
		for i, rec := range batch {
			outcomes[i] = SubmissionOutcome{RowIndex: rec.RowIndex, Error: ErrAmbiguousBatchErrors.Error()}
		}
	}

	return outcomes
}

// errorsEchoRows reports whether every downstream error carries a row echo.
func errorsEchoRows(errs []BatchError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if e.Row == 0 {
			return false
		}
	}
	return true
}

// ValidOnly filters records to the submittable subset, preserving order.
func ValidOnly(records []ValidatedRecord) []ValidatedRecord {
	var valid []ValidatedRecord
	for _, r := range records {
		if r.IsValid {
			valid = append(valid, r)
		}
	}
	return valid
}
