package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/utils"
)

// LocalEncoder performs a single synchronous, blocking encode call for a
// flattened batch of texts. Implementations back the in-process local-GPU
// embedding path; the scheduler is responsible for keeping this call off
// its own event loop.
type LocalEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// TokenCounter is an optional capability a LocalEncoder can implement to
// provide an exact per-text token count for the scheduler's token budget.
// Encoders that don't implement it fall back to a character-count heuristic.
type TokenCounter interface {
	CountTokens(text string) int
}

// SchedulerConfig configures batch collection.
type SchedulerConfig struct {
	MaxBatchSize    int
	MaxWaitTime     time.Duration
	MaxBatchTokens  int // 0 disables the token budget
	EncodeBatchSize int // stored only; LocalEncoder.Encode takes no options, so it is not passed to the encoder
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 32
	}
	if c.MaxWaitTime <= 0 {
		c.MaxWaitTime = 100 * time.Millisecond
	}
	return c
}

type batchRequest struct {
	texts   []string
	resultC chan batchResult
	arrival time.Time
}

type batchResult struct {
	embeddings [][]float32
	err        error
}

// Scheduler is the Dynamic Batch Scheduler: it coalesces concurrent Embed
// calls into fewer, larger LocalEncoder.Encode invocations. One instance
// owns one background collect-and-dispatch loop; deferred requests (pulled
// from the queue but unable to fit the current batch's token budget) are
// owned exclusively by that loop, so no locking is needed around them.
type Scheduler struct {
	encoder LocalEncoder
	cfg     SchedulerConfig
	queue   chan *batchRequest
	deferred []*batchRequest

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewScheduler builds and starts a Scheduler backed by encoder.
func NewScheduler(encoder LocalEncoder, cfg SchedulerConfig) *Scheduler {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		encoder: encoder,
		cfg:     cfg,
		queue:   make(chan *batchRequest, 1024),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Embed implements nlp.Embedder. An empty input returns immediately without
// touching the queue.
func (s *Scheduler) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := &batchRequest{
		texts:   texts,
		resultC: make(chan batchResult, 1),
		arrival: time.Now(),
	}

	select {
	case s.queue <- req:
	case <-ctx.Done():
		return nil, errs.NewCancelledError("embed request cancelled before queueing")
	case <-s.done:
		return nil, errs.NewCancelledError("scheduler is shut down")
	}

	select {
	case res := <-req.resultC:
		return res.embeddings, res.err
	case <-ctx.Done():
		return nil, errs.NewCancelledError("embed request cancelled while queued")
	case <-s.done:
		return nil, errs.NewCancelledError("scheduler shut down while request was in flight")
	}
}

func (s *Scheduler) Dim() int { return s.encoder.Dim() }

// Close shuts the scheduler down: the background loop stops, and any
// request still queued or mid-flight resolves with a cancellation error.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drainOnShutdown()
			return
		default:
		}

		func() {
			defer utils.RecoverWithCallback(func(err error) {
				slog.Error("batch scheduler iteration panicked", "error", err)
			})
			batch := s.collectBatch(ctx)
			if len(batch) == 0 {
				return
			}
			s.dispatch(batch)
		}()
	}
}

func (s *Scheduler) drainOnShutdown() {
	cancelled := errs.NewCancelledError("scheduler shutting down")
	for _, req := range s.deferred {
		req.resultC <- batchResult{err: cancelled}
	}
	s.deferred = nil
	for {
		select {
		case req := <-s.queue:
			req.resultC <- batchResult{err: cancelled}
		default:
			return
		}
	}
}

// collectBatch implements the five-step collection algorithm: take the
// first request (deferred head, else block on the queue); drain further
// deferred requests and then queued requests under the token budget;
// finally block with a timeout bounded by max_wait_time measured from the
// first request's arrival.
func (s *Scheduler) collectBatch(ctx context.Context) []*batchRequest {
	var first *batchRequest
	if len(s.deferred) > 0 {
		first = s.deferred[0]
		s.deferred = s.deferred[1:]
	} else {
		select {
		case first = <-s.queue:
		case <-ctx.Done():
			return nil
		}
	}

	batch := []*batchRequest{first}
	budgeted := s.cfg.MaxBatchTokens > 0
	totalTokens := 0
	if budgeted {
		totalTokens = s.countTokens(first.texts)
	}

	for len(s.deferred) > 0 && len(batch) < s.cfg.MaxBatchSize {
		candidate := s.deferred[0]
		if budgeted {
			candTokens := s.countTokens(candidate.texts)
			if totalTokens+candTokens > s.cfg.MaxBatchTokens {
				break
			}
			totalTokens += candTokens
		}
		batch = append(batch, candidate)
		s.deferred = s.deferred[1:]
	}

nonBlockingDrain:
	for len(batch) < s.cfg.MaxBatchSize {
		select {
		case req := <-s.queue:
			if budgeted {
				reqTokens := s.countTokens(req.texts)
				if totalTokens+reqTokens > s.cfg.MaxBatchTokens {
					s.deferred = append(s.deferred, req)
					break nonBlockingDrain
				}
				totalTokens += reqTokens
			}
			batch = append(batch, req)
		default:
			break nonBlockingDrain
		}
	}

	if len(batch) >= s.cfg.MaxBatchSize {
		return batch
	}

waitWithTimeout:
	for len(batch) < s.cfg.MaxBatchSize {
		remaining := s.cfg.MaxWaitTime - time.Since(first.arrival)
		if remaining <= 0 {
			break
		}
		timer := time.NewTimer(remaining)
		select {
		case req := <-s.queue:
			timer.Stop()
			if budgeted {
				reqTokens := s.countTokens(req.texts)
				if totalTokens+reqTokens > s.cfg.MaxBatchTokens {
					s.deferred = append(s.deferred, req)
					break waitWithTimeout
				}
				totalTokens += reqTokens
			}
			batch = append(batch, req)
		case <-timer.C:
			break waitWithTimeout
		case <-ctx.Done():
			timer.Stop()
			break waitWithTimeout
		}
	}

	return batch
}

func (s *Scheduler) countTokens(texts []string) int {
	counter, ok := s.encoder.(TokenCounter)
	total := 0
	for _, t := range texts {
		if ok {
			total += counter.CountTokens(t)
		} else {
			total += len([]rune(t))
		}
	}
	return total
}

// dispatch flattens the batch, hands it to the encoder on a goroutine
// distinct from this loop, and slices the result back to each request's
// offset. A single encoder failure fails every request in the batch.
func (s *Scheduler) dispatch(batch []*batchRequest) {
	texts := make([]string, 0, len(batch))
	offsets := make([][2]int, len(batch))
	for i, req := range batch {
		start := len(texts)
		texts = append(texts, req.texts...)
		offsets[i] = [2]int{start, len(texts)}
	}

	type outcome struct {
		embeddings [][]float32
		err        error
	}
	resultCh := make(chan outcome, 1)

	utils.SafeGo(func() {
		embeddings, err := s.encoder.Encode(context.Background(), texts)
		resultCh <- outcome{embeddings: embeddings, err: err}
	}, func(err error) {
		resultCh <- outcome{err: err}
	})

	out := <-resultCh
	if out.err != nil {
		diag := fmt.Errorf("batch of %d requests (%d texts) failed: %w", len(batch), len(texts), out.err)
		for _, req := range batch {
			req.resultC <- batchResult{err: diag}
		}
		return
	}
	for i, req := range batch {
		start, end := offsets[i][0], offsets[i][1]
		req.resultC <- batchResult{embeddings: out.embeddings[start:end]}
	}
}
