package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xhsclient/pkg/logger"
	"xhsclient/pkg/ratelimit"
	"xhsclient/pkg/xhs"
)

// Job asks for up to Num comments of one note
type Job struct {
	NoteID    string
	XsecToken string
	Num       int
}

// Result is the outcome of one Job
type Result struct {
	Job      Job
	Comments []xhs.Comment
	// Skipped is set when the sink already held this note's comments
	Skipped  bool
	Error    error
	Duration time.Duration
}

// CommentFetcher collects a note's comments. *xhs.Client implements it.
type CommentFetcher interface {
	NoteComments(ctx context.Context, noteID, xsecToken string, num int, opts ...xhs.CollectOption) ([]xhs.Comment, error)
}

// Sink persists finished jobs and reports which notes are already done
type Sink interface {
	Done(noteID string) bool
	Save(noteID string, comments []xhs.Comment) error
}

// Pool fetches comments for many notes with a fixed number of workers.
// Jobs start no faster than the limiter allows.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     CommentFetcher
	sink        Sink
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewPool creates a pool bound to ctx. A nil sink keeps results only on the
// result channel; a nil limiter means no pacing beyond the client's own.
func NewPool(ctx context.Context, numWorkers int, fetcher CommentFetcher, sink Sink, limiter ratelimit.Limiter, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		sink:        sink,
		rateLimiter: limiter,
		logger:      log.WithField("component", "batch"),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop waits for queued jobs to finish, then closes the result channel
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()
	p.logger.Info("Worker pool stopped")
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	if job.NoteID == "" {
		return fmt.Errorf("note id is required")
	}
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Job submitted", map[string]interface{}{"note_id": job.NoteID})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Results delivers one Result per submitted job, including jobs abandoned
// after cancellation. It must be drained until closed or Stop blocks.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if err := p.ctx.Err(); err != nil {
			p.resultQueue <- Result{Job: job, Error: fmt.Errorf("not started: %w", err)}
			continue
		}
		p.resultQueue <- p.processJob(job, id)
	}
}

func (p *Pool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	fields := map[string]interface{}{
		"worker_id": workerID,
		"note_id":   job.NoteID,
	}

	if p.sink != nil && p.sink.Done(job.NoteID) {
		p.logger.DebugWithFields("Comments already saved", fields)
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if err := p.rateLimiter.Wait(p.ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		logger.LogRateLimit(p.logger, "notes_per_minute", waited)
	}

	comments, err := p.fetcher.NoteComments(p.ctx, job.NoteID, job.XsecToken, job.Num)
	result.Comments = comments
	if err != nil {
		result.Error = fmt.Errorf("fetch failed: %w", err)
		result.Duration = time.Since(start)
		p.logger.WithError(err).WarnWithFields("Worker failed to fetch comments", fields)
		return result
	}

	if p.sink != nil {
		if err := p.sink.Save(job.NoteID, comments); err != nil {
			result.Error = fmt.Errorf("save failed: %w", err)
			result.Duration = time.Since(start)
			p.logger.WithError(err).ErrorWithFields("Worker failed to save comments", fields)
			return result
		}
	}

	result.Duration = time.Since(start)
	fields["comments"] = len(comments)
	fields["duration"] = result.Duration
	p.logger.DebugWithFields("Worker completed job", fields)
	return result
}

// Run submits every job, waits for all of them and returns the results in
// completion order. Jobs that could not be queued are reported last with
// their error.
func Run(ctx context.Context, numWorkers int, fetcher CommentFetcher, sink Sink, limiter ratelimit.Limiter, log logger.Logger, jobs []Job) []Result {
	pool := NewPool(ctx, numWorkers, fetcher, sink, limiter, log)
	pool.Start()

	results := make([]Result, 0, len(jobs))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			results = append(results, r)
		}
	}()

	var rejected []Result
	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			rejected = append(rejected, Result{Job: job, Error: err})
		}
	}
	pool.Stop()
	<-done

	return append(results, rejected...)
}
