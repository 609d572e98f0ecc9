package enricher

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
)

// ProfileFetcher fetches a detailed profile
type ProfileFetcher interface {
	GetProfile(ctx context.Context, actor string) (*models.Account, error)
}

// Job asks for the profile of the account at Index
type Job struct {
	Index int
	Actor string
}

// Result represents the result of a profile job
type Result struct {
	Job      Job
	Profile  *models.Account
	Error    error
	Duration time.Duration
}

// WorkerPool fetches profiles concurrently
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     ProfileFetcher
	rateLimiter ratelimit.Limiter
	delay       time.Duration
	clock       ratelimit.Clock
	logger      logger.Logger
}

// Config holds pool settings
type Config struct {
	Workers int
	// Delay is slept by a worker after each fetch
	Delay       time.Duration
	RateLimiter ratelimit.Limiter
	Clock       ratelimit.Clock
	Logger      logger.Logger
}

// NewWorkerPool creates a new profile worker pool bound to ctx
func NewWorkerPool(ctx context.Context, fetcher ProfileFetcher, cfg Config) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = ratelimit.RealClock{}
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = ratelimit.Unlimited{}
	}

	return &WorkerPool{
		numWorkers:  cfg.Workers,
		jobQueue:    make(chan Job, cfg.Workers*2),
		resultQueue: make(chan Result, cfg.Workers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		rateLimiter: cfg.RateLimiter,
		delay:       cfg.Delay,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting profile worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for workers and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit adds a new job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			return
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}

		if err := ratelimit.Sleep(wp.ctx, wp.clock, wp.delay); err != nil {
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := wp.clock.Now()
	result := Result{Job: job}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = err
		return result
	}

	profile, err := wp.fetcher.GetProfile(wp.ctx, job.Actor)
	result.Duration = wp.clock.Now().Sub(start)
	if err != nil {
		result.Error = fmt.Errorf("profile fetch failed: %w", err)
		wp.logger.WarnWithFields("Worker failed to fetch profile", map[string]interface{}{
			"worker_id": workerID,
			"actor":     job.Actor,
			"error":     err.Error(),
		})
		return result
	}

	result.Profile = profile
	return result
}

// Enrich fetches the profile of every account and copies its counters in
// place. Failed fetches leave the counters untouched. progress receives
// the rounded completion percentage after each result. Returns the number
// of accounts enriched.
func Enrich(ctx context.Context, accounts []models.Account, fetcher ProfileFetcher, cfg Config, progress func(int)) (int, error) {
	if len(accounts) == 0 {
		return 0, nil
	}
	if progress == nil {
		progress = func(int) {}
	}

	pool := NewWorkerPool(ctx, fetcher, cfg)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, a := range accounts {
			actor := a.DID
			if actor == "" {
				actor = a.Handle
			}
			if err := pool.Submit(Job{Index: i, Actor: actor}); err != nil {
				return
			}
		}
	}()

	total := len(accounts)
	done, enriched := 0, 0
	for result := range pool.Results() {
		done++
		if result.Error == nil && result.Profile != nil {
			a := &accounts[result.Job.Index]
			a.FollowsCount = result.Profile.FollowsCount
			a.FollowersCount = result.Profile.FollowersCount
			a.PostsCount = result.Profile.PostsCount
			a.Enriched = true
			enriched++
		}
		progress(int(math.Round(float64(done) / float64(total) * 100)))
	}

	pool.logger.InfoWithFields("Profile enrichment finished", map[string]interface{}{
		"total":    total,
		"enriched": enriched,
		"failed":   done - enriched,
	})

	if err := ctx.Err(); err != nil {
		return enriched, err
	}
	return enriched, nil
}
