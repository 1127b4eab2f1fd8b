package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/influence-diffusion/pkg/config"
	"github.com/gilchrisn/influence-diffusion/pkg/experiment"
	"github.com/gilchrisn/influence-diffusion/pkg/graph"
	"github.com/gilchrisn/influence-diffusion/pkg/metrics"
	"github.com/gilchrisn/influence-diffusion/pkg/models"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotFinished    = errors.New("job not finished")
	ErrInvalidParameters = errors.New("invalid parameters")
)

const defaultMeanDegree = 1.5
const defaultGamma = 2.5

// JobService runs comparison jobs in the background
type JobService struct {
	jobs     map[string]*models.Job
	cancels  map[string]context.CancelFunc
	store    ResultStore
	workers  chan struct{}
	cfg      config.JobConfig
	defaults config.DefaultsConfig
	mutex    sync.RWMutex

	ctx    context.Context
	stop   context.CancelFunc
	active sync.WaitGroup
}

// NewJobService creates a job service and starts its cleanup loop
func NewJobService(cfg config.JobConfig, defaults config.DefaultsConfig, store ResultStore) *JobService {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, stop := context.WithCancel(context.Background())

	service := &JobService{
		jobs:     make(map[string]*models.Job),
		cancels:  make(map[string]context.CancelFunc),
		store:    store,
		workers:  make(chan struct{}, maxWorkers),
		cfg:      cfg,
		defaults: defaults,
		ctx:      ctx,
		stop:     stop,
	}

	if cfg.CleanupInterval > 0 {
		go service.cleanupLoop()
	}

	return service
}

// jobPlan is a validated job request
type jobPlan struct {
	graphs     []models.GraphSpec
	strategies []experiment.Strategy
	params     experiment.ComparisonParams
}

// Submit validates params, fills in defaults and queues a new job
func (s *JobService) Submit(params models.JobParameters) (*models.Job, error) {
	plan, resolved, err := s.resolve(params)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()
	job := &models.Job{
		ID:         jobID,
		Parameters: resolved,
		Status:     models.JobStatusQueued,
		Progress: models.JobProgress{
			Percentage: 0,
			Message:    "Queued",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if s.cfg.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.cfg.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}

	s.mutex.Lock()
	s.jobs[jobID] = job
	s.cancels[jobID] = cancel
	snapshot := *job
	s.mutex.Unlock()

	log.Info().
		Str("job_id", jobID).
		Int("graphs", len(plan.graphs)).
		Int("strategies", len(plan.strategies)).
		Int("trials", plan.params.Repeat.Trials).
		Msg("Job submitted")

	s.active.Add(1)
	go s.processJob(ctx, jobID, plan)

	return &snapshot, nil
}

// Get retrieves a copy of a job by ID
func (s *JobService) Get(jobID string) (*models.Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	snapshot := *job
	return &snapshot, nil
}

// GetResult retrieves the full comparison of a completed job
func (s *JobService) GetResult(ctx context.Context, jobID string) (*experiment.Comparison, error) {
	job, err := s.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotFinished, jobID, job.Status)
	}
	return s.store.Load(ctx, jobID)
}

// List returns all jobs, oldest first
func (s *JobService) List() []*models.Job {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Cancel cancels a queued or running job
func (s *JobService) Cancel(jobID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status.Finished() {
		return nil
	}

	job.Status = models.JobStatusCancelled
	job.Progress.Message = "Cancelled"
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now

	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
	metrics.JobsTotal.WithLabelValues(string(models.JobStatusCancelled)).Inc()

	log.Info().
		Str("job_id", jobID).
		Msg("Job cancelled")

	return nil
}

// ActiveJobs counts queued and running jobs
func (s *JobService) ActiveJobs() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	for _, job := range s.jobs {
		if !job.Status.Finished() {
			active++
		}
	}
	return active
}

// StoreBackend names the result store in use
func (s *JobService) StoreBackend() string {
	return s.store.Backend()
}

// Close cancels every unfinished job, waits for the workers and closes the
// result store.
func (s *JobService) Close() error {
	s.stop()
	s.active.Wait()
	return s.store.Close()
}

// processJob runs a job in the background
func (s *JobService) processJob(ctx context.Context, jobID string, plan jobPlan) {
	defer s.active.Done()
	defer s.releaseCancel(jobID)

	// Acquire worker slot
	select {
	case s.workers <- struct{}{}:
	case <-ctx.Done():
		s.failJob(jobID, fmt.Errorf("job did not start: %w", ctx.Err()))
		return
	}
	defer func() { <-s.workers }()

	if !s.startJob(jobID) {
		return
	}

	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()
	startTime := time.Now()

	log.Info().
		Str("job_id", jobID).
		Msg("Job processing started")

	s.updateJobStatus(jobID, 0, "Generating graphs")
	graphs, err := BuildGraphs(plan.graphs, plan.params.Repeat.Seed)
	if err != nil {
		s.failJob(jobID, fmt.Errorf("failed to build graphs: %w", err))
		return
	}

	status := func(percentage int, message string) {
		s.updateJobStatus(jobID, percentage, message)
	}
	logger := log.Logger.With().Str("job_id", jobID).Logger()

	result, err := experiment.Compare(ctx, graphs, plan.strategies, plan.params, logger, status)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("job timed out after %s: %w", s.cfg.JobTimeout, err)
		}
		s.failJob(jobID, err)
		metrics.JobDuration.WithLabelValues(string(models.JobStatusFailed)).Observe(time.Since(startTime).Seconds())
		return
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Save(saveCtx, jobID, result); err != nil {
		s.failJob(jobID, fmt.Errorf("failed to store result: %w", err))
		return
	}

	s.completeJob(jobID, result)
	metrics.JobDuration.WithLabelValues(string(models.JobStatusCompleted)).Observe(time.Since(startTime).Seconds())
}

// BuildGraphs generates the networks of a job. Graph sources are derived
// from the complemented seed so they never coincide with a trial source.
func BuildGraphs(specs []models.GraphSpec, seed uint64) ([]experiment.NamedGraph, error) {
	graphs := make([]experiment.NamedGraph, 0, len(specs))
	seen := make(map[string]int)

	for i, spec := range specs {
		src := rand.NewPCG(^seed, uint64(i))

		var g *graph.Graph
		var err error
		switch spec.Type {
		case models.GraphErdosRenyi:
			g, err = graph.ErdosRenyi(spec.Nodes, math.Min(1, *spec.MeanDegree/float64(spec.Nodes)), src)
		case models.GraphPowerLaw:
			g, err = graph.PowerLaw(spec.Nodes, *spec.Gamma, src)
		default:
			err = fmt.Errorf("unknown graph type %q", spec.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("graph %d: %w", i, err)
		}

		name := fmt.Sprintf("%s_n%d", spec.Type, spec.Nodes)
		if seen[name]++; seen[name] > 1 {
			name = fmt.Sprintf("%s_%d", name, seen[name])
		}
		graphs = append(graphs, experiment.NamedGraph{Name: name, Graph: g})
	}
	return graphs, nil
}

// resolve validates a request and returns its plan and the parameters with
// every default filled in
func (s *JobService) resolve(params models.JobParameters) (jobPlan, models.JobParameters, error) {
	invalid := func(format string, args ...interface{}) (jobPlan, models.JobParameters, error) {
		return jobPlan{}, models.JobParameters{}, fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
	}

	if len(params.Graphs) == 0 {
		return invalid("at least one graph is required")
	}
	graphs := make([]models.GraphSpec, len(params.Graphs))
	for i, spec := range params.Graphs {
		if spec.Nodes < 1 || (s.cfg.MaxNodes > 0 && spec.Nodes > s.cfg.MaxNodes) {
			return invalid("graph %d: nodes must be in [1, %d], got %d", i, s.cfg.MaxNodes, spec.Nodes)
		}
		switch spec.Type {
		case models.GraphErdosRenyi:
			spec.Gamma = nil
			spec.MeanDegree = floatOr(spec.MeanDegree, defaultMeanDegree)
			if *spec.MeanDegree < 0 || math.IsNaN(*spec.MeanDegree) {
				return invalid("graph %d: mean degree must be non-negative", i)
			}
		case models.GraphPowerLaw:
			spec.MeanDegree = nil
			spec.Gamma = floatOr(spec.Gamma, defaultGamma)
			if !(*spec.Gamma > 1) {
				return invalid("graph %d: gamma must be greater than 1", i)
			}
		default:
			return invalid("graph %d: unknown type %q", i, spec.Type)
		}
		graphs[i] = spec
	}

	names := params.Strategies
	if len(names) == 0 {
		for _, strategy := range experiment.Strategies() {
			names = append(names, string(strategy))
		}
	}
	strategies := make([]experiment.Strategy, 0, len(names))
	for _, name := range names {
		strategy, err := experiment.ParseStrategy(name)
		if err != nil {
			return invalid("%v", err)
		}
		strategies = append(strategies, strategy)
	}

	tMax := intOr(params.TMax, s.defaults.TMax)
	p := floatOr(params.P, s.defaults.P)
	infected := intOr(params.Infected, s.defaults.Infected)
	vaccinated := intOr(params.Vaccinated, s.defaults.Vaccinated)
	trials := intOr(params.Trials, s.defaults.Trials)
	seed := params.Seed
	if seed == nil {
		value := uint64(time.Now().UnixNano())
		seed = &value
	}

	switch {
	case *tMax < 0:
		return invalid("tMax must be non-negative, got %d", *tMax)
	case !(*p >= 0 && *p <= 1):
		return invalid("p must be in [0, 1], got %v", *p)
	case *infected < 0 || *vaccinated < 0:
		return invalid("group sizes must be non-negative")
	case *trials < 1 || (s.cfg.MaxTrials > 0 && *trials > s.cfg.MaxTrials):
		return invalid("trials must be in [1, %d], got %d", s.cfg.MaxTrials, *trials)
	}

	plan := jobPlan{
		graphs:     graphs,
		strategies: strategies,
		params: experiment.ComparisonParams{
			Infected:   *infected,
			Vaccinated: *vaccinated,
			Repeat: experiment.RepeatConfig{
				TMax:    *tMax,
				P:       *p,
				Trials:  *trials,
				Workers: s.cfg.TrialWorkers,
				Seed:    *seed,
			},
		},
	}
	resolved := models.JobParameters{
		Graphs:     graphs,
		Strategies: names,
		TMax:       tMax,
		P:          p,
		Infected:   infected,
		Vaccinated: vaccinated,
		Trials:     trials,
		Seed:       seed,
	}
	return plan, resolved, nil
}

func intOr(value *int, fallback int) *int {
	if value != nil {
		v := *value
		return &v
	}
	return &fallback
}

func floatOr(value *float64, fallback float64) *float64 {
	if value != nil {
		v := *value
		return &v
	}
	return &fallback
}

// startJob moves a queued job to running. It returns false when the job was
// cancelled while waiting for a worker.
func (s *JobService) startJob(jobID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusQueued {
		return false
	}

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.Progress.Message = "Starting..."
	job.StartedAt = &now
	job.UpdatedAt = now
	return true
}

// updateJobStatus updates the progress of a running job
func (s *JobService) updateJobStatus(jobID string, percentage int, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusRunning {
		return
	}

	job.Progress.Percentage = percentage
	job.Progress.Message = message
	job.UpdatedAt = time.Now()

	log.Debug().
		Str("job_id", jobID).
		Int("percentage", percentage).
		Str("message", message).
		Msg("Job status updated")
}

// completeJob marks a job as completed with its summary
func (s *JobService) completeJob(jobID string, result *experiment.Comparison) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status.Finished() {
		return
	}

	cells := make([]models.CellSummary, len(result.Cells))
	for i, cell := range result.Cells {
		cells[i] = models.CellSummary{
			Graph:         cell.Graph,
			Strategy:      string(cell.Strategy),
			FinalInfected: cell.FinalInfected,
		}
	}

	job.Status = models.JobStatusCompleted
	job.Progress.Percentage = 100
	job.Progress.Message = "Complete"
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.Result = &models.JobResult{
		Cells:            cells,
		ProcessingTimeMS: result.RuntimeMS,
	}
	metrics.JobsTotal.WithLabelValues(string(models.JobStatusCompleted)).Inc()

	log.Info().
		Str("job_id", jobID).
		Int("cells", len(cells)).
		Int64("processing_time_ms", result.RuntimeMS).
		Msg("Job completed successfully")
}

// failJob marks a job as failed unless it already finished
func (s *JobService) failJob(jobID string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status.Finished() {
		return
	}

	job.Status = models.JobStatusFailed
	job.Error = err.Error()
	job.Progress.Message = "Failed"
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	metrics.JobsTotal.WithLabelValues(string(models.JobStatusFailed)).Inc()

	log.Error().
		Str("job_id", jobID).
		Err(err).
		Msg("Job failed")
}

func (s *JobService) releaseCancel(jobID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
		delete(s.cancels, jobID)
	}
}

// cleanupLoop periodically cleans up old jobs and results
func (s *JobService) cleanupLoop() {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanup removes finished jobs last updated before now minus the result TTL
func (s *JobService) cleanup(now time.Time) int {
	s.mutex.Lock()
	cutoff := now.Add(-s.cfg.ResultTTL)
	var expired []string
	for jobID, job := range s.jobs {
		if job.Status.Finished() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, jobID)
			expired = append(expired, jobID)
		}
	}
	s.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, jobID := range expired {
		if err := s.store.Delete(ctx, jobID); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to delete stored result")
		}
	}
	if memory, ok := s.store.(*MemoryStore); ok {
		memory.Sweep()
	}

	if len(expired) > 0 {
		log.Info().
			Int("cleaned_jobs", len(expired)).
			Msg("Job cleanup completed")
	}
	return len(expired)
}
