package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/influence-diffusion/pkg/diffusion"
	"github.com/gilchrisn/influence-diffusion/pkg/metrics"
)

// ProgressCallback reports completed trials. With several workers it is
// called from concurrent goroutines.
type ProgressCallback func(done, total int)

// RepeatConfig holds the parameters shared by every trial of a batch
type RepeatConfig struct {
	TMax     int
	P        float64
	Trials   int
	Workers  int    // concurrent trials, values below 1 mean sequential
	Seed     uint64 // trial i draws from PCG(Seed, i)
	Progress ProgressCallback
}

// TrialSource returns the random generator of one trial. It depends only on
// the seed and the trial index, never on scheduling.
func TrialSource(seed uint64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(trial)))
}

// Repeat runs exp cfg.Trials times on network and returns the series of each
// trial at its index. Trials share the topology read-only and keep their node
// states private, so they may run concurrently. The first failing trial
// cancels the batch and its error is returned; no partial results are
// returned.
func Repeat(ctx context.Context, exp Experiment, network diffusion.Network, cfg RepeatConfig, logger zerolog.Logger) ([]diffusion.TimeSeries, error) {
	if exp == nil {
		return nil, fmt.Errorf("%w: nil experiment", diffusion.ErrInvalidArgument)
	}
	if cfg.Trials < 0 {
		return nil, fmt.Errorf("%w: negative trial count %d", diffusion.ErrInvalidArgument, cfg.Trials)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	logger.Info().
		Str("experiment", exp.Name()).
		Int("trials", cfg.Trials).
		Int("workers", workers).
		Int("t_max", cfg.TMax).
		Float64("p", cfg.P).
		Msg("Starting repeated experiment")

	startTime := time.Now()
	results := make([]diffusion.TimeSeries, cfg.Trials)
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for trial := 0; trial < cfg.Trials; trial++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			trialStart := time.Now()
			series, err := exp.Run(gctx, network, cfg.TMax, cfg.P, TrialSource(cfg.Seed, trial))
			metrics.TrialDuration.WithLabelValues(exp.Name()).Observe(time.Since(trialStart).Seconds())
			if err != nil {
				metrics.TrialsTotal.WithLabelValues(exp.Name(), "failed").Inc()
				return fmt.Errorf("trial %d: %w", trial, err)
			}
			metrics.TrialsTotal.WithLabelValues(exp.Name(), "succeeded").Inc()

			results[trial] = series
			done := int(completed.Add(1))
			logger.Debug().Int("trial", trial).Int("done", done).Msg("Trial completed")
			if cfg.Progress != nil {
				cfg.Progress(done, cfg.Trials)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Str("experiment", exp.Name()).Msg("Repeated experiment aborted")
		return nil, err
	}

	logger.Info().
		Str("experiment", exp.Name()).
		Int("trials", cfg.Trials).
		Int64("runtime_ms", time.Since(startTime).Milliseconds()).
		Msg("Repeated experiment completed")

	return results, nil
}
