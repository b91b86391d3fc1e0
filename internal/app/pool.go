package app

import (
	"context"
	"errors"
	"fmt"
	"qcl-datasheet/internal/domain"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Converter turns one rendered artifact into its final figure files.
type Converter interface {
	Convert(ctx context.Context, path string) ([]string, error)
}

// ConversionPool converts a batch of artifacts on a fixed number of workers.
type ConversionPool struct {
	logger    *zap.Logger
	converter Converter
	workers   int
}

func NewConversionPool(logger *zap.Logger, converter Converter, workers int) *ConversionPool {
	return &ConversionPool{
		logger:    logger,
		converter: converter,
		workers:   max(1, workers),
	}
}

// ConvertAll converts every path and returns once all jobs have finished.
// Results are in input order. A failed job does not stop the others; every
// failure is part of the joined error. Jobs not started before ctx is done
// carry ctx.Err().
func (p *ConversionPool) ConvertAll(ctx context.Context, paths []string) ([]domain.ConversionResult, error) {
	results := make([]domain.ConversionResult, len(paths))
	index := make(map[uuid.UUID]int, len(paths))
	for i, path := range paths {
		id := uuid.New()
		results[i] = domain.ConversionResult{ID: id, Source: path}
		index[id] = i
	}

	var wg sync.WaitGroup
	taskChan := make(chan domain.ConversionTask, p.workers*2)
	resultChan := make(chan domain.ConversionResult, len(paths))

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, taskChan, resultChan, &wg)
	}

	go func() {
		defer close(taskChan)
		for _, r := range results {
			select {
			case <-ctx.Done():
				return
			case taskChan <- domain.ConversionTask{ID: r.ID, Source: r.Source}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	done := make([]bool, len(paths))
	for res := range resultChan {
		i := index[res.ID]
		results[i] = res
		done[i] = true
	}

	var errs []error
	for i := range results {
		if !done[i] {
			results[i].Err = ctx.Err()
		}
		if results[i].Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", results[i].Source, results[i].Err))
		}
	}

	p.logger.Info("Conversion batch finished",
		zap.Int("jobs", len(paths)),
		zap.Int("failed", len(errs)))

	return results, errors.Join(errs...)
}

func (p *ConversionPool) worker(ctx context.Context, id int, tasks <-chan domain.ConversionTask, results chan<- domain.ConversionResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range tasks {
		res := domain.ConversionResult{ID: task.ID, Source: task.Source}
		if err := ctx.Err(); err != nil {
			res.Err = err
			results <- res
			continue
		}

		p.logger.Debug("Converting",
			zap.Int("worker", id),
			zap.Stringer("job", task.ID),
			zap.String("source", task.Source))

		res.Outputs, res.Err = p.converter.Convert(ctx, task.Source)
		if res.Err != nil {
			p.logger.Warn("Conversion failed",
				zap.Stringer("job", task.ID),
				zap.String("source", task.Source),
				zap.Error(res.Err))
		}
		results <- res
	}
}
