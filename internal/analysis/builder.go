// Package analysis turns raw measurement files into trace sets and derives
// threshold, dynamic-range and spectral-mode figures from them.
package analysis

import (
	"context"
	"errors"
	"qcl-datasheet/internal/domain"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Builder parses a batch of trace files into a sorted TraceSet.
type Builder struct {
	logger  *zap.Logger
	reader  domain.TraceReader
	workers int
}

func NewBuilder(logger *zap.Logger, reader domain.TraceReader, workers int) *Builder {
	return &Builder{
		logger:  logger,
		reader:  reader,
		workers: max(1, workers),
	}
}

type parseTask struct {
	index int
	path  string
	label string
}

type parseResult struct {
	index int
	trace domain.Trace
}

// Build parses every file (path -> label) and orders the traces by the
// numeric value of their label. Files are visited in path order, so equal
// labels keep that order. Unreadable files stay in the set as empty traces.
func (b *Builder) Build(ctx context.Context, files map[string]string, columns int, opts domain.ParseOptions) (*domain.TraceSet, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	traces := make([]domain.Trace, len(paths))

	var wg sync.WaitGroup
	taskChan := make(chan parseTask, b.workers*2)
	resultChan := make(chan parseResult, len(paths))

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go b.worker(i, columns, opts, taskChan, resultChan, &wg)
	}

	go func() {
		defer close(taskChan)
		for i, p := range paths {
			select {
			case <-ctx.Done():
				return
			case taskChan <- parseTask{index: i, path: p, label: files[p]}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	received := 0
	for res := range resultChan {
		traces[res.index] = res.trace
		received++
	}

	if received != len(paths) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(traces, func(i, j int) bool {
		return traces[i].Value < traces[j].Value
	})

	set := &domain.TraceSet{
		Traces: traces,
		Stats:  domain.ReduceExtrema(traces),
	}

	b.logger.Info("Trace set built",
		zap.Int("traces", len(traces)),
		zap.Int("columns", columns))

	return set, nil
}

func (b *Builder) worker(id, columns int, opts domain.ParseOptions, tasks <-chan parseTask, results chan<- parseResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range tasks {
		b.logger.Debug("Parsing trace",
			zap.Int("worker", id),
			zap.String("path", task.path),
			zap.String("label", task.label))

		parsed, err := b.reader.ReadTrace(task.path, columns, opts)
		if err != nil && !errors.Is(err, domain.ErrFileUnreadable) {
			b.logger.Warn("Trace parse failed", zap.String("path", task.path), zap.Error(err))
		}

		trace := domain.Trace{Label: task.label, Value: domain.ParseLabel(task.label)}
		if parsed != nil {
			trace.X, trace.Y1, trace.Y2 = parsed.X, parsed.Y1, parsed.Y2
		}
		results <- parseResult{index: task.index, trace: trace}
	}
}
