package infrastructure

import (
	"bufio"
	"fmt"
	"os"
	"qcl-datasheet/internal/domain"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type TXTFileReader struct {
	logger *zap.Logger
}

func NewTXTFileReader(logger *zap.Logger) *TXTFileReader {
	return &TXTFileReader{logger: logger}
}

// ReadTrace parses a whitespace-delimited file with exactly columns fields per row.
// Rows with another field count are skipped, and so are rows whose scaled x is
// at or below the noise floor. An unreadable file yields an empty trace and
// ErrFileUnreadable so the caller can keep going.
func (r *TXTFileReader) ReadTrace(path string, columns int, opts domain.ParseOptions) (*domain.Trace, error) {
	trace := emptyTrace(columns)

	file, err := os.Open(path)
	if err != nil {
		r.logger.Warn("Cannot open trace file", zap.String("path", path), zap.Error(err))
		return trace, fmt.Errorf("%w: %s: %v", domain.ErrFileUnreadable, path, err)
	}
	defer file.Close()

	scale := opts.XScale
	if scale == 0 {
		scale = 1
	}

	var rows [][]float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != columns {
			continue
		}

		row := make([]float64, columns)
		for j, f := range fields {
			// unparseable fields read as 0
			row[j], _ = strconv.ParseFloat(f, 64)
		}
		row[0] *= scale
		if row[0] <= domain.NoiseFloor {
			continue
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Failed reading trace file", zap.String("path", path), zap.Error(err))
		return emptyTrace(columns), fmt.Errorf("%w: %s: %v", domain.ErrFileUnreadable, path, err)
	}

	if opts.Sort {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i][0] < rows[j][0]
		})
	}

	for _, row := range rows {
		trace.X = append(trace.X, row[0])
		trace.Y1 = append(trace.Y1, row[1])
		if columns == 3 {
			trace.Y2 = append(trace.Y2, row[2])
		}
	}

	r.logger.Debug("Trace parsed",
		zap.String("path", path),
		zap.Int("rows", len(rows)))

	return trace, nil
}

func emptyTrace(columns int) *domain.Trace {
	t := &domain.Trace{X: []float64{}, Y1: []float64{}}
	if columns == 3 {
		t.Y2 = []float64{}
	}
	return t
}
