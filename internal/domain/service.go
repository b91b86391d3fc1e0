package domain

import "github.com/google/uuid"

// Output layout below the run directory.
const (
	// GraceDir receives the Grace projects (.agr).
	GraceDir = "GraceFigures"
	// FiguresDir receives the final PDF and PNG figures the datasheet links to.
	FiguresDir = "Figures"
	// DatasheetName is the base name of the generated LaTeX document.
	DatasheetName = "datasheet"
)

// ConversionTask is one figure conversion handed to a worker.
type ConversionTask struct {
	ID     uuid.UUID
	Source string
}

// ConversionResult reports the files produced for a task, or why none were.
type ConversionResult struct {
	ID      uuid.UUID
	Source  string
	Outputs []string
	Err     error
}
