package errors

import "esrt/pkg/source"

// Position represents a location in module source.
// Line and Column are 1-based, byte offsets are 0-based.
type Position struct {
	Line     int
	Column   int
	StartPos int
	EndPos   int                // exclusive
	Source   *source.SourceFile // nil for errors raised outside any source
}
