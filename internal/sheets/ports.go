package sheets

import (
	"context"
)

// Ports for inbound data sources.
type (
	// RowReader reads the ideas sheet as a string matrix: the header row
	// first, then one slice per data row. Rows may be ragged.
	RowReader interface {
		ReadRows(ctx context.Context) ([][]string, error)
	}

	// Identifier reports the identity of the current source content. Two calls
	// return the same value while the underlying data is unchanged.
	Identifier interface {
		Identity(ctx context.Context) (string, error)
	}

	// Source is what the table cache consumes.
	Source interface {
		RowReader
		Identifier
	}
)
