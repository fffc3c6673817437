// Package store declares the collaborators the retrieval pipeline reads
// granules from and persists subsets to.
package store

import (
	"context"

	"go.ngs.io/oceancolor/internal/domain"
)

// GranuleSource opens remote (or local) gridded granules by URL.
type GranuleSource interface {
	// Open opens the granule at url. Implementations must honour ctx
	// cancellation and return an error wrapping domain.ErrSourceUnreachable
	// when the granule cannot be opened.
	Open(ctx context.Context, url string) (Granule, error)
}

// Granule is an open gridded dataset with a flat variable namespace.
type Granule interface {
	// VarNames lists every variable in the dataset.
	VarNames() ([]string, error)

	// ReadAxis reads a 1-D coordinate variable.
	ReadAxis(name string) ([]float64, error)

	// ReadWindow reads keys.Value restricted to the index window as a
	// [lat][lon] frame. Source fill values and NaN become domain.FillValue.
	ReadWindow(keys domain.VariableKeyMap, w domain.IndexWindow) (domain.Frame, error)

	// GlobalAttr returns a global text attribute.
	GlobalAttr(name string) (string, error)

	// GlobalAttrs returns every global attribute.
	GlobalAttrs() (domain.Attributes, error)

	// VarAttrs returns every attribute of the named variable.
	VarAttrs(name string) (domain.Attributes, error)

	Close() error
}

// DatasetWriter persists a subsetted dataset.
type DatasetWriter interface {
	Write(path string, ds *domain.SubsettedDataset) error
}
