package processor

import "fmt"

// InsufficientInputError reports that an operation had nothing to work
// with, e.g. a CRS resolution over zero scenes.
type InsufficientInputError struct {
	Op     string
	Detail string
}

func (e *InsufficientInputError) Error() string {
	return fmt.Sprintf("%s: insufficient input: %s", e.Op, e.Detail)
}

// InputMissingError reports a required on-disk artifact that an earlier
// stage should have produced.
type InputMissingError struct {
	Path   string
	Detail string
}

func (e *InputMissingError) Error() string {
	return fmt.Sprintf("missing input %s: %s", e.Path, e.Detail)
}

// ShapeMismatchError reports a classifier reply whose pixel dimensions
// disagree with the scene it was asked about.
type ShapeMismatchError struct {
	SceneID       string
	Want, Got     int
	WantCh, GotCh int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("scene %s: class map shape mismatch: %d pixels x %d channels, expecting %d pixels x 1 or 3 channels (got %d)",
		e.SceneID, e.Got, e.GotCh, e.Want, e.WantCh)
}

// GridMismatchError reports scene files of one year that do not share
// an identical grid. Compositing never re-grids.
type GridMismatchError struct {
	Year  int
	File  string
	Other string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("year %d: grid of %s differs from %s", e.Year, e.File, e.Other)
}

// BandMismatchError reports scene files of one year whose band lists
// diverge. Median granules address bands by position, so the stack
// must agree on band order as well as grid.
type BandMismatchError struct {
	Year  int
	File  string
	Other string
}

func (e *BandMismatchError) Error() string {
	return fmt.Sprintf("year %d: band list of %s differs from %s", e.Year, e.File, e.Other)
}

// AssetFetchError reports a band asset that could not be read or
// warped. The harmonizer skips the band; the scene survives when other
// bands remain.
type AssetFetchError struct {
	SceneID string
	Band    string
	Err     error
}

func (e *AssetFetchError) Error() string {
	return fmt.Sprintf("scene %s band %s: %v", e.SceneID, e.Band, e.Err)
}

func (e *AssetFetchError) Unwrap() error {
	return e.Err
}
