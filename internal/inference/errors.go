package inference

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds recorded on failed runs and exported as metric labels.
const (
	KindMissingArtifact = "missing_artifact"
	KindInvalidArtifact = "invalid_artifact"
	KindMissingColumns  = "missing_columns"
	KindMalformedInput  = "malformed_input"
	KindInternal        = "internal"
)

// MissingArtifactError reports artifact files absent from the artifact
// directory. Missing lists every absent file name.
type MissingArtifactError struct {
	Dir     string
	Missing []string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("model artifacts not found in %s: missing %s", e.Dir, strings.Join(e.Missing, ", "))
}

// InvalidArtifactError reports an artifact that exists but cannot be used.
type InvalidArtifactError struct {
	File   string
	Reason string
	Err    error
}

func (e *InvalidArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid artifact %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid artifact %s: %s", e.File, e.Reason)
}

func (e *InvalidArtifactError) Unwrap() error { return e.Err }

// MissingColumnsError reports required feature columns absent from an input
// table, in required-feature order.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// MalformedInputError reports an upload that cannot be read as a table, or a
// numeric feature cell that is not a number. Row is 1-based over data rows;
// zero means the failure is not tied to a cell.
type MalformedInputError struct {
	Row    int
	Column string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed input at row %d column %s: %v", e.Row, e.Column, e.Err)
	}
	return fmt.Sprintf("malformed input: %v", e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	var (
		missingArt *MissingArtifactError
		invalidArt *InvalidArtifactError
		missingCol *MissingColumnsError
		malformed  *MalformedInputError
	)
	switch {
	case errors.As(err, &missingArt):
		return KindMissingArtifact
	case errors.As(err, &invalidArt):
		return KindInvalidArtifact
	case errors.As(err, &missingCol):
		return KindMissingColumns
	case errors.As(err, &malformed):
		return KindMalformedInput
	default:
		return KindInternal
	}
}
