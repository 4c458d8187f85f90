package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/signature"
)

// LoadError represents an error that occurred while loading a signature
// table or an activity batch.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No input files found
	ErrCodeLoadFailed  = "E004" // File could not be read or decoded
	ErrCodeNotFound    = "E005" // Path or capture not found
	ErrCodeBuildFailed = "E006" // Processing failed
	ErrCodeWriteFailed = "E007" // Database write error

	// Signature table errors
	ErrCodeTableSyntax   = "E101" // CUE syntax or evaluation error
	ErrCodeTableKinds    = "E102" // Missing or empty kinds
	ErrCodeTableStrategy = "E103" // Unknown strategy or strategy parameter
	ErrCodeTableRole     = "E104" // Invalid role or frame pattern
	ErrCodeTableRoleRef  = "E105" // Reference to an undeclared role
	ErrCodeTableSteps    = "E106" // Invalid step count

	// Batch errors
	ErrCodeBatchDecode    = "E201" // Batch could not be decoded
	ErrCodeBatchDuplicate = "E202" // Duplicate activity id
)

// MapFieldToErrorCode maps a signature compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeTableSyntax
	case field == "kinds":
		return ErrCodeTableKinds
	case field == "strategy", field == "minChain", field == "dataRole", field == "tickRole":
		return ErrCodeTableStrategy
	case field == "roles", strings.HasPrefix(field, "roles."), field == "libraryLocations":
		return ErrCodeTableRole
	case field == "anchor", field == "terminal", field == "sequence", field == "shared", field == "config":
		return ErrCodeTableRoleRef
	case field == "steps":
		return ErrCodeTableSteps
	default:
		return ErrCodeGeneric
	}
}

// LoadTable loads the signature table at path. An empty path selects the
// embedded default table.
func LoadTable(path string) (*signature.Table, error) {
	if path == "" {
		return signature.Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("signature table not found: %s", path)}
	}

	table, err := signature.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return table, nil
}

// LoadBatch loads an activity batch file (.json, .yaml or .yml).
func LoadBatch(path string) (*activity.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("batch file not found: %s", path)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("not a file: %s", path)}
	}

	s, err := activity.LoadFile(path)
	if err != nil {
		if errors.Is(err, activity.ErrDuplicateID) {
			return nil, &LoadError{Code: ErrCodeBatchDuplicate, Message: err.Error()}
		}
		return nil, &LoadError{Code: ErrCodeBatchDecode, Message: err.Error()}
	}
	if s.Len() == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("batch is empty: %s", path)}
	}
	return s, nil
}

// convertCompileError converts a signature error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *signature.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Kind != "" {
			msg = fmt.Sprintf("%s.%s: %s", compileErr.Kind, compileErr.Field, compileErr.Message)
		}
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: msg,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// asLoadError returns err as a LoadError, wrapping unknown errors as generic.
func asLoadError(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}
