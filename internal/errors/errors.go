package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SymbolNotFound indicates no declaration matched the query
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// FileNotFound indicates the workspace path or a requested file does not exist
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// AmbiguousSymbol indicates several declarations matched and strict mode is on
	AmbiguousSymbol ErrorCode = "AMBIGUOUS_SYMBOL"
	// AnalyzerUnavailable indicates the workspace could not be loaded
	AnalyzerUnavailable ErrorCode = "ANALYZER_UNAVAILABLE"
	// IndexMissing indicates the SCIP index file does not exist
	IndexMissing ErrorCode = "INDEX_MISSING"
	// CyclicHierarchy indicates a container or base-type chain loops back on itself
	CyclicHierarchy ErrorCode = "CYCLIC_HIERARCHY"
	// PartialCommit indicates a rename commit stopped after replacing some files
	PartialCommit ErrorCode = "PARTIAL_COMMIT"
	// WorkspaceStale indicates files changed on disk after the workspace was loaded
	WorkspaceStale ErrorCode = "WORKSPACE_STALE"
	// InvalidArgument indicates a malformed request (bad identifier, unknown flag value)
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// Timeout indicates an analyzer call exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// NavError is the error type returned by every engine operation.
type NavError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a NavError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *NavError {
	return &NavError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *NavError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *NavError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *NavError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *NavError) WithDetails(details interface{}) *NavError {
	e.Details = details
	return e
}

// WithFixes replaces the suggested fixes.
func (e *NavError) WithFixes(fixes ...FixAction) *NavError {
	e.SuggestedFixes = fixes
	return e
}

// NotFoundDetails is attached to SymbolNotFound errors.
type NotFoundDetails struct {
	Query       string   `json:"query"`
	Kind        string   `json:"kind,omitempty"`
	Namespace   string   `json:"namespace,omitempty"`
	File        string   `json:"file,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// PartialCommitDetails lists which files a failed commit already replaced.
type PartialCommitDetails struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	JournalID string   `json:"journalId,omitempty"`
}

// Wrap names the failed operation on err. Coded errors pass through
// unchanged, context expiry becomes Timeout and anything else InternalError.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var ne *NavError
	if errors.As(err, &ne) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(Timeout, op, err)
	}
	return New(InternalError, op, err)
}

// CodeOf returns the code of the first NavError in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var ne *NavError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// ExitCode maps an error to the process exit status: 0 on success,
// 2 when the subject or file could not be found or was ambiguous, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case SymbolNotFound, FileNotFound, AmbiguousSymbol:
		return 2
	default:
		return 1
	}
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexMissing: {
		{
			Type:        RunCommand,
			Command:     "scip-dotnet index",
			Safe:        true,
			Description: "Generate a SCIP index for a .NET solution",
		},
		{
			Type:        RunCommand,
			Command:     "scip-go",
			Safe:        true,
			Description: "Generate a SCIP index for a Go module",
		},
	},
	WorkspaceStale: {
		{
			Type:        RunCommand,
			Command:     "symnav rename --preview",
			Safe:        true,
			Description: "Reload the workspace and preview the rename again",
		},
	},
	PartialCommit: {
		{
			Type:        RunCommand,
			Command:     "symnav journal restore",
			Safe:        false,
			Description: "Restore the pre-commit contents of the replaced files",
		},
	},
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "SYMNAV_QUERY_TIMEOUTMS=30000 ${retry_command}",
			Safe:        true,
			Description: "Raise the analyzer timeout",
		},
	},
	AnalyzerUnavailable: {
		{
			Type:        OpenDocs,
			URL:         "https://github.com/sourcegraph/scip#indexers",
			Description: "Install a SCIP indexer for your language",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
