// Package envelope provides the response wrapper shared by MCP tool results
// and JSON command output. Every payload travels with the workspace it was
// computed from, index freshness, truncation, warnings and, on failure, a
// structured error.
package envelope

import "symnav/internal/errors"

// Freshness describes whether the recorded index metadata matches the
// workspace the response was computed from.
type Freshness struct {
	Fresh  bool   `json:"fresh"`
	Reason string `json:"reason,omitempty"`
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Total       int    `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"` // "max-nodes", "max-depth"
}

// Meta holds response metadata.
type Meta struct {
	Tool        string      `json:"tool,omitempty"`
	WorkspaceID string      `json:"workspaceId,omitempty"`
	DurationMs  int64       `json:"durationMs"`
	Freshness   *Freshness  `json:"freshness,omitempty"`
	Truncation  *Truncation `json:"truncation,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the structured form of a failed operation.
type ErrorInfo struct {
	Code           errors.ErrorCode   `json:"code"`
	Message        string             `json:"message"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// Response is the standard envelope.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *ErrorInfo      `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
