package envelope

import (
	stderrors "errors"

	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/query"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
		},
	}
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Data sets the tool-specific payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// FromMeta copies the metadata every engine response carries. Engine
// warnings become envelope warnings.
func (b *Builder) FromMeta(m query.Meta) *Builder {
	meta := b.meta()
	meta.Tool = m.Tool
	meta.WorkspaceID = m.WorkspaceID
	meta.DurationMs = m.QueryDurationMs
	for _, w := range m.Warnings {
		b.resp.Warnings = append(b.resp.Warnings, Warning{Message: w})
	}
	return b
}

// WithTruncation adds truncation metadata.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// WithFreshness adds index freshness info. A stale index also adds a
// warning.
func (b *Builder) WithFreshness(f index.FreshnessResult) *Builder {
	b.meta().Freshness = &Freshness{Fresh: f.Fresh, Reason: f.Reason}
	if !f.Fresh && f.RecordedID != "" {
		b.WarningWithCode("INDEX_STALE", f.Reason)
	}
	return b
}

// SuggestCall adds a recommended follow-up call.
func (b *Builder) SuggestCall(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Error sets the error field. Errors without a code are reported as
// INTERNAL_ERROR.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	b.resp.Error = ErrorFrom(err)
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// ErrorFrom converts err to its structured form.
func ErrorFrom(err error) *ErrorInfo {
	var ne *errors.NavError
	if stderrors.As(err, &ne) {
		return &ErrorInfo{
			Code:           ne.Code,
			Message:        ne.Error(),
			Details:        ne.Details,
			SuggestedFixes: ne.SuggestedFixes,
		}
	}
	return &ErrorInfo{Code: errors.InternalError, Message: err.Error()}
}

// Operational creates a simple envelope for tools that report state rather
// than query results.
func Operational(data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}

// Failure creates an envelope carrying only an error.
func Failure(err error) *Response {
	return New().Error(err).Build()
}
