// Package output encodes symnav responses for the terminal and for tools.
//
// # Formats
//
// Responses are printed as json, yaml, markdown or human text. The json and
// yaml encoders are deterministic: a value is first marshaled through its
// JSON form so custom marshalers and struct tags apply, then object keys
// are emitted in sorted order. Identical responses therefore produce
// byte-identical output, which keeps previews diffable and lets tests
// compare responses as snapshots.
//
// # Snapshot Testing
//
// NormalizeForSnapshot strips the fields that vary between otherwise equal
// responses (durations, timestamps, journal IDs) before comparison.
package output
