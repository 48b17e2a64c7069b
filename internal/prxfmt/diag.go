// Package prxfmt provides shared types and diagnostics for PRX2 metadata parsing.
package prxfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated       DiagKind = "truncated"
	DiagInvalid         DiagKind = "invalid"
	DiagUnresolved      DiagKind = "unresolved"
	DiagUnsupported     DiagKind = "unsupported"
	DiagSkipped         DiagKind = "skipped"
	DiagModeSwitch      DiagKind = "mode_switch"
	DiagSuspectFunction DiagKind = "suspect_function"
)

// Diag records a non-fatal issue encountered during an analysis run.
type Diag struct {
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeStrict     Mode = iota // first structural error returns error
	ModeBestEffort             // continue per-library, accumulate diags
)

// Options controls parsing behavior across packages.
type Options struct {
	Mode       Mode
	MaxSweeps  int // linear sweep passes before giving up on a fixed point; 0 = default
	MaxEntries int // cap on table entries per library; 0 = default
}

// DefaultMaxSweeps bounds the host sweep convergence loop.
const DefaultMaxSweeps = 3

// DefaultMaxEntries bounds nfunc+nvar per library against corrupt counts.
const DefaultMaxEntries = 65536

func (o Options) EffectiveMaxSweeps() int {
	if o.MaxSweeps > 0 {
		return o.MaxSweeps
	}
	return DefaultMaxSweeps
}

func (o Options) EffectiveMaxEntries() int {
	if o.MaxEntries > 0 {
		return o.MaxEntries
	}
	return DefaultMaxEntries
}
