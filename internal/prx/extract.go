package prx

import (
	"fmt"

	"vitaelf/internal/elfx"
	"vitaelf/internal/prxfmt"
)

// Tables bundles everything the metadata walk yields for one image.
type Tables struct {
	Module      *ModuleInfo       `json:"module"`
	Exports     []ExportLibrary   `json:"exports,omitempty"`
	Imports     []ImportLibrary   `json:"imports,omitempty"`
	Unsupported []UnsupportedStub `json:"unsupported,omitempty"`
	Diags       []prxfmt.Diag     `json:"diags,omitempty"`
}

// Extract locates the SceModuleInfo and walks both library tables.
// A bad module info aborts the run; everything downstream degrades
// per-library through diagnostics.
func Extract(f *elfx.File, opts prxfmt.Options) (*Tables, error) {
	off, err := LocateModuleInfo(f)
	if err != nil {
		return nil, err
	}
	mi, err := ParseModuleInfo(f, off)
	if err != nil {
		return nil, err
	}

	var diags prxfmt.Diags
	exports, err := WalkExports(f, mi, opts, &diags)
	if err != nil {
		return nil, fmt.Errorf("prx: %s: %w", mi.Name, err)
	}
	imports, unsupported, err := WalkImports(f, mi, opts, &diags)
	if err != nil {
		return nil, fmt.Errorf("prx: %s: %w", mi.Name, err)
	}

	return &Tables{
		Module:      mi,
		Exports:     exports,
		Imports:     imports,
		Unsupported: unsupported,
		Diags:       diags.Items(),
	}, nil
}
