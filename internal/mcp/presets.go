package mcp

import "fmt"

// Preset names
const (
	// PresetReadOnly exposes the tools that never write to the workspace.
	PresetReadOnly = "readonly"
	PresetFull     = "full"
)

// DefaultPreset is the preset used when none is given.
const DefaultPreset = PresetFull

var readOnlyTools = []string{
	"findSymbol",
	"findReferences",
	"findCallers",
	"findCallees",
	"getCallGraph",
	"getHierarchy",
	"findImplementations",
	"getDiagnostics",
	"getStatus",
	"previewRename",
	"listJournal",
	"showJournal",
}

// Presets defines the tool sets for each preset.
var Presets = map[string][]string{
	PresetReadOnly: readOnlyTools,
	PresetFull:     append(append([]string(nil), readOnlyTools...), "renameSymbol", "restoreJournal", "reload"),
}

// PresetTools returns the tools of a preset.
func PresetTools(preset string) ([]string, error) {
	tools, ok := Presets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (want %s or %s)", preset, PresetReadOnly, PresetFull)
	}
	return tools, nil
}
