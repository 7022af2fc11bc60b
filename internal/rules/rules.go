// Package rules embeds the built-in Thrust-to-oneDPL rule table.
//
// The table is authored in CUE. Each entry under `function` lists the
// recognized overloads of one Thrust algorithm in ascending specificity;
// the engine tries them in reverse. Custom tables follow the same layout
// and may be loaded from a directory instead (see internal/cli).
package rules

import _ "embed"

// Filename is the name reported in positions of the embedded table.
const Filename = "thrust.cue"

// Thrust is the CUE source of the built-in rule table.
//
//go:embed thrust.cue
var Thrust string
