// Package ir provides the data model shared by the thrustmig packages.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the call-site and rule
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - CallSite values are snapshots owned by the caller; nothing here or
//     downstream mutates them during a rewrite
//   - OverloadRule values are static configuration, built once
//   - All JSON and YAML tags use snake_case
//   - Ordering uses logical sequence numbers, never wall-clock time
package ir
