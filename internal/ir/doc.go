// Package ir provides the value types shared by every runcost package.
//
// It holds two families of types:
//   - computed values: Timestamp, Datapoint and Series, produced by the engine
//     and handed to renderers;
//   - declarative specs: SeriesSpec, ComponentSpec, RunningCostSpec and
//     WindowSpec, loaded from CUE or YAML definition files and stored in the
//     definition library.
//
// ir imports nothing internal. All other internal packages import ir.
//
// Key design constraints:
//   - Timestamps are integer seconds since the Unix epoch
//   - All JSON and YAML tags use snake_case
//   - Spec identity is the SHA-256 of RFC 8785 canonical JSON (see hash.go)
package ir
