// Package ir provides the in-memory representation of ECL programs.
//
// This package contains the version-agnostic types shared by every backend.
// All other internal packages import ir; ir imports nothing internal.
//
// Ownership is strictly top-down:
//
//	Program -> Sub -> Instr (*Op) -> Param -> Value
//
// No node is shared between two programs and there are no back-references.
// Free releases a node and everything it owns; calling Free twice, or on a
// partially populated node, is always safe.
//
// Instructions are a sealed sum type. Only *Op carries parameters; the
// TimeMarker, RankMarker and LabelMarker variants carry a single scalar and
// exist purely to structure the instruction stream.
package ir
