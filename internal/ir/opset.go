package ir

import (
	"fmt"

	"github.com/roach88/milir/internal/diag"
)

// OpsetVersion is a deployment target level. It selects which variant of a
// versioned operation is valid. Versions are totally ordered.
type OpsetVersion uint8

// Supported opset versions. OpsetUnset means "not pinned yet".
const (
	OpsetUnset OpsetVersion = iota
	IOS13
	IOS14
	IOS15
	IOS16
	IOS17
	IOS18
)

// BaselineOpset is the lowest supported target. A program without versioned
// operations resolves to it.
const BaselineOpset = IOS13

// LatestOpset is the highest supported target.
const LatestOpset = IOS18

// MaxRank is the exclusive upper bound on tensor rank the deployment format
// supports.
const MaxRank = 6

var opsetNames = map[OpsetVersion]string{
	IOS13: "iOS13",
	IOS14: "iOS14",
	IOS15: "iOS15",
	IOS16: "iOS16",
	IOS17: "iOS17",
	IOS18: "iOS18",
}

// String returns the target name, e.g. "iOS16".
func (v OpsetVersion) String() string {
	if v == OpsetUnset {
		return "unset"
	}
	if s, ok := opsetNames[v]; ok {
		return s
	}
	return fmt.Sprintf("opset(%d)", uint8(v))
}

// IsSet reports whether v is pinned.
func (v OpsetVersion) IsSet() bool { return v != OpsetUnset }

// ParseOpsetVersion parses a target name such as "iOS15".
func ParseOpsetVersion(s string) (OpsetVersion, error) {
	for v := BaselineOpset; v <= LatestOpset; v++ {
		if opsetNames[v] == s {
			return v, nil
		}
	}
	return OpsetUnset, diag.New(diag.CodeInvalidArgument, "unknown opset version %q", s)
}
