// Package merge implements the three-way text merge used to resolve
// conflicting edits to the same markdown file.
//
// It is a classic diff3: the remote-side edits (base -> remote) are replayed
// as patches against the local text. Where the replay is unambiguous the
// merge is clean; where it isn't, the unresolved region is bracketed with
// conflict markers instead of failing outright.
package merge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	localMarker  = "<<<<<<< LOCAL"
	splitMarker  = "======="
	remoteMarker = ">>>>>>> REMOTE"
)

// Result is the outcome of a three-way merge.
type Result struct {
	Text     string
	HadConflict bool
}

// ThreeWay merges local and remote text against a common base. When no base
// content is available, pass "" for base: differing local and remote texts
// then come back as one conflict spanning the whole file.
func ThreeWay(base, local, remote string) Result {
	if base == remote {
		return Result{Text: local}
	}
	if base == local {
		return Result{Text: remote}
	}
	if local == remote {
		return Result{Text: local}
	}
	if base == "" {
		// no common base: nothing tells which side changed what, so the whole
		// file is one conflict.
		var b strings.Builder
		for _, part := range []string{localMarker, local, splitMarker, remote, remoteMarker} {
			b.WriteString(strings.TrimSuffix(part, "\n") + "\n")
		}
		return Result{Text: b.String(), HadConflict: true}
	}

	baseLines := splitLines(base)
	localLines := splitLines(local)
	remoteLines := splitLines(remote)

	sm := difflib.NewMatcher(baseLines, remoteLines)
	opcodes := sm.GetOpCodes()

	// Walk base->remote opcodes, replaying "equal" runs from local where the
	// base/local text at that point still matches, and splicing in the
	// remote-side insert/replace/delete otherwise. When base and local have
	// diverged at the same region the replay can't be applied cleanly, and we
	// fall back to conflict markers for that hunk.
	localMatcher := difflib.NewMatcher(baseLines, localLines)
	localOpcodes := localMatcher.GetOpCodes()

	merged, conflict := replay(baseLines, localLines, remoteLines, opcodes, localOpcodes)

	return Result{Text: strings.Join(merged, ""), HadConflict: conflict}
}

func replay(base, local, remote []string, remoteOps, localOps []difflib.OpCode) ([]string, bool) {
	// Build a map of base-line-index -> local replacement range, derived from
	// the base/local diff, so we can tell whether local touched the same
	// region the remote-side opcode wants to touch.
	localChangedAt := make([]bool, len(base)+1)
	for _, op := range localOps {
		if op.Tag != 'e' {
			for i := op.I1; i <= op.I2 && i < len(localChangedAt); i++ {
				localChangedAt[i] = true
			}
		}
	}

	var out []string
	conflict := false
	localPos := 0

	// baseToLocal maps a base index to the corresponding local slice position
	// using the base/local opcodes: lines in an equal run map one-to-one, lines
	// local replaced or deleted map to the start of local's replacement.
	baseToLocal := make([]int, len(base)+1)
	for _, op := range localOps {
		for bi := op.I1; bi < op.I2; bi++ {
			if op.Tag == 'e' {
				baseToLocal[bi] = op.J1 + (bi - op.I1)
			} else {
				baseToLocal[bi] = op.J1
			}
		}
	}
	baseToLocal[0] = 0
	baseToLocal[len(base)] = len(local)
	_ = localPos

	for _, op := range remoteOps {
		switch op.Tag {
		case 'e':
			// unchanged in remote relative to base: emit local's version of
			// this span (local may have edited it; that's fine, remote made
			// no competing change here).
			start := baseToLocal[op.I1]
			end := baseToLocal[op.I2]
			out = append(out, local[start:end]...)
		default:
			touchedByLocal := false
			for bi := op.I1; bi < op.I2; bi++ {
				if localChangedAt[bi] {
					touchedByLocal = true
					break
				}
			}
			if !touchedByLocal {
				// remote-only change: apply remote's replacement cleanly.
				out = append(out, remote[op.J1:op.J2]...)
			} else {
				// both sides touched this region: emit conflict markers.
				conflict = true
				start := baseToLocal[op.I1]
				end := baseToLocal[op.I2]
				out = append(out, localMarker+"\n")
				out = append(out, local[start:end]...)
				out = append(out, splitMarker+"\n")
				out = append(out, remote[op.J1:op.J2]...)
				out = append(out, remoteMarker+"\n")
			}
		}
	}

	return out, conflict
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
