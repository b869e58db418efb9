package backend

import (
	"fmt"
	"slices"

	"github.com/roach88/thecl/internal/ir"
)

// LabelName returns the generated name of the label at offset.
func LabelName(offset uint32) string {
	return fmt.Sprintf("offset_%d", offset)
}

// NormalizeLabels gives every label marker in sub a table entry and orders
// the table by offset. Markers are never removed.
func NormalizeLabels(sub *ir.Sub) {
	for _, in := range sub.Instrs {
		lm, ok := in.(ir.LabelMarker)
		if !ok || len(sub.LabelsAt(lm.Offset)) > 0 {
			continue
		}
		_ = sub.AddLabel(uniqueLabel(sub, LabelName(lm.Offset)), lm.Offset)
	}
	slices.SortStableFunc(sub.Labels, func(a, b ir.Label) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})
}

// ResolveJumps replaces every literal jump offset that lands on a label
// marker with a reference to that label, then drops the markers and table
// entries nothing refers to.
func ResolveJumps(sub *ir.Sub, sigs Signatures) {
	markers := make(map[uint32]bool)
	for _, in := range sub.Instrs {
		if lm, ok := in.(ir.LabelMarker); ok {
			markers[lm.Offset] = true
		}
	}

	used := make(map[uint32]bool)
	for _, op := range sub.Ops() {
		for i, p := range op.Params {
			if p.Label {
				if off, ok := sub.LabelOffset(p.Str()); ok {
					used[off] = true
				}
				continue
			}
			if op.Raw != nil || !isOffsetParam(sigs, op.ID, i) || p.Var || p.Kind() != ir.KindInt {
				continue
			}
			target := int64(op.Offset) + p.Int()
			if target < 0 || target > int64(^uint32(0)) || !markers[uint32(target)] {
				continue
			}
			off := uint32(target)
			name := labelAt(sub, off)
			op.ReplaceParam(i, ir.NewLabelRef(name))
			used[off] = true
		}
	}
	PruneLabels(sub, used)
}

// PruneLabels removes label markers and table entries whose offset is not
// in keep.
func PruneLabels(sub *ir.Sub, keep map[uint32]bool) {
	sub.Instrs = slices.DeleteFunc(sub.Instrs, func(in ir.Instr) bool {
		lm, ok := in.(ir.LabelMarker)
		return ok && !keep[lm.Offset]
	})
	sub.Labels = slices.DeleteFunc(sub.Labels, func(l ir.Label) bool {
		return !keep[l.Offset]
	})
}

func isOffsetParam(sigs Signatures, id, i int) bool {
	sig, ok := sigs.Lookup(id)
	return ok && i < len(sig) && sig[i] == SigOffset
}

// labelAt returns the first label name at off, creating one if needed.
func labelAt(sub *ir.Sub, off uint32) string {
	if names := sub.LabelsAt(off); len(names) > 0 {
		return names[0]
	}
	name := uniqueLabel(sub, LabelName(off))
	_ = sub.AddLabel(name, off)
	return name
}

func uniqueLabel(sub *ir.Sub, name string) string {
	candidate := name
	for n := 1; ; n++ {
		if _, taken := sub.LabelOffset(candidate); !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
}
