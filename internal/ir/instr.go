package ir

// Instr is a sealed sum type over the four instruction variants:
// *Op, TimeMarker, RankMarker and LabelMarker.
//
// Use a type switch to discriminate. Only *Op has parameters.
type Instr interface {
	instr() // Sealed
}

// Op is an ordinary opcode instruction.
type Op struct {
	// ID is the numeric opcode.
	ID int

	// Time and Rank are the values in effect when the instruction runs.
	// Decoders and the text parser fill them from the surrounding markers.
	Time uint32
	Rank uint32

	// Offset is the byte offset of the instruction within its Sub.
	Offset uint32

	// Params in operand order.
	Params []*Param

	// Ref is an optional instruction-specific name, e.g. the Sub a call
	// resolves to. Empty means none.
	Ref string

	// Raw is set when the payload could not be decoded against a known
	// signature and is kept verbatim as a single Bytes parameter.
	Raw *RawHeader

	freed bool
}

// RawHeader preserves header fields that cannot be derived from an
// undecoded payload.
type RawHeader struct {
	Count int    // declared parameter count
	Mask  uint32 // variable mask
}

func (*Op) instr() {}

// TimeMarker sets the time of the instructions that follow it.
type TimeMarker struct {
	Time uint32
}

func (TimeMarker) instr() {}

// RankMarker sets the difficulty mask of the instructions that follow it.
type RankMarker struct {
	Rank uint32
}

func (RankMarker) instr() {}

// LabelMarker marks a jump target at a byte offset within the Sub.
type LabelMarker struct {
	Offset uint32
}

func (LabelMarker) instr() {}

// NewOp creates an ordinary instruction with an empty parameter list.
func NewOp(id int) *Op {
	return &Op{ID: id}
}

// NewTime creates a time marker.
func NewTime(t uint32) TimeMarker {
	return TimeMarker{Time: t}
}

// NewRank creates a rank marker.
func NewRank(r uint32) RankMarker {
	return RankMarker{Rank: r}
}

// NewLabel creates a label marker.
func NewLabel(offset uint32) LabelMarker {
	return LabelMarker{Offset: offset}
}

// AddParam appends p to the operand list and returns the Op for chaining.
func (o *Op) AddParam(p *Param) *Op {
	o.Params = append(o.Params, p)
	return o
}

// ReplaceParam frees the parameter at index i and stores p in its place.
func (o *Op) ReplaceParam(i int, p *Param) {
	o.Params[i].Free()
	o.Params[i] = p
}

// Free releases every owned Param and the Ref string.
// Repeated calls are no-ops.
func (o *Op) Free() {
	if o == nil || o.freed {
		return
	}
	for _, p := range o.Params {
		p.Free()
	}
	o.Params = nil
	o.Ref = ""
	o.Raw = nil
	o.freed = true
}

// Freed reports whether Free has been called.
func (o *Op) Freed() bool {
	return o.freed
}

// FreeInstr releases in if it owns anything. Markers own nothing.
func FreeInstr(in Instr) {
	if op, ok := in.(*Op); ok {
		op.Free()
	}
}
