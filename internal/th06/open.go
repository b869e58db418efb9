package th06

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// Open decodes a th06 family file. Offsets must describe the subs and data
// blocks in file order with no gaps, which is the only layout Compile
// produces.
func (*Module) Open(r io.Reader, version uint, env *backend.Env) (*ir.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(data) == 0 {
		return nil, backend.Errorf(0, "empty input")
	}

	p := ir.NewProgram()
	if err := decode(backend.NewReader(data), p); err != nil {
		p.Free()
		return nil, err
	}
	env.Log().Debug("decoded program",
		zap.String("family", Name), zap.Int("subs", len(p.Subs)), zap.Int("data", len(p.LocalData)))
	return p, nil
}

func decode(r *backend.Reader, p *ir.Program) error {
	subCount, err := r.U16()
	if err != nil {
		return err
	}
	dataCount, err := r.U16()
	if err != nil {
		return err
	}
	offsets := make([]uint32, int(subCount)+int(dataCount))
	for i := range offsets {
		if offsets[i], err = r.U32(); err != nil {
			return err
		}
	}

	for i := 0; i < int(subCount); i++ {
		if err := expectOffset(r, offsets[i]); err != nil {
			return err
		}
		sub := ir.NewSub(subName(i))
		if err := p.AddSub(sub); err != nil {
			sub.Free()
			return backend.Errorf(r.Offset(), "%v", err)
		}
		if err := decodeSub(r, sub); err != nil {
			return err
		}
	}

	for i := 0; i < int(dataCount); i++ {
		if err := expectOffset(r, offsets[int(subCount)+i]); err != nil {
			return err
		}
		n, err := r.U32()
		if err != nil {
			return err
		}
		block, err := r.Bytes(int(n))
		if err != nil {
			return err
		}
		if err := r.ZeroPad(4); err != nil {
			return err
		}
		p.LocalData = append(p.LocalData, &ir.LocalData{Data: block})
	}

	if r.Remaining() != 0 {
		return backend.Errorf(r.Offset(), "%d trailing bytes", r.Remaining())
	}
	return nil
}

func expectOffset(r *backend.Reader, off uint32) error {
	if int64(off) != int64(r.Offset()) {
		return backend.Errorf(r.Offset(), "offset table entry %#x does not match layout", off)
	}
	return nil
}

func decodeSub(r *backend.Reader, sub *ir.Sub) error {
	start := r.Offset()
	time, rank := uint32(0), dialect.Rank.Full()
	for {
		at := r.Offset()
		t, err := r.U32()
		if err != nil {
			return err
		}
		id, err := r.U16()
		if err != nil {
			return err
		}
		size, err := r.U16()
		if err != nil {
			return err
		}
		rk, err := r.U16()
		if err != nil {
			return err
		}
		mask, err := r.U16()
		if err != nil {
			return err
		}
		offset := uint32(at - start)

		if id == terminatorID {
			if t != terminatorTime || size != instrHeaderSize || rk != terminatorMask || mask != terminatorMask {
				return backend.Errorf(at, "opcode %#x is reserved for the terminator", id)
			}
			sub.Append(ir.NewLabel(offset))
			return nil
		}
		if size < instrHeaderSize {
			return backend.Errorf(at, "instruction size %d smaller than header", size)
		}
		payload, err := r.Bytes(int(size) - instrHeaderSize)
		if err != nil {
			return err
		}

		sub.Append(ir.NewLabel(offset))
		if t != time {
			time = t
			sub.Append(ir.NewTime(time))
		}
		if uint32(rk) != rank {
			rank = uint32(rk)
			sub.Append(ir.NewRank(rank))
		}

		op := ir.NewOp(int(id))
		op.Time, op.Rank, op.Offset = time, rank, offset
		dialect.Codec.DecodeParams(op, payload, -1, uint32(mask))
		sub.Append(op)
	}
}
