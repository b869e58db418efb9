package th06

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// Compile writes p in the th06 family layout. Sub names are not stored;
// subs keep their order.
func (*Module) Compile(p *ir.Program, w io.Writer, env *backend.Env) error {
	if len(p.Subs) > 0xffff || len(p.LocalData) > 0xffff {
		return fmt.Errorf("too many subs or data blocks")
	}
	if len(p.AnimNames) > 0 || len(p.EcliNames) > 0 {
		return fmt.Errorf("%s files cannot reference anim or ecli files", Name)
	}

	bodies := make([][]byte, 0, len(p.Subs)+len(p.LocalData))
	for _, sub := range p.Subs {
		body, err := encodeSub(sub)
		if err != nil {
			return fmt.Errorf("sub %s: %w", sub.Name, err)
		}
		bodies = append(bodies, body)
	}
	for _, d := range p.LocalData {
		var bw backend.Writer
		bw.U32(uint32(len(d.Data)))
		bw.Write(d.Data)
		bw.Pad(4)
		bodies = append(bodies, bw.Bytes())
	}

	var out backend.Writer
	out.U16(uint16(len(p.Subs)))
	out.U16(uint16(len(p.LocalData)))
	offset := 4 + 4*len(bodies)
	for _, b := range bodies {
		out.U32(uint32(offset))
		offset += len(b)
	}
	for _, b := range bodies {
		out.Write(b)
	}

	env.Log().Debug("encoded program", zap.String("family", Name), zap.Int("bytes", out.Len()))
	_, err := w.Write(out.Bytes())
	return err
}

func encodeSub(sub *ir.Sub) ([]byte, error) {
	var w backend.Writer
	for _, op := range sub.Ops() {
		size, err := dialect.Size(op)
		if err != nil {
			return nil, fmt.Errorf("ins_%d: %w", op.ID, err)
		}
		if size > 0xffff {
			return nil, fmt.Errorf("ins_%d: instruction too large (%d bytes)", op.ID, size)
		}
		mask := backend.Mask(op)
		if mask > 0xffff || op.Rank > 0xffff {
			return nil, fmt.Errorf("ins_%d: parameter or rank mask exceeds 16 bits", op.ID)
		}
		w.U32(op.Time)
		w.U16(uint16(op.ID))
		w.U16(uint16(size))
		w.U16(uint16(op.Rank))
		w.U16(uint16(mask))
		if err := dialect.Codec.EncodeParams(&w, op, sub); err != nil {
			return nil, fmt.Errorf("ins_%d: %w", op.ID, err)
		}
	}
	w.U32(terminatorTime)
	w.U16(terminatorID)
	w.U16(instrHeaderSize)
	w.U16(terminatorMask)
	w.U16(terminatorMask)
	return w.Bytes(), nil
}
