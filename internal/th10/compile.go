package th10

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// Compile writes p in the th10 family layout.
func (*Module) Compile(p *ir.Program, w io.Writer, env *backend.Env) error {
	if len(p.LocalData) > 0 {
		return fmt.Errorf("%s files cannot carry data blocks", Name)
	}

	var includes backend.Writer
	if err := writeNameList(&includes, magicAnim, p.AnimNames); err != nil {
		return err
	}
	if err := writeNameList(&includes, magicEcli, p.EcliNames); err != nil {
		return err
	}
	if includes.Len() > 0xffff {
		return fmt.Errorf("include lists too large (%d bytes)", includes.Len())
	}

	var names backend.Writer
	bodies := make([][]byte, len(p.Subs))
	for i, sub := range p.Subs {
		b, err := backend.EncodeString(sub.Name)
		if err != nil {
			return fmt.Errorf("sub name: %w", err)
		}
		names.CString(b)
		if bodies[i], err = encodeSub(sub); err != nil {
			return fmt.Errorf("sub %s: %w", sub.Name, err)
		}
	}
	names.Pad(4)

	var out backend.Writer
	out.Write([]byte(magicFile))
	out.U16(formatRevision)
	out.U16(uint16(includes.Len()))
	out.U32(fileHeaderSize)
	out.U32(0)
	out.U32(uint32(len(p.Subs)))
	for range 4 {
		out.U32(0)
	}
	out.Write(includes.Bytes())

	offset := out.Len() + 4*len(bodies) + names.Len()
	for _, b := range bodies {
		out.U32(uint32(offset))
		offset += len(b)
	}
	out.Write(names.Bytes())
	for _, b := range bodies {
		out.Write(b)
	}

	env.Log().Debug("encoded program", zap.String("family", Name), zap.Int("bytes", out.Len()))
	_, err := w.Write(out.Bytes())
	return err
}

func writeNameList(w *backend.Writer, magic string, names []string) error {
	w.Write([]byte(magic))
	w.U32(uint32(len(names)))
	for _, n := range names {
		b, err := backend.EncodeString(n)
		if err != nil {
			return fmt.Errorf("%s name: %w", magic, err)
		}
		w.CString(b)
	}
	w.Pad(4)
	return nil
}

func encodeSub(sub *ir.Sub) ([]byte, error) {
	var w backend.Writer
	w.Write([]byte(magicSub))
	w.U32(subHeaderSize)
	w.U32(0)
	w.U32(0)
	for _, op := range sub.Ops() {
		size, err := dialect.Size(op)
		if err != nil {
			return nil, fmt.Errorf("ins_%d: %w", op.ID, err)
		}
		if size > 0xffff {
			return nil, fmt.Errorf("ins_%d: instruction too large (%d bytes)", op.ID, size)
		}
		mask, count := backend.Mask(op), backend.Count(op)
		if mask > 0xffff || count > 0xff || op.Rank > 0xff {
			return nil, fmt.Errorf("ins_%d: header field out of range", op.ID)
		}
		w.U32(op.Time)
		w.U16(uint16(op.ID))
		w.U16(uint16(size))
		w.U16(uint16(mask))
		w.U8(uint8(op.Rank))
		w.U8(uint8(count))
		w.U32(0)
		if err := dialect.Codec.EncodeParams(&w, op, sub); err != nil {
			return nil, fmt.Errorf("ins_%d: %w", op.ID, err)
		}
	}
	return w.Bytes(), nil
}
