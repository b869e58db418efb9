package th10

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// Open decodes a th10 family file. Sections must follow each other with no
// gaps, which is the only layout Compile produces.
func (*Module) Open(r io.Reader, version uint, env *backend.Env) (*ir.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	p := ir.NewProgram()
	if err := decode(backend.NewReader(data), p); err != nil {
		p.Free()
		return nil, err
	}
	env.Log().Debug("decoded program",
		zap.String("family", Name), zap.Uint("version", version), zap.Int("subs", len(p.Subs)))
	return p, nil
}

func decode(r *backend.Reader, p *ir.Program) error {
	if err := r.Magic(magicFile); err != nil {
		return err
	}
	at := r.Offset()
	rev, err := r.U16()
	if err != nil {
		return err
	}
	if rev != formatRevision {
		return backend.Errorf(at, "unsupported revision %d", rev)
	}
	includeLength, err := r.U16()
	if err != nil {
		return err
	}
	at = r.Offset()
	includeOffset, err := r.U32()
	if err != nil {
		return err
	}
	if includeOffset != fileHeaderSize {
		return backend.Errorf(at, "include offset %#x does not match layout", includeOffset)
	}
	if err := r.Zero("reserved field"); err != nil {
		return err
	}
	subCount, err := r.U32()
	if err != nil {
		return err
	}
	for range 4 {
		if err := r.Zero("reserved field"); err != nil {
			return err
		}
	}

	includeStart := r.Offset()
	if p.AnimNames, err = readNameList(r, magicAnim); err != nil {
		return err
	}
	if p.EcliNames, err = readNameList(r, magicEcli); err != nil {
		return err
	}
	if r.Offset()-includeStart != int(includeLength) {
		return backend.Errorf(includeStart, "include length %d does not match layout", includeLength)
	}

	if int(subCount) > r.Remaining()/4 {
		return backend.Errorf(r.Offset(), "sub count %d exceeds input", subCount)
	}
	offsets := make([]uint32, subCount)
	for i := range offsets {
		if offsets[i], err = r.U32(); err != nil {
			return err
		}
	}
	names, err := readNames(r, int(subCount))
	if err != nil {
		return err
	}
	if err := r.ZeroPad(4); err != nil {
		return err
	}

	for i, name := range names {
		if int64(offsets[i]) != int64(r.Offset()) {
			return backend.Errorf(r.Offset(), "sub offset %#x does not match layout", offsets[i])
		}
		end := r.Len()
		if i+1 < len(offsets) {
			end = int(offsets[i+1])
		}
		if end < r.Offset() || end > r.Len() {
			return backend.Errorf(r.Offset(), "sub %s has a bad extent", name)
		}

		sub := ir.NewSub(name)
		if err := p.AddSub(sub); err != nil {
			sub.Free()
			return backend.Errorf(r.Offset(), "%v", err)
		}
		if err := decodeSub(r, sub, end); err != nil {
			return err
		}
	}
	if r.Remaining() != 0 {
		return backend.Errorf(r.Offset(), "%d trailing bytes", r.Remaining())
	}
	return nil
}

// readNameList reads a magic, a count and that many names, then padding.
func readNameList(r *backend.Reader, magic string) ([]string, error) {
	if err := r.Magic(magic); err != nil {
		return nil, err
	}
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Remaining() {
		return nil, backend.Errorf(r.Offset(), "%s count %d exceeds input", magic, n)
	}
	names, err := readNames(r, int(n))
	if err != nil {
		return nil, err
	}
	return names, r.ZeroPad(4)
}

func readNames(r *backend.Reader, n int) ([]string, error) {
	names := make([]string, 0, n)
	for range n {
		at := r.Offset()
		raw, err := r.CString()
		if err != nil {
			return nil, err
		}
		name, ok := backend.DecodeString(raw)
		if !ok {
			return nil, backend.Errorf(at, "name %q is not valid Shift-JIS", raw)
		}
		names = append(names, name)
	}
	return names, nil
}

func decodeSub(r *backend.Reader, sub *ir.Sub, end int) error {
	if err := r.Magic(magicSub); err != nil {
		return err
	}
	at := r.Offset()
	size, err := r.U32()
	if err != nil {
		return err
	}
	if size != subHeaderSize {
		return backend.Errorf(at, "sub header size %d does not match layout", size)
	}
	for range 2 {
		if err := r.Zero("sub header field"); err != nil {
			return err
		}
	}

	start := r.Offset()
	time, rank := uint32(0), dialect.Rank.Full()
	for r.Offset() < end {
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
		mask, err := r.U16()
		if err != nil {
			return err
		}
		rk, err := r.U8()
		if err != nil {
			return err
		}
		count, err := r.U8()
		if err != nil {
			return err
		}
		if err := r.Zero("instruction field"); err != nil {
			return err
		}
		if size < instrHeaderSize || at+int(size) > end {
			return backend.Errorf(at, "bad instruction size %d", size)
		}
		payload, err := r.Bytes(int(size) - instrHeaderSize)
		if err != nil {
			return err
		}

		offset := uint32(at - start)
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
		dialect.Codec.DecodeParams(op, payload, int(count), uint32(mask))
		sub.Append(op)
	}
	sub.Append(ir.NewLabel(uint32(r.Offset() - start)))
	return nil
}
