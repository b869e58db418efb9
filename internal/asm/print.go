package asm

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/eclmap"
	"github.com/roach88/thecl/internal/ir"
)

const indent = "    "

var identPattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// Print writes p in the text form. The output parses back to a Program
// that compiles to the same bytes as p.
func Print(w io.Writer, p *ir.Program, d *Dialect, maps *eclmap.Set) error {
	pr := &printer{w: bufio.NewWriter(w), d: d, maps: maps}
	pr.program(p)
	return pr.w.Flush()
}

type printer struct {
	w    *bufio.Writer
	d    *Dialect
	maps *eclmap.Set
	sep  bool
}

func (pr *printer) printf(format string, args ...any) {
	fmt.Fprintf(pr.w, format, args...)
}

// block starts a top-level block, separated from the previous one.
func (pr *printer) block(header string) {
	if pr.sep {
		pr.printf("\n")
	}
	pr.sep = true
	pr.printf("%s {\n", header)
}

func (pr *printer) program(p *ir.Program) {
	if len(p.AnimNames) > 0 {
		pr.names(KeywordAnim, p.AnimNames)
	}
	if len(p.EcliNames) > 0 {
		pr.names(KeywordEcli, p.EcliNames)
	}
	if len(p.LocalData) > 0 {
		pr.block(KeywordData)
		for _, d := range p.LocalData {
			pr.printf("%s%s;\n", indent, formatBytes(d.Data))
		}
		pr.printf("}\n")
	}
	for _, s := range p.Subs {
		pr.sub(s)
	}
}

func (pr *printer) names(kind string, names []string) {
	pr.block(kind)
	for _, n := range names {
		pr.printf("%s%s;\n", indent, strconv.Quote(n))
	}
	pr.printf("}\n")
}

func (pr *printer) sub(s *ir.Sub) {
	pr.block(KeywordSub + " " + subName(s.Name))
	if len(s.Vars) > 0 {
		pr.printf("%s%s %s;\n", indent, KeywordVar, strings.Join(s.Vars, " "))
	}
	printed := make(map[uint32]bool)
	for _, in := range s.Instrs {
		switch v := in.(type) {
		case ir.TimeMarker:
			pr.printf("%s%d:\n", indent, v.Time)
		case ir.RankMarker:
			pr.printf("%s!%s\n", indent, pr.d.Rank.Format(v.Rank))
		case ir.LabelMarker:
			if printed[v.Offset] {
				continue
			}
			printed[v.Offset] = true
			names := s.LabelsAt(v.Offset)
			if len(names) == 0 {
				names = []string{backend.LabelName(v.Offset)}
			}
			for _, n := range names {
				pr.printf("%s:\n", n)
			}
		case *ir.Op:
			pr.op(s, v)
		}
	}
	pr.printf("}\n")
}

func (pr *printer) op(s *ir.Sub, op *ir.Op) {
	name, ok := pr.maps.OpcodeName(op.ID)
	if !ok {
		name = fmt.Sprintf("ins_%d", op.ID)
	}
	pr.printf("%s%s", indent, name)
	if op.Raw != nil {
		pr.printf("<%d, 0x%x>", op.Raw.Count, op.Raw.Mask)
	}
	params := make([]string, len(op.Params))
	for i, p := range op.Params {
		params[i] = pr.param(s, p)
	}
	pr.printf("(%s);", strings.Join(params, ", "))
	if op.Ref != "" {
		pr.printf(" // %s", op.Ref)
	}
	pr.printf("\n")
}

func (pr *printer) param(s *ir.Sub, p *ir.Param) string {
	switch {
	case p.Label:
		return p.Str()
	case p.Var && p.Kind() == ir.KindInt:
		return "$" + pr.varName(s, p.Int())
	case p.Var && p.Kind() == ir.KindFloat:
		return "%" + pr.varName(s, int64(p.Float()))
	}
	switch v := p.Value().(type) {
	case ir.Int:
		return strconv.FormatInt(int64(v), 10)
	case ir.Float:
		return ir.FormatFloat(float32(v)) + "f"
	case ir.String:
		return strconv.Quote(string(v))
	case ir.Bytes:
		return formatBytes(v)
	}
	return ""
}

// varName names a variable number: a local when it addresses one, a global
// when the map names it and no local shadows the name, the number otherwise.
func (pr *printer) varName(s *ir.Sub, n int64) string {
	if n >= 0 && n%4 == 0 && n/4 < int64(len(s.Vars)) {
		return s.Vars[n/4]
	}
	if n >= -1<<31 && n < 1<<31 {
		if name, ok := pr.maps.GlobalName(int(n)); ok {
			if _, local := s.VarIndex(name); !local {
				return name
			}
		}
	}
	return strconv.FormatInt(n, 10)
}

func subName(name string) string {
	if identPattern.MatchString(name) && !isKeyword(name) {
		return name
	}
	return strconv.Quote(name)
}

func formatBytes(b []byte) string {
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = hex.EncodeToString(b[i : i+1])
	}
	return "#[" + strings.Join(parts, " ") + "]"
}
