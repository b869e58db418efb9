package ir

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the only serialization used for IR digests and the --ir output.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. No floats and no null (floats are carried as strings by callers)
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalCanonical(buf, arr)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// marshalCanonicalString writes a canonical JSON string with NFC normalization.
// Only control characters, backslash and quote are escaped.
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})

	// encoding/json escapes U+2028 and U+2029 for JavaScript; RFC 8785 does not.
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving an escaped backslash followed by "u2028" intact.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Any other escape: copy both bytes so the next one is never
		// mistaken for the start of a sequence.
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// Document converts p into the generic tree MarshalCanonical accepts.
// Floats are rendered with the shortest float32 representation so the
// document stays exact without violating the no-float rule.
func Document(p *Program) map[string]any {
	subs := make([]any, 0, len(p.Subs))
	for _, s := range p.Subs {
		if s != nil {
			subs = append(subs, subDocument(s))
		}
	}
	data := make([]any, 0, len(p.LocalData))
	for _, d := range p.LocalData {
		if d != nil {
			data = append(data, hex.EncodeToString(d.Data))
		}
	}
	return map[string]any{
		"ir_version": IRVersion,
		"anim":       stringList(p.AnimNames),
		"ecli":       stringList(p.EcliNames),
		"data":       data,
		"subs":       subs,
	}
}

func subDocument(s *Sub) map[string]any {
	labels := make([]any, len(s.Labels))
	for i, l := range s.Labels {
		labels[i] = map[string]any{"name": l.Name, "offset": l.Offset}
	}
	instrs := make([]any, 0, len(s.Instrs))
	for _, in := range s.Instrs {
		instrs = append(instrs, instrDocument(in))
	}
	return map[string]any{
		"name":   s.Name,
		"vars":   stringList(s.Vars),
		"labels": labels,
		"instrs": instrs,
	}
}

func instrDocument(in Instr) map[string]any {
	switch v := in.(type) {
	case TimeMarker:
		return map[string]any{"type": "time", "time": v.Time}
	case RankMarker:
		return map[string]any{"type": "rank", "rank": v.Rank}
	case LabelMarker:
		return map[string]any{"type": "label", "offset": v.Offset}
	case *Op:
		params := make([]any, len(v.Params))
		for i, p := range v.Params {
			params[i] = paramDocument(p)
		}
		doc := map[string]any{
			"type":   "op",
			"id":     v.ID,
			"time":   v.Time,
			"rank":   v.Rank,
			"offset": v.Offset,
			"params": params,
		}
		if v.Ref != "" {
			doc["ref"] = v.Ref
		}
		if v.Raw != nil {
			doc["raw"] = map[string]any{"count": v.Raw.Count, "mask": v.Raw.Mask}
		}
		return doc
	default:
		panic(fmt.Sprintf("ir: unknown instruction %T", in))
	}
}

func paramDocument(p *Param) map[string]any {
	doc := map[string]any{"kind": p.Kind().String()}
	switch v := p.Value().(type) {
	case Int:
		doc["value"] = int64(v)
	case Float:
		doc["value"] = FormatFloat(float32(v))
	case String:
		doc["value"] = string(v)
	case Bytes:
		doc["value"] = hex.EncodeToString(v)
	}
	if p.IsExpression {
		doc["expr"] = true
	}
	if p.Var {
		doc["var"] = true
	}
	if p.Label {
		doc["label"] = true
	}
	return doc
}

// FormatFloat renders f with the shortest representation that parses back
// to the same float32.
func FormatFloat(f float32) string {
	switch {
	case math.IsInf(float64(f), 1):
		return "+Inf"
	case math.IsInf(float64(f), -1):
		return "-Inf"
	case f != f:
		return "NaN"
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
