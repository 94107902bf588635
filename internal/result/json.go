package result

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/perch3d/sceneql/internal/scene"
)

// Serialize renders a Set as the canonical JSON transport payload.
// Infallible for any Set the executor produces: every value is already
// schema-typed and bounded.
//
// The payload is deterministic: row keys appear in projection order,
// strings are NFC normalized, numbers use shortest round-trip formatting
// and nothing is HTML-escaped. Running the same query twice against an
// unchanged scene yields byte-identical output.
func Serialize(s *Set) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"fields":`)
	writeStringArray(&buf, s.Fields)
	buf.WriteString(`,"count":`)
	buf.WriteString(strconv.Itoa(len(s.Rows)))
	buf.WriteString(`,"truncated":`)
	buf.WriteString(strconv.FormatBool(s.Truncated))
	if s.Cancelled {
		buf.WriteString(`,"cancelled":true`)
	}
	buf.WriteString(`,"rows":[`)
	for i, row := range s.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(EncodeRow(s.Fields, row))
	}
	buf.WriteString("]}")
	return buf.Bytes()
}

// EncodeRow renders one row as a JSON object with keys in projection
// order. The executor also uses the encoding to meter payload size and
// to key DISTINCT, so it must stay deterministic.
func EncodeRow(fields []string, row Row) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, name)
		buf.WriteByte(':')
		var v scene.Value
		if i < len(row) {
			v = row[i]
		}
		buf.Write(EncodeValue(v))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// EncodeValue renders a single value in its canonical representation:
// scalars as JSON literals, compounds as fixed-length arrays, references
// as {"id":…,"kind":…} - never the nested entity.
func EncodeValue(v scene.Value) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, v scene.Value) {
	switch val := v.(type) {
	case nil, scene.Null:
		buf.WriteString("null")
	case scene.String:
		writeString(buf, string(val))
	case scene.Enum:
		writeString(buf, string(val))
	case scene.Number:
		writeNumber(buf, float64(val))
	case scene.Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case scene.Vector:
		writeNumberArray(buf, val)
	case scene.Color:
		writeNumberArray(buf, val[:])
	case scene.Matrix:
		writeNumberArray(buf, val[:])
	case scene.Ref:
		writeRef(buf, scene.EntityRef(val))
	case scene.RefList:
		buf.WriteByte('[')
		for i, r := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeRef(buf, r)
		}
		buf.WriteByte(']')
	default:
		// The Value interface is sealed; this cannot happen.
		writeString(buf, fmt.Sprintf("%v", v))
	}
}

func writeRef(buf *bytes.Buffer, r scene.EntityRef) {
	buf.WriteString(`{"id":`)
	writeString(buf, string(r.ID))
	buf.WriteString(`,"kind":`)
	writeString(buf, r.Kind)
	buf.WriteByte('}')
}

func writeNumberArray(buf *bytes.Buffer, fs []float64) {
	buf.WriteByte('[')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeNumber(buf, f)
	}
	buf.WriteByte(']')
}

// writeNumber emits a JSON numeric literal. Non-finite values have no
// JSON form and encode as null.
func writeNumber(buf *bytes.Buffer, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		buf.WriteString("null")
		return
	}
	buf.WriteString(scene.FormatNumber(f))
}

func writeStringArray(buf *bytes.Buffer, ss []string) {
	buf.WriteByte('[')
	for i, s := range ss {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, s)
	}
	buf.WriteByte(']')
}

// writeString emits an NFC-normalized JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
