package xref

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Location records encode to a compact pipe-delimited textual form and to a
// fixed-field little-endian binary form. Both directions are exact
// inverses: decoding a just-encoded value reproduces every field.
//
// Text forms:
//
//	SymbolRef  range|usr|kind|role
//	Use        range|role|file-id
//	DeclRef    range|extent|role|file-id
//
// where a range prints as "line:col-line:col".

// String renders the range in its textual wire form.
func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// ParseRange parses the "line:col-line:col" form. Coordinates may be
// negative (sentinel ranges round-trip too), so the separator is the first
// '-' after the start column's digits rather than the first '-' overall.
func ParseRange(s string) (Range, error) {
	var r Range
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return r, fmt.Errorf("range %q: missing ':'", s)
	}
	i := colon + 1
	if i < len(s) && s[i] == '-' {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i >= len(s) || s[i] != '-' {
		return r, fmt.Errorf("range %q: missing '-'", s)
	}
	var err error
	if r.Start, err = parsePos(s[:i]); err != nil {
		return r, fmt.Errorf("range %q: %w", s, err)
	}
	if r.End, err = parsePos(s[i+1:]); err != nil {
		return r, fmt.Errorf("range %q: %w", s, err)
	}
	return r, nil
}

func parsePos(s string) (Pos, error) {
	line, col, ok := strings.Cut(s, ":")
	if !ok {
		return Pos{}, fmt.Errorf("position %q: missing ':'", s)
	}
	l, err := strconv.ParseInt(line, 10, 32)
	if err != nil {
		return Pos{}, err
	}
	c, err := strconv.ParseInt(col, 10, 32)
	if err != nil {
		return Pos{}, err
	}
	return Pos{Line: int32(l), Column: int32(c)}, nil
}

// EncodeSymbolRef renders v in the textual wire form.
func EncodeSymbolRef(v SymbolRef) string {
	return fmt.Sprintf("%s|%d|%d|%d", v.Range, uint64(v.Usr), v.Kind, v.Role)
}

// DecodeSymbolRef parses the textual wire form of a SymbolRef.
func DecodeSymbolRef(s string) (SymbolRef, error) {
	var v SymbolRef
	fields := strings.Split(s, "|")
	if len(fields) != 4 {
		return v, fmt.Errorf("symbol ref %q: want 4 fields, got %d", s, len(fields))
	}
	var err error
	if v.Range, err = ParseRange(fields[0]); err != nil {
		return v, err
	}
	usr, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return v, fmt.Errorf("symbol ref %q: usr: %w", s, err)
	}
	v.Usr = Usr(usr)
	kind, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return v, fmt.Errorf("symbol ref %q: kind: %w", s, err)
	}
	v.Kind = Kind(kind)
	role, err := strconv.ParseUint(fields[3], 10, 16)
	if err != nil {
		return v, fmt.Errorf("symbol ref %q: role: %w", s, err)
	}
	v.Role = Role(role)
	return v, nil
}

// EncodeUse renders v in the textual wire form.
func EncodeUse(v Use) string {
	return fmt.Sprintf("%s|%d|%d", v.Range, v.Role, v.FileID)
}

// DecodeUse parses the textual wire form of a Use.
func DecodeUse(s string) (Use, error) {
	var v Use
	fields := strings.Split(s, "|")
	if len(fields) != 3 {
		return v, fmt.Errorf("use %q: want 3 fields, got %d", s, len(fields))
	}
	var err error
	if v.Range, err = ParseRange(fields[0]); err != nil {
		return v, err
	}
	role, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return v, fmt.Errorf("use %q: role: %w", s, err)
	}
	v.Role = Role(role)
	fid, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return v, fmt.Errorf("use %q: file id: %w", s, err)
	}
	v.FileID = int32(fid)
	return v, nil
}

// EncodeDeclRef renders v in the textual wire form.
func EncodeDeclRef(v DeclRef) string {
	return fmt.Sprintf("%s|%s|%d|%d", v.Range, v.Extent, v.Role, v.FileID)
}

// DecodeDeclRef parses the textual wire form of a DeclRef.
func DecodeDeclRef(s string) (DeclRef, error) {
	var v DeclRef
	fields := strings.Split(s, "|")
	if len(fields) != 4 {
		return v, fmt.Errorf("decl ref %q: want 4 fields, got %d", s, len(fields))
	}
	var err error
	if v.Range, err = ParseRange(fields[0]); err != nil {
		return v, err
	}
	if v.Extent, err = ParseRange(fields[1]); err != nil {
		return v, err
	}
	role, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return v, fmt.Errorf("decl ref %q: role: %w", s, err)
	}
	v.Role = Role(role)
	fid, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		return v, fmt.Errorf("decl ref %q: file id: %w", s, err)
	}
	v.FileID = int32(fid)
	return v, nil
}

// Binary field widths: Range = 4 int32 (16 bytes); SymbolRef = Range +
// uint64 usr + uint8 kind + uint16 role (27); Use = Range + uint16 role +
// int32 file-id (22); DeclRef = Use + Range extent (38).
const (
	RangeBinaryLen     = 16
	SymbolRefBinaryLen = RangeBinaryLen + 8 + 1 + 2
	UseBinaryLen       = RangeBinaryLen + 2 + 4
	DeclRefBinaryLen   = UseBinaryLen + RangeBinaryLen
)

// AppendBinaryRange appends the fixed-field binary form of r.
func AppendBinaryRange(b []byte, r Range) []byte { return appendRange(b, r) }

// ReadBinaryRange decodes the fixed-field binary form of a Range.
func ReadBinaryRange(b []byte) (Range, error) {
	if len(b) < RangeBinaryLen {
		return Range{}, fmt.Errorf("range: want %d bytes, got %d", RangeBinaryLen, len(b))
	}
	return readRange(b), nil
}

func appendRange(b []byte, r Range) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Start.Line))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Start.Column))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.End.Line))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.End.Column))
	return b
}

func readRange(b []byte) Range {
	return Range{
		Start: Pos{
			Line:   int32(binary.LittleEndian.Uint32(b[0:])),
			Column: int32(binary.LittleEndian.Uint32(b[4:])),
		},
		End: Pos{
			Line:   int32(binary.LittleEndian.Uint32(b[8:])),
			Column: int32(binary.LittleEndian.Uint32(b[12:])),
		},
	}
}

// AppendBinarySymbolRef appends the fixed-field binary form of v.
func AppendBinarySymbolRef(b []byte, v SymbolRef) []byte {
	b = appendRange(b, v.Range)
	b = binary.LittleEndian.AppendUint64(b, uint64(v.Usr))
	b = append(b, byte(v.Kind))
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Role))
	return b
}

// ReadBinarySymbolRef decodes the fixed-field binary form of a SymbolRef.
func ReadBinarySymbolRef(b []byte) (SymbolRef, error) {
	if len(b) < SymbolRefBinaryLen {
		return SymbolRef{}, fmt.Errorf("symbol ref: want %d bytes, got %d", SymbolRefBinaryLen, len(b))
	}
	return SymbolRef{
		Range: readRange(b),
		Usr:   Usr(binary.LittleEndian.Uint64(b[16:])),
		Kind:  Kind(b[24]),
		Role:  Role(binary.LittleEndian.Uint16(b[25:])),
	}, nil
}

// AppendBinaryUse appends the fixed-field binary form of v.
func AppendBinaryUse(b []byte, v Use) []byte {
	b = appendRange(b, v.Range)
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Role))
	b = binary.LittleEndian.AppendUint32(b, uint32(v.FileID))
	return b
}

// ReadBinaryUse decodes the fixed-field binary form of a Use.
func ReadBinaryUse(b []byte) (Use, error) {
	if len(b) < UseBinaryLen {
		return Use{}, fmt.Errorf("use: want %d bytes, got %d", UseBinaryLen, len(b))
	}
	return Use{
		Range:  readRange(b),
		Role:   Role(binary.LittleEndian.Uint16(b[16:])),
		FileID: int32(binary.LittleEndian.Uint32(b[18:])),
	}, nil
}

// AppendBinaryDeclRef appends the fixed-field binary form of v.
func AppendBinaryDeclRef(b []byte, v DeclRef) []byte {
	b = AppendBinaryUse(b, v.Use)
	b = appendRange(b, v.Extent)
	return b
}

// ReadBinaryDeclRef decodes the fixed-field binary form of a DeclRef.
func ReadBinaryDeclRef(b []byte) (DeclRef, error) {
	if len(b) < DeclRefBinaryLen {
		return DeclRef{}, fmt.Errorf("decl ref: want %d bytes, got %d", DeclRefBinaryLen, len(b))
	}
	u, err := ReadBinaryUse(b)
	if err != nil {
		return DeclRef{}, err
	}
	return DeclRef{Use: u, Extent: readRange(b[UseBinaryLen:])}, nil
}

// JSON marshals location records through the textual wire form, keeping
// persisted entries compact and diff-friendly.

func (r Range) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *Range) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dec, err := ParseRange(s)
	if err != nil {
		return err
	}
	*r = dec
	return nil
}

func (v SymbolRef) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeSymbolRef(v)) }

func (v *SymbolRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dec, err := DecodeSymbolRef(s)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}

func (v Use) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeUse(v)) }

func (v *Use) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dec, err := DecodeUse(s)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}

func (v DeclRef) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeDeclRef(v)) }

func (v *DeclRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dec, err := DecodeDeclRef(s)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}
