package xref

import (
	"encoding/json"
	"testing"
)

func TestRangeTextForm(t *testing.T) {
	r := Range{Start: Pos{Line: 3, Column: 7}, End: Pos{Line: 3, Column: 12}}
	if got := r.String(); got != "3:7-3:12" {
		t.Errorf("String() = %q, want %q", got, "3:7-3:12")
	}

	back, err := ParseRange("3:7-3:12")
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if back != r {
		t.Errorf("ParseRange = %+v, want %+v", back, r)
	}
}

func TestParseRangeNegative(t *testing.T) {
	// Sentinel ranges carry negative coordinates; the text form must
	// round-trip them exactly.
	for _, r := range []Range{
		{Start: Pos{Line: -1, Column: -1}, End: Pos{Line: -1, Column: -1}},
		{Start: Pos{Line: -1, Column: 0}, End: Pos{Line: 2, Column: 5}},
		{Start: Pos{Line: 3, Column: -2}, End: Pos{Line: -4, Column: 7}},
	} {
		back, err := ParseRange(r.String())
		if err != nil {
			t.Fatalf("ParseRange(%q) failed: %v", r.String(), err)
		}
		if back != r {
			t.Errorf("ParseRange(%q) = %+v, want %+v", r.String(), back, r)
		}
	}
}

func TestParseRangeErrors(t *testing.T) {
	tests := []string{"", "3:7", "3-12", "a:b-c:d", "3:7-3"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseRange(in); err == nil {
				t.Errorf("ParseRange(%q) succeeded, want error", in)
			}
		})
	}
}

func TestSymbolRefTextRoundTrip(t *testing.T) {
	v := SymbolRef{
		Range: Range{Start: Pos{Line: 10, Column: 2}, End: Pos{Line: 10, Column: 8}},
		Usr:   Usr(0xDEADBEEFCAFE),
		Kind:  KindFunc,
		Role:  RoleCall | RoleReference,
	}
	s := EncodeSymbolRef(v)
	back, err := DecodeSymbolRef(s)
	if err != nil {
		t.Fatalf("DecodeSymbolRef(%q) failed: %v", s, err)
	}
	if back != v {
		t.Errorf("round trip changed value: %+v -> %+v", v, back)
	}
}

func TestUseTextRoundTrip(t *testing.T) {
	t.Run("owning file", func(t *testing.T) {
		v := Use{
			Range:  Range{Start: Pos{Line: 0, Column: 4}, End: Pos{Line: 0, Column: 9}},
			Role:   RoleDefinition,
			FileID: -1,
		}
		if got := EncodeUse(v); got != "0:4-0:9|2|-1" {
			t.Errorf("EncodeUse = %q, want %q", got, "0:4-0:9|2|-1")
		}
		back, err := DecodeUse(EncodeUse(v))
		if err != nil {
			t.Fatalf("DecodeUse failed: %v", err)
		}
		if back != v {
			t.Errorf("round trip changed value: %+v -> %+v", v, back)
		}
	})

	t.Run("local file id", func(t *testing.T) {
		v := Use{
			Range:  Range{Start: Pos{Line: 7, Column: 0}, End: Pos{Line: 7, Column: 3}},
			Role:   RoleReference | RoleRead,
			FileID: 2,
		}
		back, err := DecodeUse(EncodeUse(v))
		if err != nil {
			t.Fatalf("DecodeUse failed: %v", err)
		}
		if back != v {
			t.Errorf("round trip changed value: %+v -> %+v", v, back)
		}
	})
}

func TestDeclRefTextRoundTrip(t *testing.T) {
	v := DeclRef{
		Use: Use{
			Range:  Range{Start: Pos{Line: 5, Column: 6}, End: Pos{Line: 5, Column: 10}},
			Role:   RoleDefinition,
			FileID: -1,
		},
		Extent: Range{Start: Pos{Line: 5, Column: 0}, End: Pos{Line: 8, Column: 1}},
	}
	s := EncodeDeclRef(v)
	back, err := DecodeDeclRef(s)
	if err != nil {
		t.Fatalf("DecodeDeclRef(%q) failed: %v", s, err)
	}
	if back != v {
		t.Errorf("round trip changed value: %+v -> %+v", v, back)
	}
}

func TestBinaryForms(t *testing.T) {
	t.Run("symbol ref", func(t *testing.T) {
		v := SymbolRef{
			Range: Range{Start: Pos{Line: 1, Column: 2}, End: Pos{Line: 3, Column: 4}},
			Usr:   Usr(1<<63 | 42),
			Kind:  KindType,
			Role:  RoleReference,
		}
		b := AppendBinarySymbolRef(nil, v)
		if len(b) != SymbolRefBinaryLen {
			t.Fatalf("encoded length = %d, want %d", len(b), SymbolRefBinaryLen)
		}
		back, err := ReadBinarySymbolRef(b)
		if err != nil {
			t.Fatalf("ReadBinarySymbolRef failed: %v", err)
		}
		if back != v {
			t.Errorf("round trip changed value: %+v -> %+v", v, back)
		}
	})

	t.Run("use", func(t *testing.T) {
		v := Use{
			Range:  Range{Start: Pos{Line: 9, Column: 0}, End: Pos{Line: 9, Column: 1}},
			Role:   RoleWrite | RoleReference,
			FileID: -1,
		}
		b := AppendBinaryUse(nil, v)
		if len(b) != UseBinaryLen {
			t.Fatalf("encoded length = %d, want %d", len(b), UseBinaryLen)
		}
		back, err := ReadBinaryUse(b)
		if err != nil {
			t.Fatalf("ReadBinaryUse failed: %v", err)
		}
		if back != v {
			t.Errorf("round trip changed value: %+v -> %+v", v, back)
		}
	})

	t.Run("decl ref", func(t *testing.T) {
		v := DeclRef{
			Use: Use{
				Range:  Range{Start: Pos{Line: 2, Column: 4}, End: Pos{Line: 2, Column: 11}},
				Role:   RoleDeclaration,
				FileID: 3,
			},
			Extent: Range{Start: Pos{Line: 2, Column: 0}, End: Pos{Line: 2, Column: 12}},
		}
		b := AppendBinaryDeclRef(nil, v)
		if len(b) != DeclRefBinaryLen {
			t.Fatalf("encoded length = %d, want %d", len(b), DeclRefBinaryLen)
		}
		back, err := ReadBinaryDeclRef(b)
		if err != nil {
			t.Fatalf("ReadBinaryDeclRef failed: %v", err)
		}
		if back != v {
			t.Errorf("round trip changed value: %+v -> %+v", v, back)
		}
	})

	t.Run("short buffer", func(t *testing.T) {
		if _, err := ReadBinaryUse(make([]byte, UseBinaryLen-1)); err == nil {
			t.Error("ReadBinaryUse on short buffer succeeded, want error")
		}
		if _, err := ReadBinaryDeclRef(make([]byte, DeclRefBinaryLen-1)); err == nil {
			t.Error("ReadBinaryDeclRef on short buffer succeeded, want error")
		}
	})
}

func TestJSONForms(t *testing.T) {
	v := DeclRef{
		Use: Use{
			Range:  Range{Start: Pos{Line: 1, Column: 0}, End: Pos{Line: 1, Column: 5}},
			Role:   RoleDefinition,
			FileID: -1,
		},
		Extent: Range{Start: Pos{Line: 1, Column: 0}, End: Pos{Line: 4, Column: 1}},
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// JSON uses the textual wire form as a string.
	want := `"1:0-1:5|1:0-4:1|2|-1"`
	if string(raw) != want {
		t.Errorf("Marshal = %s, want %s", raw, want)
	}
	var back DeclRef
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != v {
		t.Errorf("round trip changed value: %+v -> %+v", v, back)
	}
}
