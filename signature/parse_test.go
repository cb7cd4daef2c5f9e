package signature

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/convert"
	bridgeerrors "github.com/wippyai/objc-bridge/errors"
)

func TestNext(t *testing.T) {
	tests := []struct {
		in       string
		wantTok  string
		wantRest string
	}{
		{"@24@0:8", "@", "@0:8"},
		{":8*16", ":", "*16"},
		{"v", "v", ""},
		{"v@:", "v", "@:"},
		{"r*16", "r*", ""},
		{"Vv16@0:8", "Vv", "@0:8"},
		{"@?16", "@?", ""},
		{`@"NSString"16@0:8`, `@"NSString"`, "@0:8"},
		{"^{CGPoint=dd}16", "^{CGPoint=dd}", ""},
		{"{CGRect={CGPoint=dd}{CGSize=dd}}32@0:8", "{CGRect={CGPoint=dd}{CGSize=dd}}", "@0:8"},
		{"[16c]24", "[16c]", ""},
		{"(?=iq)8", "(?=iq)", ""},
		{"^^S8", "^^S", ""},
		{`{Named="a"i"b"{Inner=d}}8`, `{Named="a"i"b"{Inner=d}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tok, rest, err := Next(tt.in)
			if err != nil {
				t.Fatalf("Next(%q): %v", tt.in, err)
			}
			if tok != tt.wantTok || rest != tt.wantRest {
				t.Errorf("Next(%q) = (%q, %q), want (%q, %q)", tt.in, tok, rest, tt.wantTok, tt.wantRest)
			}
		})
	}
}

func TestNext_Malformed(t *testing.T) {
	for _, in := range []string{"{CGPoint=dd", "^", "r", "[4i}", `@"NSString`} {
		t.Run(in, func(t *testing.T) {
			if _, _, err := Next(in); !errors.Is(err, bridgeerrors.ErrUnsupportedTypeEncoding) {
				t.Errorf("Next(%q) err = %v, want unsupported encoding", in, err)
			}
		})
	}
}

func TestSimplify(t *testing.T) {
	tests := map[string]string{
		"^{CGPoint=dd}":  "^{}",
		"^[4i]":          "^[]",
		"^(u=iq)":        "^()",
		"^{}":            "^{}",
		"^v":             "^v",
		"{CGPoint=dd}":   "{CGPoint=dd}",
		`@"NSString"`:    "@",
		"@?":             "@?",
		"^^{__CFString}": "^^{__CFString}",
	}
	for in, want := range tests {
		if got := Simplify(in); got != want {
			t.Errorf("Simplify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	reg := convert.Default()

	tests := []struct {
		name       string
		encoding   string
		wantID     string
		wantRet    bridge.Type
		wantParams []string
	}{
		{
			name:     "no arguments",
			encoding: "@16@0:8",
			wantID:   "pointerpointerpointer",
			wantRet:  bridge.TypePointer,
		},
		{
			name:       "c string argument",
			encoding:   "@24@0:8*16",
			wantID:     "pointerpointerpointerpointer",
			wantRet:    bridge.TypePointer,
			wantParams: []string{"*"},
		},
		{
			name:       "bool and object",
			encoding:   "@28@0:8@16c24",
			wantID:     "pointerpointerpointerpointerchar",
			wantRet:    bridge.TypePointer,
			wantParams: []string{"@", "c"},
		},
		{
			name:     "void",
			encoding: "v16@0:8",
			wantID:   "voidpointerpointer",
			wantRet:  bridge.TypeVoid,
		},
		{
			name:       "qualified const char",
			encoding:   "@24@0:8r*16",
			wantID:     "pointerpointerpointerpointer",
			wantRet:    bridge.TypePointer,
			wantParams: []string{"*"},
		},
		{
			name:       "pointer to struct simplified",
			encoding:   "v24@0:8^{CGPoint=dd}16",
			wantID:     "voidpointerpointerpointer",
			wantRet:    bridge.TypeVoid,
			wantParams: []string{"^{}"},
		},
		{
			name:       "numbers",
			encoding:   "d40@0:8i16q20f28Q32",
			wantID:     "doublepointerpointerintint64floatuint64",
			wantRet:    bridge.TypeDouble,
			wantParams: []string{"i", "q", "f", "Q"},
		},
		{
			name:       "without offsets",
			encoding:   "v@:@",
			wantID:     "voidpointerpointerpointer",
			wantRet:    bridge.TypeVoid,
			wantParams: []string{"@"},
		},
		{
			name:       "block argument",
			encoding:   "v24@0:8@?16",
			wantID:     "voidpointerpointerpointer",
			wantRet:    bridge.TypeVoid,
			wantParams: []string{"@?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Parse(tt.encoding, reg)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.encoding, err)
			}
			if sig.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", sig.ID, tt.wantID)
			}
			if sig.ReturnType() != tt.wantRet {
				t.Errorf("ReturnType = %v, want %v", sig.ReturnType(), tt.wantRet)
			}
			var params []string
			for _, p := range sig.Params() {
				params = append(params, p.Tag)
			}
			if diff := cmp.Diff(tt.wantParams, params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
			if len(sig.Args) != len(tt.wantParams)+ImplicitArgs {
				t.Errorf("len(Args) = %d, want %d", len(sig.Args), len(tt.wantParams)+ImplicitArgs)
			}
		})
	}
}

func TestParse_Qualifiers(t *testing.T) {
	sig, err := Parse("Vv32@0:8r*16No^v24", convert.Default())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Qualifier{QualifierOneway}, sig.Return.Qualifiers); diff != "" {
		t.Errorf("return qualifiers (-want +got):\n%s", diff)
	}
	params := sig.Params()
	if diff := cmp.Diff([]Qualifier{QualifierConst}, params[0].Qualifiers); diff != "" {
		t.Errorf("param 0 qualifiers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Qualifier{QualifierInOut, QualifierOut}, params[1].Qualifiers); diff != "" {
		t.Errorf("param 1 qualifiers (-want +got):\n%s", diff)
	}
	if params[0].Encoding != "*" {
		t.Errorf("Encoding = %q, want qualifiers stripped", params[0].Encoding)
	}
	if QualifierByRef.String() != "byref" {
		t.Errorf("String() = %q", QualifierByRef.String())
	}
}

func TestParse_ArgumentTypes(t *testing.T) {
	sig, err := Parse("c24@0:8@16", convert.Default())
	if err != nil {
		t.Fatal(err)
	}
	want := []bridge.Type{bridge.TypePointer, bridge.TypePointer, bridge.TypePointer}
	if diff := cmp.Diff(want, sig.ArgumentTypes()); diff != "" {
		t.Errorf("ArgumentTypes (-want +got):\n%s", diff)
	}
}

func TestParse_SameShapeSameID(t *testing.T) {
	a, err := Parse("@16@0:8", convert.Default())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(`#16@0:8`, convert.Default())
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("IDs differ: %q vs %q", a.ID, b.ID)
	}
}

func TestParse_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		wantTag  string
	}{
		{"struct return", "{CGRect={CGPoint=dd}{CGSize=dd}}16@0:8", "{CGRect={CGPoint=dd}{CGSize=dd}}"},
		{"struct argument", "v32@0:8{CGPoint=dd}16", "{CGPoint=dd}"},
		{"bitfield", "v20@0:8b4", "b"},
		{"pointer to pointer", "v24@0:8^^i16", "^^i"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.encoding, convert.Default())
			var e *bridgeerrors.Error
			if !errors.As(err, &e) {
				t.Fatalf("Parse(%q) err = %v, want *errors.Error", tt.encoding, err)
			}
			if e.Kind != bridgeerrors.KindUnsupportedTypeEncoding {
				t.Errorf("Kind = %v", e.Kind)
			}
			if e.Encoding != tt.wantTag {
				t.Errorf("Encoding = %q, want %q", e.Encoding, tt.wantTag)
			}
		})
	}
}

func TestParse_MissingImplicitArgs(t *testing.T) {
	for _, enc := range []string{"v", "v8@0"} {
		if _, err := Parse(enc, convert.Default()); !errors.Is(err, bridgeerrors.ErrUnsupportedTypeEncoding) {
			t.Errorf("Parse(%q) err = %v", enc, err)
		}
	}
}
