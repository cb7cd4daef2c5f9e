package signature

import (
	"strings"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/convert"
	"github.com/wippyai/objc-bridge/errors"
)

// ImplicitArgs is the number of leading argument slots holding the receiver
// and the selector. Every method encoding carries them.
const ImplicitArgs = 2

// Qualifier is a type qualifier prefix.
type Qualifier byte

const (
	QualifierConst  Qualifier = 'r'
	QualifierIn     Qualifier = 'n'
	QualifierInOut  Qualifier = 'N'
	QualifierOut    Qualifier = 'o'
	QualifierByCopy Qualifier = 'O'
	QualifierByRef  Qualifier = 'R'
	QualifierOneway Qualifier = 'V'
)

var qualifierNames = map[Qualifier]string{
	QualifierConst:  "const",
	QualifierIn:     "in",
	QualifierInOut:  "inout",
	QualifierOut:    "out",
	QualifierByCopy: "bycopy",
	QualifierByRef:  "byref",
	QualifierOneway: "oneway",
}

func (q Qualifier) String() string {
	if name, ok := qualifierNames[q]; ok {
		return name
	}
	return string(q)
}

func isQualifier(c byte) bool {
	_, ok := qualifierNames[Qualifier(c)]
	return ok
}

// Type is one parsed slot of a signature.
type Type struct {
	Converter  *convert.Converter
	Encoding   string // token as written, without qualifiers
	Tag        string // simplified tag used for converter lookup
	Qualifiers []Qualifier
}

// NativeType returns the calling-convention type of the slot.
func (t Type) NativeType() bridge.Type {
	return t.Converter.Type
}

// Signature is a parsed method type encoding.
type Signature struct {
	ID     string
	Return Type
	Args   []Type
}

// Params returns the argument slots visible to callers.
func (s *Signature) Params() []Type {
	return s.Args[ImplicitArgs:]
}

// ReturnType returns the native return type.
func (s *Signature) ReturnType() bridge.Type {
	return s.Return.NativeType()
}

// ArgumentTypes returns the native types of all argument slots,
// including receiver and selector.
func (s *Signature) ArgumentTypes() []bridge.Type {
	types := make([]bridge.Type, len(s.Args))
	for i, a := range s.Args {
		types[i] = a.NativeType()
	}
	return types
}

// Parse parses encoding and resolves every type against reg.
func Parse(encoding string, reg *convert.Registry) (*Signature, error) {
	if encoding == "" {
		return nil, errors.UnsupportedTypeEncoding("")
	}

	var id strings.Builder

	ret, rest, err := parseType(encoding, reg)
	if err != nil {
		return nil, err
	}
	id.WriteString(string(ret.NativeType()))

	var args []Type
	for rest != "" {
		var t Type
		t, rest, err = parseType(rest, reg)
		if err != nil {
			return nil, err
		}
		id.WriteString(string(t.NativeType()))
		args = append(args, t)
	}

	if len(args) < ImplicitArgs {
		return nil, errors.New(errors.PhaseParse, errors.KindUnsupportedTypeEncoding).
			Encoding(encoding).
			Value(encoding).
			Detail("missing receiver and selector slots").
			Build()
	}

	return &Signature{
		ID:     id.String(),
		Return: ret,
		Args:   args,
	}, nil
}

func parseType(s string, reg *convert.Registry) (Type, string, error) {
	tok, rest, err := Next(s)
	if err != nil {
		return Type{}, "", err
	}

	var quals []Qualifier
	for len(tok) > 0 && isQualifier(tok[0]) {
		quals = append(quals, Qualifier(tok[0]))
		tok = tok[1:]
	}

	tag := Simplify(tok)
	conv, ok := reg.Lookup(tag)
	if !ok {
		return Type{}, "", errors.UnsupportedTypeEncoding(tag)
	}

	return Type{
		Converter:  conv,
		Encoding:   tok,
		Tag:        tag,
		Qualifiers: quals,
	}, rest, nil
}

// Next splits the first type token, qualifiers included, off s and skips
// the stack offset digits that follow it.
func Next(s string) (tok, rest string, err error) {
	i := 0
	for i < len(s) && isQualifier(s[i]) {
		i++
	}
	for i < len(s) && s[i] == '^' {
		i++
	}
	if i >= len(s) {
		return "", "", errors.UnsupportedTypeEncoding(s)
	}

	var end int
	switch s[i] {
	case '[', '{', '(':
		end, err = skipAggregate(s, i)
		if err != nil {
			return "", "", err
		}
	case '@':
		end = i + 1
		if end < len(s) {
			switch s[end] {
			case '?':
				end++
			case '"':
				q := strings.IndexByte(s[end+1:], '"')
				if q < 0 {
					return "", "", errors.UnsupportedTypeEncoding(s[i:])
				}
				end += q + 2
			}
		}
	default:
		end = i + 1
	}

	tok = s[:end]
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	return tok, s[end:], nil
}

// skipAggregate returns the index just past the aggregate opened at s[start].
func skipAggregate(s string, start int) (int, error) {
	var stack []byte
	inName := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			inName = !inName
			continue
		}
		if inName {
			continue
		}
		switch c {
		case '[', '{', '(':
			stack = append(stack, closing(c))
		case ']', '}', ')':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, errors.UnsupportedTypeEncoding(s[start:])
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, errors.UnsupportedTypeEncoding(s[start:])
}

// Simplify collapses pointer-to-aggregate tokens to their 3-character form
// and drops class-name annotations from object tokens.
func Simplify(tok string) string {
	if len(tok) >= 2 && tok[0] == '^' {
		switch tok[1] {
		case '[', '{', '(':
			return tok[:2] + string(closing(tok[1]))
		}
	}
	if len(tok) > 1 && tok[0] == '@' && tok[1] == '"' {
		return "@"
	}
	return tok
}

func closing(open byte) byte {
	switch open {
	case '[':
		return ']'
	case '{':
		return '}'
	default:
		return ')'
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
