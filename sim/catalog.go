package sim

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

// Catalog describes classes to install into a Process.
//
//	[[class]]
//	name = "Sound"
//	super = "NSObject"
//
//	[[class.method]]
//	selector = "initWithPath:"
//	types = "@24@0:8@16"
//	returns = "self"
type Catalog struct {
	Classes []CatalogClass `toml:"class"`
}

// CatalogClass is one class entry. An empty Super defaults to NSObject.
type CatalogClass struct {
	Name    string          `toml:"name"`
	Super   string          `toml:"super"`
	Methods []CatalogMethod `toml:"method"`
}

// CatalogMethod is one scripted method.
//
// Kind is "instance" (default) or "class". Returns selects the behaviour:
//
//	self    the receiver
//	nil     zero (default)
//	alloc   a new instance of the receiving class
//	arg     the first explicit argument
//	value   Value, coerced to the return type
//	string  a new NSString holding Value
type CatalogMethod struct {
	Value    any    `toml:"value"`
	Selector string `toml:"selector"`
	Types    string `toml:"types"`
	Kind     string `toml:"kind"`
	Returns  string `toml:"returns"`
}

// LoadCatalog decodes a TOML catalog from r.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(errors.PhaseCatalog, errors.KindInvalidData, err, "decode catalog")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile decodes the TOML catalog at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCatalog, errors.KindNotFound, err, path)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (c *Catalog) validate() error {
	for _, cls := range c.Classes {
		if cls.Name == "" {
			return errors.InvalidInput(errors.PhaseCatalog, "class without name")
		}
		for _, m := range cls.Methods {
			if m.Selector == "" || m.Types == "" {
				return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
					Path(cls.Name).
					Detail("method needs selector and types").
					Build()
			}
			switch m.Kind {
			case "", "instance", "class":
			default:
				return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
					Path(cls.Name, m.Selector).
					Detail("unknown method kind %q", m.Kind).
					Build()
			}
			switch m.Returns {
			case "", "nil", "self", "alloc", "arg", "value", "string":
			default:
				return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
					Path(cls.Name, m.Selector).
					Detail("unknown return behaviour %q", m.Returns).
					Build()
			}
		}
	}
	return nil
}

// Install defines every class in the catalog, in order.
func (p *Process) Install(c *Catalog) error {
	for _, entry := range c.Classes {
		super := entry.Super
		if super == "" {
			super = "NSObject"
		}
		cls, err := p.DefineClass(entry.Name, super)
		if err != nil {
			return err
		}
		for _, m := range entry.Methods {
			impl := scripted(m)
			if m.Kind == "class" {
				cls.ClassMethod(m.Selector, m.Types, impl)
			} else {
				cls.InstanceMethod(m.Selector, m.Types, impl)
			}
		}
	}
	return nil
}

func scripted(m CatalogMethod) Impl {
	return func(c *Call) (any, error) {
		switch m.Returns {
		case "self":
			return c.Self, nil
		case "alloc":
			return c.Proc.allocInstance(c.Self)
		case "arg":
			if len(c.Args) == 0 {
				return nil, errors.New(errors.PhaseDispatch, errors.KindArgumentCount).
					Path(m.Selector).
					Detail("no argument to return").
					Build()
			}
			return c.Args[0], nil
		case "value":
			return m.Value, nil
		case "string":
			return c.Proc.NewString(fmt.Sprint(m.Value)), nil
		default:
			return bridge.Pointer(0), nil
		}
	}
}
