package proxy

import (
	"strings"

	bridge "github.com/wippyai/objc-bridge"
)

// Class is the proxy record of a foreign class.
type Class struct {
	super   *Class
	methods map[string]*Method
	name    string
	order   []string
	skipped []SkippedMethod
	handle  bridge.Pointer
}

// SkippedMethod is a method left out of a class because it could not be resolved.
type SkippedMethod struct {
	Err      error
	Selector string
	Types    string
}

func newClass(name string, handle bridge.Pointer, super *Class) *Class {
	return &Class{
		name:    name,
		handle:  handle,
		super:   super,
		methods: make(map[string]*Method),
	}
}

// add stores m under its name and returns the method it replaced, if any.
func (c *Class) add(m *Method) *Method {
	prev, exists := c.methods[m.name]
	if !exists {
		c.order = append(c.order, m.name)
	}
	c.methods[m.name] = m
	return prev
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// Handle returns the foreign class handle.
func (c *Class) Handle() bridge.Pointer {
	return c.handle
}

// Super returns the superclass record, nil for root classes.
func (c *Class) Super() *Class {
	return c.super
}

// Lookup finds a method by name on the class or its ancestors.
func (c *Class) Lookup(name string) (*Method, bool) {
	for k := c; k != nil; k = k.super {
		if m, ok := k.methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// OwnMethods returns the names of methods declared on this class, in
// enumeration order.
func (c *Class) OwnMethods() []string {
	return append([]string(nil), c.order...)
}

// Methods returns every method name resolvable on the class: its own
// first, then inherited ones not shadowed by a subclass.
func (c *Class) Methods() []string {
	seen := make(map[string]bool)
	var names []string
	for k := c; k != nil; k = k.super {
		for _, name := range k.order {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Skipped returns the methods left out while building this class.
func (c *Class) Skipped() []SkippedMethod {
	return append([]SkippedMethod(nil), c.skipped...)
}

func methodName(selector string) string {
	return strings.ReplaceAll(selector, ":", "_")
}
