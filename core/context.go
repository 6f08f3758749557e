// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the ordered context mapping shared by all entities
// attached to a transaction.
package core

// Context is an ordered mapping from string keys to values. A transaction
// builds one by walking its own field attributes in declaration order, and
// the same order is preserved when the context is propagated into attached
// tables and queries. Order matters: a later field's query may depend on an
// earlier field's already-resolved value.
//
// Keys are unique; setting an existing key replaces its value in place
// without disturbing the order.
type Context struct {
	keys   []string
	values map[string]any
}

// NewContext returns an empty ordered context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores a value under key, appending the key to the iteration order if
// it is not already present.
func (c *Context) Set(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value stored under key, or nil if the key is absent.
func (c *Context) Get(key string) any {
	return c.values[key]
}

// Has reports whether key is present, regardless of its value.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// HasValue reports whether key is present with a non-nil value.
func (c *Context) HasValue(key string) bool {
	v, ok := c.values[key]
	return ok && v != nil
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (c *Context) Keys() []string {
	return c.keys
}

// Len returns the number of keys.
func (c *Context) Len() int {
	return len(c.keys)
}

// Clone returns an independent shallow copy preserving key order.
func (c *Context) Clone() *Context {
	clone := &Context{
		keys:   append([]string(nil), c.keys...),
		values: make(map[string]any, len(c.values)),
	}
	for k, v := range c.values {
		clone.values[k] = v
	}
	return clone
}
