package workflow

import (
	"maps"
	"slices"
)

// Context is the key/value substitution list available to running
// workflows. The interpreter exports it as environment variables.
type Context struct {
	values map[string]string
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]string)}
}

// Set stores value under key, replacing any previous value.
func (c *Context) Set(key, value string) {
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (c *Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Size returns the number of entries.
func (c *Context) Size() int { return len(c.values) }

// With returns a copy of c overlaid with extra. c is not modified.
func (c *Context) With(extra map[string]string) *Context {
	out := &Context{values: maps.Clone(c.values)}
	if out.values == nil {
		out.values = make(map[string]string)
	}
	maps.Copy(out.values, extra)
	return out
}

// Environ renders the context as KEY=value pairs in key order.
func (c *Context) Environ() []string {
	env := make([]string, 0, len(c.values))
	for _, k := range c.Keys() {
		env = append(env, k+"="+c.values[k])
	}
	return env
}
