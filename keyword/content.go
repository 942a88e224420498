package keyword

import (
	"path/filepath"
)

// Content holds the validated keyword occurrences of one configuration file.
// Path-typed arguments have already been resolved to absolute paths.
type Content struct {
	file  string
	items map[string][][]string
}

// NewContent creates empty content attributed to the configuration file at
// path. Parse uses it internally; callers building content by hand (tests,
// embedding hosts) use Add.
func NewContent(path string) *Content {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Content{
		file:  path,
		items: make(map[string][][]string),
	}
}

// Add appends one occurrence of key with the given arguments.
func (c *Content) Add(key string, args ...string) {
	c.items[key] = append(c.items[key], append([]string(nil), args...))
}

// ConfigFile returns the absolute path of the configuration file.
func (c *Content) ConfigFile() string { return c.file }

// ConfigDir returns the directory containing the configuration file.
func (c *Content) ConfigDir() string { return filepath.Dir(c.file) }

// Has reports whether key occurs at least once.
func (c *Content) Has(key string) bool {
	return len(c.items[key]) > 0
}

// Occurrences returns how many times key occurs.
func (c *Content) Occurrences(key string) int {
	return len(c.items[key])
}

// Args returns the arguments of occurrence occ of key.
func (c *Content) Args(key string, occ int) []string {
	return append([]string(nil), c.items[key][occ]...)
}

// Get returns argument arg of occurrence occ of key.
func (c *Content) Get(key string, occ, arg int) string {
	return c.items[key][occ][arg]
}

// Value returns the first argument of the last occurrence of key, or "" if
// key is absent.
func (c *Content) Value(key string) string {
	occs := c.items[key]
	if len(occs) == 0 || len(occs[len(occs)-1]) == 0 {
		return ""
	}
	return occs[len(occs)-1][0]
}

// ValueAsAbsPath returns Value(key) resolved against the configuration
// directory when it is relative.
func (c *Content) ValueAsAbsPath(key string) string {
	v := c.Value(key)
	if v == "" || filepath.IsAbs(v) {
		return v
	}
	return filepath.Join(c.ConfigDir(), v)
}
