// Package keyword parses case configuration files into validated keyword
// records.
//
// A Schema is an explicit value describing the accepted keywords: how many
// arguments each takes, how arguments are typed, which closed sets they are
// drawn from and whether the keyword may repeat. Components add their own
// items to a shared Schema before Parse runs, so no process-wide registry is
// involved.
package keyword

import "sort"

// ArgType controls how a single keyword argument is checked and normalized.
type ArgType int

const (
	// TypeString accepts any value verbatim.
	TypeString ArgType = iota
	// TypePath resolves the value against the configuration file directory.
	TypePath
	// TypeExistingPath is TypePath plus a check that the path exists.
	TypeExistingPath
	// TypeInt requires a base-10 integer.
	TypeInt
)

// Unlimited is used as the max argument count of variadic items.
const Unlimited = -1

// Item describes one keyword. Items are built with the chaining setters
// returned from Schema.Add.
type Item struct {
	key        string
	minArgs    int
	maxArgs    int
	multiple   bool
	required   bool
	types      map[int]ArgType
	selections map[int][]string
	message    string
}

// Key returns the keyword name.
func (i *Item) Key() string { return i.key }

// Args sets the accepted argument count range. Use Unlimited for max to
// accept any number of trailing arguments.
func (i *Item) Args(min, max int) *Item {
	i.minArgs = min
	i.maxArgs = max
	return i
}

// Multiple allows the keyword to occur more than once.
func (i *Item) Multiple() *Item {
	i.multiple = true
	return i
}

// Required makes the keyword mandatory.
func (i *Item) Required() *Item {
	i.required = true
	return i
}

// Type sets the type of the argument at index.
func (i *Item) Type(index int, t ArgType) *Item {
	i.types[index] = t
	return i
}

// Selection restricts the argument at index to the given values.
func (i *Item) Selection(index int, values ...string) *Item {
	i.selections[index] = append([]string(nil), values...)
	return i
}

// Message installs a notice logged whenever the keyword is present,
// typically a deprecation.
func (i *Item) Message(msg string) *Item {
	i.message = msg
	return i
}

func (i *Item) argType(index int) ArgType {
	if t, ok := i.types[index]; ok {
		return t
	}
	return TypeString
}

// Schema is the set of keywords accepted by Parse.
type Schema struct {
	items map[string]*Item
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{items: make(map[string]*Item)}
}

// Add registers a keyword taking exactly one string argument and returns it
// for further configuration. Adding an existing key replaces its definition.
func (s *Schema) Add(key string) *Item {
	item := &Item{
		key:        key,
		minArgs:    1,
		maxArgs:    1,
		types:      make(map[int]ArgType),
		selections: make(map[int][]string),
	}
	s.items[key] = item
	return item
}

// Item returns the definition for key.
func (s *Schema) Item(key string) (*Item, bool) {
	item, ok := s.items[key]
	return item, ok
}

// Keys returns all registered keywords in sorted order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
