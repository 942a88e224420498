package keyword

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/c360studio/ensemble/config"
	"gopkg.in/yaml.v3"
)

// ValidationError reports a keyword that does not satisfy its schema item.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// Parse reads the YAML configuration file at path and validates it against
// schema.
//
// Each top-level key is a keyword. A scalar value is one occurrence with one
// argument, a sequence of scalars is one occurrence with several arguments,
// and a sequence of sequences is several occurrences:
//
//	RUNPATH_FILE: runpaths.txt
//	LOAD_WORKFLOW: [wf/export.sh, EXPORT]
//	HOOK_WORKFLOW:
//	  - [EXPORT, POST_SIMULATION]
//	  - [CLEANUP, PRE_UPDATE]
//
// ${VAR} and ${VAR:-default} references are expanded before parsing.
// Unknown keywords are logged and skipped. All validation failures are
// returned together; on failure no Content is returned.
func Parse(path string, schema *Schema, logger *slog.Logger) (*Content, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(config.ExpandEnvWithDefaults(string(data))), &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	content := NewContent(path)
	var errs []error

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode && root.Kind != 0 && !isNull(root) {
		return nil, fmt.Errorf("parse config file %s: top level must be a mapping", path)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		item, ok := schema.Item(key)
		if !ok {
			logger.Warn("Unknown configuration keyword ignored",
				"key", key,
				"file", content.ConfigFile(),
				"line", root.Content[i].Line)
			continue
		}

		occs, err := occurrences(root.Content[i+1])
		if err != nil {
			errs = append(errs, &ValidationError{Key: key, Message: err.Error()})
			continue
		}

		for _, args := range occs {
			resolved, verrs := item.validate(args, content.ConfigDir())
			errs = append(errs, verrs...)
			if len(verrs) == 0 {
				content.Add(key, resolved...)
			}
		}
	}

	for _, key := range schema.Keys() {
		item, _ := schema.Item(key)
		n := content.Occurrences(key)
		if item.required && n == 0 {
			errs = append(errs, &ValidationError{Key: key, Message: "required keyword missing"})
		}
		if !item.multiple && n > 1 {
			errs = append(errs, &ValidationError{Key: key, Message: fmt.Sprintf("may occur at most once, found %d", n)})
		}
		if item.message != "" && n > 0 {
			logger.Warn(item.message, "key", key, "file", content.ConfigFile())
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return content, nil
}

// occurrences converts a keyword value node to argument lists.
func occurrences(node *yaml.Node) ([][]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if isNull(node) {
			return [][]string{{}}, nil
		}
		return [][]string{{node.Value}}, nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return [][]string{{}}, nil
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			occs := make([][]string, 0, len(node.Content))
			for _, child := range node.Content {
				if child.Kind != yaml.SequenceNode {
					return nil, fmt.Errorf("line %d: cannot mix occurrence lists and plain arguments", child.Line)
				}
				args, err := scalars(child)
				if err != nil {
					return nil, err
				}
				occs = append(occs, args)
			}
			return occs, nil
		}
		args, err := scalars(node)
		if err != nil {
			return nil, err
		}
		return [][]string{args}, nil

	default:
		return nil, fmt.Errorf("line %d: value must be a scalar or a list", node.Line)
	}
}

func scalars(node *yaml.Node) ([]string, error) {
	args := make([]string, 0, len(node.Content))
	for _, child := range node.Content {
		if child.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: arguments must be scalars", child.Line)
		}
		args = append(args, child.Value)
	}
	return args, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// validate checks one occurrence and returns its normalized arguments.
func (i *Item) validate(args []string, dir string) ([]string, []error) {
	var errs []error
	fail := func(format string, a ...any) {
		errs = append(errs, &ValidationError{Key: i.key, Message: fmt.Sprintf(format, a...)})
	}

	if len(args) < i.minArgs {
		fail("expected at least %d argument(s), got %d", i.minArgs, len(args))
		return nil, errs
	}
	if i.maxArgs != Unlimited && len(args) > i.maxArgs {
		fail("expected at most %d argument(s), got %d", i.maxArgs, len(args))
		return nil, errs
	}

	resolved := make([]string, len(args))
	for idx, arg := range args {
		if sel, ok := i.selections[idx]; ok && !slices.Contains(sel, arg) {
			fail("argument %d %q must be one of %v", idx+1, arg, sel)
			continue
		}

		switch i.argType(idx) {
		case TypePath, TypeExistingPath:
			p := arg
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			if i.argType(idx) == TypeExistingPath {
				if _, err := os.Stat(p); err != nil {
					fail("argument %d: path %s does not exist", idx+1, p)
					continue
				}
			}
			resolved[idx] = p
		case TypeInt:
			if _, err := strconv.Atoi(arg); err != nil {
				fail("argument %d %q is not an integer", idx+1, arg)
				continue
			}
			resolved[idx] = arg
		default:
			resolved[idx] = arg
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return resolved, nil
}
