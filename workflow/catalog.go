package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/ensemble/keyword"
)

// Configuration keywords handled by the catalog.
const (
	LoadWorkflowKey      = "LOAD_WORKFLOW"
	WorkflowDirectoryKey = "WORKFLOW_DIRECTORY"
)

// Catalog maps workflow names to workflow files. It is safe for concurrent
// use because the directory watcher adds workflows from its own goroutine.
type Catalog struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	context   *Context
	logger    *slog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		workflows: make(map[string]*Workflow),
		context:   NewContext(),
		logger:    logger,
	}
}

// AddWorkflow registers the workflow file at path under name. An empty name
// is derived from the file name. Registering an existing name replaces it;
// references handed out earlier stay valid.
func (c *Catalog) AddWorkflow(path, name string) (*Workflow, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("add workflow %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("add workflow %s: not a regular file", path)
	}
	if name == "" {
		name = NameFromPath(path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("add workflow %s: %w", path, err)
	}

	wf := New(name, abs)

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.workflows[name]; ok && prev.path != abs {
		c.logger.Debug("Replacing workflow", "name", name, "old_path", prev.path, "path", abs)
	}
	c.workflows[name] = wf
	return wf, nil
}

// HasWorkflow reports whether name is registered.
func (c *Catalog) HasWorkflow(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.workflows[name]
	return ok
}

// Workflow returns the workflow registered under name.
func (c *Catalog) Workflow(name string) (*Workflow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wf, ok := c.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}
	return wf, nil
}

// Names returns all workflow names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of registered workflows.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.workflows)
}

// Context returns the execution context handed to running workflows.
func (c *Catalog) Context() *Context {
	return c.context
}

// LoadGlob registers every regular file matching pattern. A pattern without
// glob characters is treated as a directory and all files directly inside it
// are loaded. "**" matches across directories. Returns the number of
// workflows added.
func (c *Catalog) LoadGlob(pattern string) (int, error) {
	pattern = globPattern(pattern)

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return 0, fmt.Errorf("glob %q: %w", pattern, err)
	}

	added := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if strings.HasPrefix(filepath.Base(match), ".") {
			continue
		}
		if _, err := c.AddWorkflow(match, ""); err != nil {
			c.logger.Warn("Failed to load workflow", "path", match, "error", err)
			continue
		}
		added++
	}

	c.logger.Debug("Loaded workflows", "pattern", pattern, "count", added)
	return added, nil
}

// RegisterSchema adds the catalog keywords to s.
func RegisterSchema(s *keyword.Schema) {
	s.Add(LoadWorkflowKey).Args(1, 2).Multiple().Type(0, keyword.TypeExistingPath)
	s.Add(WorkflowDirectoryKey).Multiple().Type(0, keyword.TypePath)
}

// Load applies LOAD_WORKFLOW and WORKFLOW_DIRECTORY occurrences from content.
func (c *Catalog) Load(content *keyword.Content) error {
	for i := 0; i < content.Occurrences(WorkflowDirectoryKey); i++ {
		if _, err := c.LoadGlob(content.Get(WorkflowDirectoryKey, i, 0)); err != nil {
			return err
		}
	}

	for i := 0; i < content.Occurrences(LoadWorkflowKey); i++ {
		args := content.Args(LoadWorkflowKey, i)
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		if _, err := c.AddWorkflow(args[0], name); err != nil {
			return err
		}
	}
	return nil
}

// globPattern turns a plain directory into a pattern matching the files
// directly inside it. Patterns are returned cleaned.
func globPattern(entry string) string {
	if !strings.ContainsAny(entry, "*?[{") {
		return filepath.Join(entry, "*")
	}
	return filepath.Clean(entry)
}

// splitGlob returns the directory to watch for entry and the pattern files
// in it must match. The directory is the part of the pattern before the
// first glob character.
func splitGlob(entry string) (dir, pattern string) {
	pattern = globPattern(entry)
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base), pattern
}
