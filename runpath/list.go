// Package runpath keeps the list of realization run directories and writes
// it to the export file read by external workflows.
package runpath

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultFileName is the export file name used when the case configuration
// does not set RUNPATH_FILE.
const DefaultFileName = ".ert_runpath_list"

// Node is one realization run directory.
type Node struct {
	Member    int
	Iteration int
	Runpath   string
	Basename  string
}

// List is the ordered set of run directories for one case.
type List struct {
	exportFile string
	nodes      []Node
}

// New creates an empty list exporting to exportFile.
func New(exportFile string) *List {
	return &List{exportFile: exportFile}
}

// ExportFile returns the path the list is exported to.
func (l *List) ExportFile() string { return l.exportFile }

// SetExportFile changes the export path.
func (l *List) SetExportFile(path string) { l.exportFile = path }

// Add appends a run directory.
func (l *List) Add(member, iteration int, runpath, basename string) {
	l.nodes = append(l.nodes, Node{
		Member:    member,
		Iteration: iteration,
		Runpath:   runpath,
		Basename:  basename,
	})
}

// Clear removes all run directories.
func (l *List) Clear() { l.nodes = nil }

// Size returns the number of run directories.
func (l *List) Size() int { return len(l.nodes) }

// Nodes returns the run directories sorted by iteration, then member.
func (l *List) Nodes() []Node {
	nodes := append([]Node(nil), l.nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Iteration != nodes[j].Iteration {
			return nodes[i].Iteration < nodes[j].Iteration
		}
		return nodes[i].Member < nodes[j].Member
	})
	return nodes
}

// Export writes the list to the export file, one line per run directory:
//
//	<member>  <runpath>  <basename>  <iteration>
//
// with member and iteration zero padded to three digits. Missing parent
// directories are created.
func (l *List) Export() (err error) {
	if l.exportFile == "" {
		return fmt.Errorf("runpath export file not set")
	}
	if err := os.MkdirAll(filepath.Dir(l.exportFile), 0755); err != nil {
		return fmt.Errorf("create runpath export directory: %w", err)
	}

	f, err := os.Create(l.exportFile)
	if err != nil {
		return fmt.Errorf("create runpath export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close runpath export file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for _, n := range l.Nodes() {
		fmt.Fprintf(w, "%03d  %s  %s  %03d\n", n.Member, n.Runpath, n.Basename, n.Iteration)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write runpath export file: %w", err)
	}
	return nil
}
