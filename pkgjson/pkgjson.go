// Package pkgjson reads and edits the package manifest (package.json).
package pkgjson

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/jsonedit"
)

// Path is the manifest location in the tree.
const Path = "package.json"

// DefaultIndent is the column of keys added by AddProperty.
const DefaultIndent = 4

// FrameworkPackage is the package whose version decides the framework major.
const FrameworkPackage = "@angular/core"

// DefaultFrameworkMajor is assumed when the framework is not a dependency.
const DefaultFrameworkMajor = "7"

// DependencyType names a dependency section of the manifest.
type DependencyType string

const (
	Default  DependencyType = "dependencies"
	Dev      DependencyType = "devDependencies"
	Peer     DependencyType = "peerDependencies"
	Optional DependencyType = "optionalDependencies"
)

// DependencyTypes are searched in this order.
var DependencyTypes = []DependencyType{Default, Dev, Peer, Optional}

// Dependency is one declared package.
type Dependency struct {
	Type    DependencyType
	Name    string
	Version string
}

// Manifest edits the package manifest held in a file tree.
type Manifest struct {
	host   filetree.Host
	merger *jsonedit.Merger
	indent int
}

// New binds a manifest editor to host. indent <= 0 uses DefaultIndent.
func New(host filetree.Host, indent int, log *zap.Logger) *Manifest {
	if indent <= 0 {
		indent = DefaultIndent
	}
	return &Manifest{host: host, merger: jsonedit.NewMerger(log), indent: indent}
}

func (m *Manifest) root() (*jsonedit.Node, error) {
	content, err := m.host.Read(Path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", Path, err)
	}
	root, err := jsonedit.ParseObject(content)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", Path, err)
	}
	return root, nil
}

// GetDependency returns the declaration of name, or nil when it is absent
// or the manifest cannot be read.
func (m *Manifest) GetDependency(name string) *Dependency {
	root, err := m.root()
	if err != nil {
		return nil
	}
	for _, t := range DependencyTypes {
		if v := root.Find(string(t), name); v != nil && v.Kind == jsonedit.KindString {
			return &Dependency{Type: t, Name: name, Version: v.Str}
		}
	}
	return nil
}

// HasDependency reports whether name is declared in any section.
func (m *Manifest) HasDependency(name string) bool {
	return m.GetDependency(name) != nil
}

// AddDependency declares dep in its section, keeping the section's keys in
// order. An existing declaration in that section is overwritten.
func (m *Manifest) AddDependency(dep Dependency) (jsonedit.MergeResult, error) {
	if dep.Type == "" {
		dep.Type = Default
	}
	return m.merger.MergeProperty(m.host, Path, string(dep.Type), map[string]any{dep.Name: dep.Version}, m.indent)
}

// AddProperty merges values into the top-level property name.
func (m *Manifest) AddProperty(name string, values map[string]string) (jsonedit.MergeResult, error) {
	return m.merger.MergeProperty(m.host, Path, name, values, m.indent)
}

// FrameworkMajorVersion returns the major version declared for the
// framework package, or fallback when it is not a dependency.
func (m *Manifest) FrameworkMajorVersion(fallback string) string {
	dep := m.GetDependency(FrameworkPackage)
	if dep == nil {
		return fallback
	}
	return MajorOf(dep.Version, fallback)
}

// MajorOf extracts the major component of a version range such as
// "~10.1.0" or "^9.0.0-rc.1".
func MajorOf(version, fallback string) string {
	v := strings.TrimLeft(strings.TrimSpace(version), "~^=v>< ")
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return fallback
	}
	return v[:end]
}
