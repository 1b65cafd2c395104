// Package workspace reads the workspace manifest (angular.json) and
// resolves the project a run operates on.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"reflect"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/jsonedit"
)

var (
	// ErrNoWorkspace indicates that no workspace manifest exists.
	ErrNoWorkspace = errors.New("workspace manifest not found")

	// ErrProjectNotFound indicates an unknown or missing project.
	ErrProjectNotFound = errors.New("project not found")

	// ErrNoBuildTarget indicates a project without build asset options.
	ErrNoBuildTarget = errors.New("build target not found")
)

// ManifestPaths are tried in order.
var ManifestPaths = []string{"angular.json", ".angular.json"}

// Project is one entry of the manifest's projects map.
type Project struct {
	Name       string
	Root       string
	SourceRoot string
	Prefix     string

	node *jsonedit.Node
}

// Workspace is a parsed manifest.
type Workspace struct {
	Path           string
	DefaultProject string
	Projects       []*Project // manifest order
}

// Read locates and parses the workspace manifest in host.
func Read(host filetree.Host) (*Workspace, error) {
	for _, p := range ManifestPaths {
		if !host.Exists(p) {
			continue
		}
		content, err := host.Read(p)
		if err != nil {
			return nil, err
		}
		return parseManifest(p, content)
	}
	return nil, ErrNoWorkspace
}

func parseManifest(p string, content []byte) (*Workspace, error) {
	root, err := jsonedit.ParseLoose(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	if root.Kind != jsonedit.KindObject {
		return nil, fmt.Errorf("%s: %w", p, jsonedit.ErrInvalidDocument)
	}

	ws := &Workspace{Path: p}
	if def := root.Find("defaultProject"); def != nil && def.Kind == jsonedit.KindString {
		ws.DefaultProject = def.Str
	}
	projects := root.Find("projects")
	if projects == nil || projects.Kind != jsonedit.KindObject {
		return ws, nil
	}
	for _, prop := range projects.Properties {
		ws.Projects = append(ws.Projects, &Project{
			Name:       prop.Key,
			Root:       stringAt(prop.Value, "root"),
			SourceRoot: stringAt(prop.Value, "sourceRoot"),
			Prefix:     stringAt(prop.Value, "prefix"),
			node:       prop.Value,
		})
	}
	return ws, nil
}

func stringAt(n *jsonedit.Node, key string) string {
	if v := n.Find(key); v != nil && v.Kind == jsonedit.KindString {
		return v.Str
	}
	return ""
}

// Project returns the named project. An empty name selects the default
// project, or the first project when no default is declared.
func (w *Workspace) Project(name string) (*Project, error) {
	if name == "" {
		name = w.DefaultProject
	}
	if name == "" {
		if len(w.Projects) == 0 {
			return nil, fmt.Errorf("%s declares no projects: %w", w.Path, ErrProjectNotFound)
		}
		return w.Projects[0], nil
	}
	for _, p := range w.Projects {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrProjectNotFound)
}

// Context is the resolved target of a run.
type Context struct {
	ProjectName string
	Root        string
	Prefix      string
	SourcePath  string // <root>/src
}

// ResolveContext reads the manifest and resolves project.
func ResolveContext(host filetree.Host, project string) (Context, error) {
	ws, err := Read(host)
	if err != nil {
		return Context{}, err
	}
	p, err := ws.Project(project)
	if err != nil {
		return Context{}, err
	}
	return Context{
		ProjectName: p.Name,
		Root:        p.Root,
		Prefix:      p.Prefix,
		SourcePath:  filetree.Normalize(path.Join(p.Root, "src")),
	}, nil
}

// buildAssets returns the assets array of a project's build target.
// Both "architect" and "targets" spellings are accepted.
func (p *Project) buildAssets() *jsonedit.Node {
	for _, key := range []string{"architect", "targets"} {
		if n := p.node.Find(key, "build", "options", "assets"); n != nil && n.Kind == jsonedit.KindArray {
			return n
		}
	}
	return nil
}

// AddAssets appends assets to the build options of project, skipping any
// already listed. It returns the number added.
func AddAssets(host filetree.Host, project string, assets []any) (int, error) {
	ws, err := Read(host)
	if err != nil {
		return 0, err
	}
	p, err := ws.Project(project)
	if err != nil {
		return 0, err
	}
	content, err := host.Read(ws.Path)
	if err != nil {
		return 0, err
	}
	list := p.buildAssets()
	if list == nil {
		return 0, fmt.Errorf("project %s: %w", p.Name, ErrNoBuildTarget)
	}

	var missing []any
	for _, a := range assets {
		if !containsValue(list, content, a) && !containsAny(missing, a) {
			missing = append(missing, a)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	rec, err := host.BeginUpdate(ws.Path)
	if err != nil {
		return 0, err
	}
	if err := jsonedit.NewEditor(rec).AppendElements(list, missing, 0); err != nil {
		host.Discard(rec)
		return 0, fmt.Errorf("adding assets to %s: %w", p.Name, err)
	}
	if err := host.CommitUpdate(rec); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// canonical round-trips v through JSON so values compare structurally.
func canonical(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func containsValue(list *jsonedit.Node, content []byte, v any) bool {
	want := canonical(v)
	for _, el := range list.Elements {
		var got any
		if err := json.Unmarshal([]byte(el.Text(content)), &got); err != nil {
			continue
		}
		if reflect.DeepEqual(got, want) {
			return true
		}
	}
	return false
}

func containsAny(values []any, v any) bool {
	want := canonical(v)
	for _, x := range values {
		if reflect.DeepEqual(canonical(x), want) {
			return true
		}
	}
	return false
}
