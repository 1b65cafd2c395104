package schematic

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/mustng65/angular-starter-schematic/filetree"
)

// Template sets bundled with the binary. Each set keeps its files under
// <set>/src, mirroring a project's source directory.
const (
	StarterTemplates = "starter"
	NavbarTemplates  = "navbar"
)

//go:embed all:files
var templateFS embed.FS

// EmbeddedTemplates returns the bundled template sets as a Source.
func EmbeddedTemplates() (filetree.Source, error) {
	sub, err := fs.Sub(templateFS, "files")
	if err != nil {
		return nil, fmt.Errorf("opening embedded templates: %w", err)
	}
	return filetree.NewFSSource(sub), nil
}
