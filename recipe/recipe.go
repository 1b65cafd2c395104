// Package recipe describes what each setup step adds, loaded from YAML.
package recipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/mustng65/angular-starter-schematic/tmpl"
)

// ErrInvalidRecipe indicates a recipe that cannot drive the setup steps.
var ErrInvalidRecipe = errors.New("invalid recipe")

// ModuleRef is a module symbol and the path it is imported from.
type ModuleRef struct {
	Module string `yaml:"module"`
	From   string `yaml:"from"`
}

// Material configures the material step. File paths are relative to the
// project's source directory.
type Material struct {
	Package      string      `yaml:"package"`
	ModuleFile   string      `yaml:"moduleFile"`
	ModuleName   string      `yaml:"moduleName"`
	ModuleImport string      `yaml:"moduleImport"` // import path used by the app module
	Imports      []ModuleRef `yaml:"imports"`      // imported only
	Modules      []ModuleRef `yaml:"modules"`      // imported and re-exported
}

// FlexLayout configures the flex-layout step.
type FlexLayout struct {
	Package string `yaml:"package"`
	Version string `yaml:"version"`
	Module  string `yaml:"module"`
}

// Navbar configures the navbar step.
type Navbar struct {
	Name  string `yaml:"name"`
	Style string `yaml:"style"`
}

// Templates filters and resolves the template merges.
type Templates struct {
	Policy  string   `yaml:"policy"`
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Recipe holds the configuration of every step.
type Recipe struct {
	AppModule  string            `yaml:"appModule"`
	Material   Material          `yaml:"material"`
	FlexLayout FlexLayout        `yaml:"flexLayout"`
	Navbar     Navbar            `yaml:"navbar"`
	Templates  Templates         `yaml:"templates"`
	Assets     []string          `yaml:"assets,omitempty"`
	Scripts    map[string]string `yaml:"scripts,omitempty"`
}

// Default returns the built-in starter recipe.
func Default() *Recipe {
	return &Recipe{
		AppModule: "app/app.module.ts",
		Material: Material{
			Package:      "@angular/material",
			ModuleFile:   "app/core/material-components.module.ts",
			ModuleName:   "MaterialComponentsModule",
			ModuleImport: "./core/material-components.module",
			Imports: []ModuleRef{
				{Module: "FormsModule", From: "@angular/forms"},
			},
			Modules: []ModuleRef{
				{Module: "MatToolbarModule", From: "@angular/material/toolbar"},
				{Module: "MatButtonModule", From: "@angular/material/button"},
				{Module: "MatInputModule", From: "@angular/material/input"},
				{Module: "MatIconModule", From: "@angular/material/icon"},
			},
		},
		FlexLayout: FlexLayout{
			Package: "@angular/flex-layout",
			Version: "~10.0.0-beta",
			Module:  "FlexLayoutModule",
		},
		Navbar: Navbar{
			Name:  "/common/navbar",
			Style: "scss",
		},
		Templates: Templates{
			Policy: "overwrite",
		},
	}
}

// Load reads a recipe file. Fields the file leaves out keep their defaults.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a recipe over the defaults and validates it.
func Parse(data []byte) (*Recipe, error) {
	r := Default()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing recipe file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadOrDefault loads path, or returns the default recipe when path is empty.
func LoadOrDefault(path string) (*Recipe, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks required fields and glob syntax.
func (r *Recipe) Validate() error {
	if r.AppModule == "" {
		return fmt.Errorf("appModule is empty: %w", ErrInvalidRecipe)
	}
	if r.Material.ModuleFile == "" || r.Material.ModuleName == "" {
		return fmt.Errorf("material module is incomplete: %w", ErrInvalidRecipe)
	}
	for _, m := range append(append([]ModuleRef{}, r.Material.Imports...), r.Material.Modules...) {
		if m.Module == "" || m.From == "" {
			return fmt.Errorf("material entry %+v needs module and from: %w", m, ErrInvalidRecipe)
		}
	}
	if _, err := tmpl.ParsePolicy(r.Templates.Policy); err != nil {
		return fmt.Errorf("templates: %v: %w", err, ErrInvalidRecipe)
	}
	for _, pattern := range append(append([]string{}, r.Templates.Include...), r.Templates.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("template pattern %q: %w", pattern, ErrInvalidRecipe)
		}
	}
	return nil
}

// Save writes the recipe as YAML.
func (r *Recipe) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling recipe: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
