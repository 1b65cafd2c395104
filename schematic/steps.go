package schematic

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/pkgjson"
	"github.com/mustng65/angular-starter-schematic/workspace"
)

// Material installs the material framework unless it is already a
// dependency, creates the shared material module, fills it with the
// recipe's modules and imports it into the app module.
//
// Files are touched in a fixed order: workspace manifest, module files,
// package manifest.
func Material() Rule {
	return Chain(
		SetupOptions(),
		registerAssets(),
		ensureMaterialModule(),
		updateMaterialFiles(),
		addMaterialFramework(),
		addScripts(),
	)
}

func registerAssets() Rule {
	return func(_ context.Context, c *Context) error {
		if len(c.Recipe.Assets) == 0 {
			return nil
		}
		assets := make([]any, len(c.Recipe.Assets))
		for i, a := range c.Recipe.Assets {
			assets[i] = a
		}
		n, err := workspace.AddAssets(c.Host, c.Workspace.ProjectName, assets)
		if err != nil {
			return fmt.Errorf("registering assets: %w", err)
		}
		c.Log.Debug("assets registered", zap.Int("added", n))
		return nil
	}
}

func ensureMaterialModule() Rule {
	return func(ctx context.Context, c *Context) error {
		if c.Host.Exists(c.SourcePath(c.Recipe.Material.ModuleFile)) {
			return nil
		}
		name := "/" + strings.TrimSuffix(strings.TrimPrefix(c.Recipe.Material.ModuleFile, "app/"), ".module.ts")
		return c.External.Run(ctx, c, "module", map[string]any{
			"name":      name,
			"skipTests": true,
			"flat":      true,
		})
	}
}

func updateMaterialFiles() Rule {
	return func(_ context.Context, c *Context) error {
		m := c.Recipe.Material
		moduleFile := c.SourcePath(m.ModuleFile)

		for _, ref := range m.Imports {
			if _, err := c.Inserter.AddImport(c.Host, moduleFile, ref.Module, ref.From); err != nil {
				return err
			}
		}
		for _, ref := range m.Modules {
			if _, err := c.Inserter.AddImport(c.Host, moduleFile, ref.Module, ref.From); err != nil {
				return err
			}
			if _, err := c.Inserter.AddExport(c.Host, moduleFile, ref.Module, ""); err != nil {
				return err
			}
		}

		importPath := m.ModuleImport
		if importPath == "" {
			importPath = relativeImport(c.Recipe.AppModule, m.ModuleFile)
		}
		_, err := c.Inserter.AddImport(c.Host, c.SourcePath(c.Recipe.AppModule), m.ModuleName, importPath)
		return err
	}
}

func addMaterialFramework() Rule {
	return When(
		func(c *Context) bool { return !c.Manifest.HasDependency(c.Recipe.Material.Package) },
		func(ctx context.Context, c *Context) error {
			return c.External.Run(ctx, c, "material-shell", map[string]any{
				"theme":      "",
				"typography": false,
				"animations": true,
			})
		},
	)
}

func addScripts() Rule {
	return func(_ context.Context, c *Context) error {
		if len(c.Recipe.Scripts) == 0 {
			return nil
		}
		_, err := c.Manifest.AddProperty("scripts", c.Recipe.Scripts)
		return err
	}
}

// FlexLayout imports the flex-layout module into the app module and
// declares the package.
func FlexLayout() Rule {
	return Chain(SetupOptions(), func(_ context.Context, c *Context) error {
		f := c.Recipe.FlexLayout
		if _, err := c.Inserter.AddImport(c.Host, c.SourcePath(c.Recipe.AppModule), f.Module, f.Package); err != nil {
			return err
		}
		_, err := c.Manifest.AddDependency(pkgjson.Dependency{
			Type:    pkgjson.Default,
			Name:    f.Package,
			Version: f.Version,
		})
		return err
	})
}

// Navbar generates the navbar component and merges its templates over it.
func Navbar() Rule {
	return Chain(
		SetupOptions(),
		func(ctx context.Context, c *Context) error {
			return c.External.Run(ctx, c, "component", map[string]any{
				"name":  c.Recipe.Navbar.Name,
				"style": c.Recipe.Navbar.Style,
			})
		},
		MergeTemplates(NavbarTemplates),
	)
}

// Starter runs every setup step and merges the starter templates.
func Starter() Rule {
	return Chain(
		Material(),
		FlexLayout(),
		Navbar(),
		MergeTemplates(StarterTemplates),
	)
}

// relativeImport returns the import path of to as seen from the file from,
// both relative to the source directory, without the .ts extension.
func relativeImport(from, to string) string {
	var fromDir []string
	if dir := path.Dir(from); dir != "." {
		fromDir = strings.Split(dir, "/")
	}
	target := strings.Split(strings.TrimSuffix(to, ".ts"), "/")

	i := 0
	for i < len(fromDir) && i < len(target)-1 && fromDir[i] == target[i] {
		i++
	}
	var parts []string
	for range fromDir[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, target[i:]...)
	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "..") {
		rel = "./" + rel
	}
	return rel
}
