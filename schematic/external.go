package schematic

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/pkgjson"
	"github.com/mustng65/angular-starter-schematic/registry"
)

// ErrUnknownSchematic indicates an external schematic the runner cannot provide.
var ErrUnknownSchematic = errors.New("unknown schematic")

// External runs generators that live outside this package.
type External interface {
	Run(ctx context.Context, c *Context, name string, opts map[string]any) error
}

// Builtin provides minimal versions of the generators the setup steps call:
// "module", "component" and "material-shell".
type Builtin struct{}

// Run dispatches to the named generator.
func (Builtin) Run(ctx context.Context, c *Context, name string, opts map[string]any) error {
	if err := SetupOptions()(ctx, c); err != nil {
		return err
	}
	c.Log.Debug("external schematic", zap.String("name", name), zap.Any("options", opts))

	switch name {
	case "module":
		return generateModule(c, opts)
	case "component":
		return generateComponent(c, opts)
	case "material-shell":
		return materialShell(ctx, c)
	}
	return fmt.Errorf("%s: %w", name, ErrUnknownSchematic)
}

func stringOpt(opts map[string]any, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func boolOpt(opts map[string]any, key string) bool {
	v, _ := opts[key].(bool)
	return v
}

// generateModule writes an empty NgModule. name is relative to src/app;
// flat modules are not placed in their own directory.
func generateModule(c *Context, opts map[string]any) error {
	name := strings.Trim(stringOpt(opts, "name", ""), "/")
	if name == "" {
		return fmt.Errorf("module: name is required")
	}
	dir, base := path.Split(name)
	file := dasherize(base)
	target := c.SourcePath("app", dir, file+".module.ts")
	if !boolOpt(opts, "flat") {
		target = c.SourcePath("app", dir, file, file+".module.ts")
	}

	content := fmt.Sprintf(`import { NgModule } from '@angular/core';
import { CommonModule } from '@angular/common';



@NgModule({
  declarations: [],
  imports: [
    CommonModule
  ]
})
export class %sModule { }
`, classify(base))
	return createOnce(c, target, content)
}

// generateComponent writes a component and declares it in the app module.
func generateComponent(c *Context, opts map[string]any) error {
	name := strings.Trim(stringOpt(opts, "name", ""), "/")
	if name == "" {
		return fmt.Errorf("component: name is required")
	}
	style := stringOpt(opts, "style", "css")
	dir, base := path.Split(name)
	file := dasherize(base)
	class := classify(base) + "Component"
	selector := file
	if c.Workspace.Prefix != "" {
		selector = c.Workspace.Prefix + "-" + file
	}
	rel := path.Join(dir, file, file+".component")

	files := make(map[string]string)
	files[rel+".ts"] = fmt.Sprintf(`import { Component, OnInit } from '@angular/core';

@Component({
  selector: '%s',
  templateUrl: './%s.component.html',
  styleUrls: ['./%s.component.%s']
})
export class %s implements OnInit {

  constructor() { }

  ngOnInit(): void {
  }

}
`, selector, file, file, style, class)
	files[rel+".html"] = fmt.Sprintf("<p>%s works!</p>\n", file)
	files[rel+"."+style] = ""
	if !boolOpt(opts, "skipTests") {
		files[rel+".spec.ts"] = fmt.Sprintf(`import { ComponentFixture, TestBed } from '@angular/core/testing';

import { %[1]s } from './%[2]s.component';

describe('%[1]s', () => {
  let component: %[1]s;
  let fixture: ComponentFixture<%[1]s>;

  beforeEach(async () => {
    await TestBed.configureTestingModule({
      declarations: [ %[1]s ]
    })
    .compileComponents();
  });

  beforeEach(() => {
    fixture = TestBed.createComponent(%[1]s);
    component = fixture.componentInstance;
    fixture.detectChanges();
  });

  it('should create', () => {
    expect(component).toBeTruthy();
  });
});
`, class, file)
	}

	for _, suffix := range []string{".ts", ".html", "." + style, ".spec.ts"} {
		content, ok := files[rel+suffix]
		if !ok {
			continue
		}
		if err := createOnce(c, c.SourcePath("app", rel+suffix), content); err != nil {
			return err
		}
	}

	appModule := c.SourcePath(c.Recipe.AppModule)
	if !c.Host.Exists(appModule) {
		c.Log.Debug("no app module to declare the component in", zap.String("path", appModule))
		return nil
	}
	_, err := c.Inserter.AddSymbol(c.Host, appModule, "declarations", class, "./"+rel)
	return err
}

// materialShell declares the material packages at a version matching the
// project's framework major.
func materialShell(ctx context.Context, c *Context) error {
	major := c.Manifest.FrameworkMajorVersion(pkgjson.DefaultFrameworkMajor)
	reqs := []registry.Request{
		{Name: c.Recipe.Material.Package, Major: major},
		{Name: "@angular/cdk", Major: major},
	}

	var pkgs []registry.Package
	if c.Registry != nil {
		pkgs = c.Registry.LookupAll(ctx, reqs)
	} else {
		for _, r := range reqs {
			pkgs = append(pkgs, registry.Package{Name: r.Name, Version: registry.DefaultVersion(r.Major), Fallback: true})
		}
	}

	for _, p := range pkgs {
		version := p.Version
		if !p.Fallback && version != "latest" {
			version = "^" + version
		}
		if _, err := c.Manifest.AddDependency(pkgjson.Dependency{Type: pkgjson.Default, Name: p.Name, Version: version}); err != nil {
			return fmt.Errorf("adding %s: %w", p.Name, err)
		}
		c.Log.Info("dependency added", zap.String("package", p.Name), zap.String("version", version))
	}
	return nil
}

// createOnce creates path, leaving an existing file alone.
func createOnce(c *Context, p, content string) error {
	err := c.Host.Create(p, []byte(content))
	if errors.Is(err, filetree.ErrAlreadyExists) {
		c.Log.Debug("file exists, keeping it", zap.String("path", p))
		return nil
	}
	return err
}

// dasherize converts "materialComponents" or "Material Components" to
// "material-components".
func dasherize(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == ' ' || r == '_' || r == '.':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// classify converts "material-components" to "MaterialComponents".
func classify(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range dasherize(s) {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
