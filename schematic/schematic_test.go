package schematic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/recipe"
)

const angularJSON = `{
  "version": 1,
  "projects": {
    "shop": {
      "root": "",
      "sourceRoot": "src",
      "prefix": "app",
      "architect": {
        "build": {
          "options": {
            "assets": [
              "src/favicon.ico"
            ]
          }
        }
      }
    }
  },
  "defaultProject": "shop"
}
`

const packageJSON = `{
    "name": "shop",
    "version": "0.0.0",
    "dependencies": {
        "@angular/common": "~10.0.2",
        "@angular/core": "~10.0.2",
        "rxjs": "~6.5.5"
    }
}
`

const appModule = `import { BrowserModule } from '@angular/platform-browser';
import { NgModule } from '@angular/core';

import { AppComponent } from './app.component';

@NgModule({
  declarations: [
    AppComponent
  ],
  imports: [
    BrowserModule
  ],
  providers: [],
  bootstrap: [AppComponent]
})
export class AppModule { }
`

func project(extra map[string]string) *filetree.Tree {
	src := filetree.MapSource{
		"angular.json":               []byte(angularJSON),
		"package.json":               []byte(packageJSON),
		"src/app/app.module.ts":      []byte(appModule),
		"src/app/app.component.html": []byte("<h1>{{title}}</h1>\n"),
	}
	for p, c := range extra {
		src[p] = []byte(c)
	}
	return filetree.New(src)
}

func newContext(t *testing.T, host filetree.Host, opts Options) *Context {
	t.Helper()
	c, err := NewContext(host, opts)
	require.NoError(t, err)
	return c
}

func read(t *testing.T, host filetree.Host, p string) string {
	t.Helper()
	data, err := host.Read(p)
	require.NoError(t, err)
	return string(data)
}

func snapshot(t *testing.T, tree *filetree.Tree) map[string]string {
	t.Helper()
	files, err := tree.Files()
	require.NoError(t, err)
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f] = read(t, tree, f)
	}
	return out
}

// recordingExternal delegates to Builtin and remembers what was asked for.
type recordingExternal struct {
	calls []string
}

func (r *recordingExternal) Run(ctx context.Context, c *Context, name string, opts map[string]any) error {
	r.calls = append(r.calls, name)
	return Builtin{}.Run(ctx, c, name, opts)
}

func TestStarter(t *testing.T) {
	tree := project(nil)
	c := newContext(t, tree, Options{})

	require.NoError(t, Run(context.Background(), c, "starter", Starter()))

	assert.Equal(t, "shop", c.Workspace.ProjectName)
	assert.Equal(t, "src", c.Workspace.SourcePath)

	material := read(t, tree, "src/app/core/material-components.module.ts")
	for _, want := range []string{
		"export class MaterialComponentsModule { }",
		"import { FormsModule } from '@angular/forms';",
		"import { MatToolbarModule } from '@angular/material/toolbar';",
		"import { MatButtonModule } from '@angular/material/button';",
		"import { MatInputModule } from '@angular/material/input';",
		"import { MatIconModule } from '@angular/material/icon';",
		"exports: [",
	} {
		assert.Contains(t, material, want)
	}
	assert.Regexp(t, `imports: \[\s*CommonModule,\s*FormsModule,\s*MatToolbarModule`, material)
	assert.Regexp(t, `exports: \[MatToolbarModule, MatButtonModule, MatInputModule, MatIconModule\]`, material)

	app := read(t, tree, "src/app/app.module.ts")
	assert.Contains(t, app, "import { MaterialComponentsModule } from './core/material-components.module';")
	assert.Contains(t, app, "import { FlexLayoutModule } from '@angular/flex-layout';")
	assert.Contains(t, app, "import { NavbarComponent } from './common/navbar/navbar.component';")
	assert.Regexp(t, `declarations: \[\s*AppComponent,\s*NavbarComponent\s*\]`, app)
	assert.Regexp(t, `imports: \[\s*BrowserModule,\s*MaterialComponentsModule,\s*FlexLayoutModule\s*\]`, app)

	pkg := read(t, tree, "package.json")
	assert.Contains(t, pkg, `"@angular/flex-layout": "~10.0.0-beta"`)
	assert.Contains(t, pkg, `"@angular/material": "latest"`)
	assert.Contains(t, pkg, `"@angular/cdk": "latest"`)

	navbar := read(t, tree, "src/app/common/navbar/navbar.component.html")
	assert.Contains(t, navbar, "<span>shop</span>")
	assert.NotContains(t, navbar, "navbar works!")
	assert.True(t, tree.Exists("src/app/common/navbar/navbar.component.ts"))
	assert.Contains(t, read(t, tree, "src/app/common/navbar/navbar.component.ts"), "selector: 'app-navbar'")

	html := read(t, tree, "src/app/app.component.html")
	assert.Contains(t, html, "<app-navbar></app-navbar>")

	spec := read(t, tree, "src/app/app.component.spec.ts")
	assert.Contains(t, spec, "expect(app.title).toEqual('shop');")
	assert.NotContains(t, spec, "<%=")
}

func TestStarter_Idempotent(t *testing.T) {
	tree := project(nil)
	require.NoError(t, Starter()(context.Background(), newContext(t, tree, Options{})))
	first := snapshot(t, tree)

	require.NoError(t, Starter()(context.Background(), newContext(t, tree, Options{})))
	assert.Equal(t, first, snapshot(t, tree))
}

func TestMaterial_SkipsShellWhenInstalled(t *testing.T) {
	pkg := `{
  "dependencies": {
    "@angular/core": "^9.1.0",
    "@angular/material": "^9.2.0"
  }
}
`
	tree := project(map[string]string{"package.json": pkg})
	ext := &recordingExternal{}
	c := newContext(t, tree, Options{External: ext})

	require.NoError(t, Material()(context.Background(), c))

	assert.Equal(t, []string{"module"}, ext.calls)
	assert.Equal(t, pkg, read(t, tree, "package.json"))
}

func TestMaterial_NoFrameworkDependency(t *testing.T) {
	tree := project(map[string]string{"package.json": "{\n  \"name\": \"shop\"\n}\n"})
	c := newContext(t, tree, Options{})

	require.NoError(t, Material()(context.Background(), c))

	pkg := read(t, tree, "package.json")
	assert.Contains(t, pkg, `"@angular/material": "7.0.0-beta.24"`)
	assert.Contains(t, pkg, `"@angular/cdk": "7.0.0-beta.24"`)
}

func TestMaterial_ExistingModuleKept(t *testing.T) {
	existing := `import { NgModule } from '@angular/core';

@NgModule({
  exports: [MatIconModule]
})
export class MaterialComponentsModule { }
`
	tree := project(map[string]string{"src/app/core/material-components.module.ts": existing})
	ext := &recordingExternal{}
	c := newContext(t, tree, Options{External: ext})

	require.NoError(t, Material()(context.Background(), c))

	assert.NotContains(t, ext.calls, "module")
	got := read(t, tree, "src/app/core/material-components.module.ts")
	assert.Contains(t, got, "exports: [MatIconModule, MatToolbarModule, MatButtonModule, MatInputModule]")
	assert.Contains(t, got, "imports: [FormsModule, MatToolbarModule")
}

func TestMaterial_AssetsAndScripts(t *testing.T) {
	r := recipe.Default()
	r.Assets = []string{"src/assets"}
	r.Scripts = map[string]string{"lint": "ng lint"}

	tree := project(nil)
	c := newContext(t, tree, Options{Recipe: r})
	require.NoError(t, Material()(context.Background(), c))

	assert.Regexp(t, `"src/favicon.ico",\s*"src/assets"`, read(t, tree, "angular.json"))
	assert.Contains(t, read(t, tree, "package.json"), `"lint": "ng lint"`)
}

func TestSetupOptions_ProjectNotFound(t *testing.T) {
	c := newContext(t, project(nil), Options{Project: "missing"})
	err := FlexLayout()(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving project")
}

func TestBuiltin_UnknownSchematic(t *testing.T) {
	c := newContext(t, project(nil), Options{})
	err := Builtin{}.Run(context.Background(), c, "service", nil)
	assert.ErrorIs(t, err, ErrUnknownSchematic)
}

func TestBuiltin_Module(t *testing.T) {
	tree := project(nil)
	c := newContext(t, tree, Options{})

	require.NoError(t, Builtin{}.Run(context.Background(), c, "module", map[string]any{"name": "shared/widgets"}))
	got := read(t, tree, "src/app/shared/widgets/widgets.module.ts")
	assert.Contains(t, got, "export class WidgetsModule { }")

	err := Builtin{}.Run(context.Background(), c, "module", map[string]any{})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var order []string
	step := func(name string, err error) Rule {
		return func(context.Context, *Context) error {
			order = append(order, name)
			return err
		}
	}
	boom := errors.New("boom")

	err := Chain(step("a", nil), Noop(), step("b", boom), step("c", nil))(context.Background(), &Context{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, order)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	order = nil
	err = Chain(step("a", nil))(ctx, &Context{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, order)
}

func TestWhen(t *testing.T) {
	ran := false
	rule := func(context.Context, *Context) error { ran = true; return nil }

	require.NoError(t, When(func(*Context) bool { return false }, rule)(context.Background(), &Context{}))
	assert.False(t, ran)
	require.NoError(t, When(func(*Context) bool { return true }, rule)(context.Background(), &Context{}))
	assert.True(t, ran)
}

func TestRun_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := newContext(t, project(nil), Options{Log: zap.New(core)})

	err := Run(context.Background(), c, "broken", func(context.Context, *Context) error {
		return errors.New("nope")
	})
	require.Error(t, err)

	failed := logs.FilterMessage("step failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].ContextMap()["step"])
	assert.Equal(t, c.RunID, failed[0].ContextMap()["run"])
}

func TestRelativeImport(t *testing.T) {
	tests := []struct {
		from, to, want string
	}{
		{"app/app.module.ts", "app/core/material-components.module.ts", "./core/material-components.module"},
		{"app/app.module.ts", "app/app.component.ts", "./app.component"},
		{"app/feature/feature.module.ts", "app/core/core.module.ts", "../core/core.module"},
		{"app.module.ts", "core/core.module.ts", "./core/core.module"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativeImport(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "material-components", dasherize("materialComponents"))
	assert.Equal(t, "material-components", dasherize("Material Components"))
	assert.Equal(t, "navbar", dasherize("navbar"))
	assert.Equal(t, "MaterialComponents", classify("material-components"))
	assert.Equal(t, "Navbar", classify("navbar"))
}
