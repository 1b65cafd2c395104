package symbol

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/metadata"
	"github.com/mustng65/angular-starter-schematic/parse"
)

const appModule = `import { NgModule } from '@angular/core';
import { BrowserModule } from '@angular/platform-browser';

import { AppComponent } from './app.component';

@NgModule({
  declarations: [AppComponent],
  imports: [BrowserModule],
  bootstrap: [AppComponent]
})
export class AppModule { }
`

func newTree(files map[string]string) *filetree.Tree {
	src := filetree.MapSource{}
	for p, c := range files {
		src[p] = []byte(c)
	}
	return filetree.New(src)
}

func read(t *testing.T, tree *filetree.Tree, path string) string {
	t.Helper()
	content, err := tree.Read(path)
	require.NoError(t, err)
	return string(content)
}

func TestAddImport_NewStatement(t *testing.T) {
	tree := newTree(map[string]string{"src/app/app.module.ts": appModule})
	in := NewInserter(nil, nil)

	res, err := in.AddImport(tree, "/src/app/app.module.ts", "FlexLayoutModule", "@angular/flex-layout")
	require.NoError(t, err)
	assert.Equal(t, Result{Changed: true, ImportAdded: true}, res)

	got := read(t, tree, "src/app/app.module.ts")
	assert.Contains(t, got, "  imports: [BrowserModule, FlexLayoutModule],\n")
	assert.Contains(t, got, "import { AppComponent } from './app.component';\nimport { FlexLayoutModule } from '@angular/flex-layout';\n")
	assert.Equal(t, 1, strings.Count(got, "FlexLayoutModule]"))
}

func TestAddSymbol_Idempotent(t *testing.T) {
	tree := newTree(map[string]string{"app.module.ts": appModule})
	in := NewInserter(nil, nil)

	_, err := in.AddImport(tree, "app.module.ts", "FormsModule", "@angular/forms")
	require.NoError(t, err)
	once := read(t, tree, "app.module.ts")

	res, err := in.AddImport(tree, "app.module.ts", "FormsModule", "@angular/forms")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, once, read(t, tree, "app.module.ts"))
}

func TestAddSymbol_ExtendsExistingImport(t *testing.T) {
	src := `import { NgModule } from '@angular/core';
import { MatButtonModule } from '@angular/material/button';

@NgModule({
  exports: [MatButtonModule]
})
export class MaterialComponentsModule {}
`
	tree := newTree(map[string]string{"m.ts": src})
	in := NewInserter(nil, nil)

	res, err := in.AddExport(tree, "m.ts", "MatIconModule", "@angular/material/button")
	require.NoError(t, err)
	assert.True(t, res.ImportAdded)

	got := read(t, tree, "m.ts")
	assert.Contains(t, got, "import { MatButtonModule, MatIconModule } from '@angular/material/button';")
	assert.Contains(t, got, "exports: [MatButtonModule, MatIconModule]")
}

func TestAddSymbol_ImportAlreadyPresent(t *testing.T) {
	src := `import { NgModule } from '@angular/core';
import { FormsModule } from '@angular/forms';

@NgModule({
  imports: []
})
export class CoreModule {}
`
	tree := newTree(map[string]string{"core.module.ts": src})
	in := NewInserter(nil, nil)

	res, err := in.AddImport(tree, "core.module.ts", "FormsModule", "@angular/forms")
	require.NoError(t, err)
	assert.Equal(t, Result{Changed: true}, res)

	got := read(t, tree, "core.module.ts")
	assert.Contains(t, got, "imports: [FormsModule]")
	assert.Equal(t, 1, strings.Count(got, "import { FormsModule }"))
}

func TestAddSymbol_NoImportsAtAll(t *testing.T) {
	src := "@NgModule({})\nexport class Bare {}\n"
	tree := newTree(map[string]string{"bare.ts": src})

	_, err := NewInserter(nil, nil).AddExport(tree, "bare.ts", "A", "./a")
	require.NoError(t, err)
	assert.Equal(t, "import { A } from './a';\n@NgModule({ exports: [A] })\nexport class Bare {}\n", read(t, tree, "bare.ts"))
}

func TestAddSymbol_WithoutOrigin(t *testing.T) {
	tree := newTree(map[string]string{"app.module.ts": appModule})

	res, err := NewInserter(nil, nil).AddSymbol(tree, "app.module.ts", "providers", "Logger", "")
	require.NoError(t, err)
	assert.Equal(t, Result{Changed: true}, res)
	assert.Contains(t, read(t, tree, "app.module.ts"), "  bootstrap: [AppComponent],\n  providers: [Logger]\n")
}

func TestAddSymbol_MissingBlockLeavesFileUntouched(t *testing.T) {
	src := "import { Component } from '@angular/core';\n\nexport class Plain {}\n"
	tree := newTree(map[string]string{"plain.ts": src})

	_, err := NewInserter(nil, nil).AddImport(tree, "plain.ts", "FormsModule", "@angular/forms")
	assert.ErrorIs(t, err, metadata.ErrMetadataBlockNotFound)
	assert.Equal(t, src, read(t, tree, "plain.ts"))
	assert.Empty(t, tree.Changes())

	// The path is not left open.
	rec, err := tree.BeginUpdate("plain.ts")
	require.NoError(t, err)
	tree.Discard(rec)
}

func TestAddSymbol_MissingFile(t *testing.T) {
	tree := newTree(nil)
	_, err := NewInserter(nil, nil).AddImport(tree, "nope.ts", "X", "")
	assert.ErrorIs(t, err, filetree.ErrNotFound)
}

type failingFrontend struct{ err error }

func (f failingFrontend) Parse([]byte, string) (*parse.ParsedFile, error) {
	return nil, f.err
}

func TestAddSymbol_FrontendError(t *testing.T) {
	boom := errors.New("boom")
	tree := newTree(map[string]string{"a.ts": appModule})

	_, err := NewInserter(failingFrontend{err: boom}, nil).AddImport(tree, "a.ts", "X", "")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tree.Changes())
}

func TestWithDecorator(t *testing.T) {
	src := "@Component({\n  selector: 'app-root'\n})\nexport class AppComponent {}\n"
	tree := newTree(map[string]string{"app.component.ts": src})
	in := NewInserter(nil, nil)

	_, err := in.AddSymbol(tree, "app.component.ts", "providers", "Svc", "")
	assert.ErrorIs(t, err, metadata.ErrMetadataBlockNotFound)

	_, err = in.WithDecorator("Component").AddSymbol(tree, "app.component.ts", "providers", "Svc", "")
	require.NoError(t, err)
	assert.Contains(t, read(t, tree, "app.component.ts"), "  selector: 'app-root',\n  providers: [Svc]\n")
}
