package recipe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	r := Default()
	if err := r.Validate(); err != nil {
		t.Fatalf("default recipe invalid: %v", err)
	}
	if len(r.Material.Modules) != 4 {
		t.Errorf("expected 4 material modules, got %d", len(r.Material.Modules))
	}
	if r.FlexLayout.Version != "~10.0.0-beta" {
		t.Errorf("unexpected flex-layout version %q", r.FlexLayout.Version)
	}
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
material:
  modules:
    - module: MatCardModule
      from: "@angular/material/card"
templates:
  policy: skip
  exclude:
    - "**/*.spec.ts"
assets:
  - src/manifest.webmanifest
`)
	r, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(r.Material.Modules) != 1 || r.Material.Modules[0].Module != "MatCardModule" {
		t.Errorf("unexpected modules: %+v", r.Material.Modules)
	}
	if r.Material.ModuleName != "MaterialComponentsModule" {
		t.Errorf("expected default module name to survive, got %q", r.Material.ModuleName)
	}
	if r.Templates.Policy != "skip" {
		t.Errorf("expected skip policy, got %q", r.Templates.Policy)
	}
	if len(r.Assets) != 1 {
		t.Errorf("expected 1 asset, got %v", r.Assets)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"material:\n  modules:\n    - module: X\n",
		"templates:\n  include: [\"a/[\"]\n",
		"appModule: \"\"\n",
		"templates:\n  policy: merge\n",
		"material: [",
	}
	for _, input := range tests {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestLoadOrDefault(t *testing.T) {
	r, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if r.Navbar.Name != "/common/navbar" {
		t.Errorf("unexpected navbar name %q", r.Navbar.Name)
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recipe.yaml")

	r := Default()
	r.Scripts = map[string]string{"start": "ng serve"}
	if err := r.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("recipe not written: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Scripts["start"] != "ng serve" {
		t.Errorf("scripts not preserved: %v", loaded.Scripts)
	}
}
