package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()

	if _, ok := c.Product("decor_oak_tree"); !ok {
		t.Error("expected built-in product decor_oak_tree")
	}
	if _, ok := c.Achievement("day_5k"); !ok {
		t.Error("expected built-in achievement day_5k")
	}

	for _, id := range []string{EventFirstBuilding, EventFirstDecoration, EventFirstSkin} {
		def, ok := c.Achievement(id)
		if !ok {
			t.Errorf("expected event achievement %s", id)
			continue
		}
		if def.Kind != KindEvent || def.Target != 1 {
			t.Errorf("expected %s to be a one-shot event, got kind=%s target=%d", id, def.Kind, def.Target)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing_files_fall_back_to_defaults", func(t *testing.T) {
		c, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(c.Products()) == 0 || len(c.Achievements()) == 0 {
			t.Error("expected defaults when catalog files are missing")
		}
	})

	t.Run("reads_catalog_files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "products.yaml", `
products:
  - id: decor_statue
    name: Statue
    type: decor
    price: 3000
    active: true
`)
		writeFile(t, dir, "achievements.yaml", `
achievements:
  - id: day_1k
    name: Warmup
    kind: daily
    target: 1000
    reward: 100
`)

		c, err := Load(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		p, ok := c.Product("decor_statue")
		if !ok {
			t.Fatal("expected decor_statue from file")
		}
		if p.Price != 3000 {
			t.Errorf("expected price 3000, got %d", p.Price)
		}
		if _, ok := c.Product("decor_oak_tree"); ok {
			t.Error("expected file catalog to replace defaults entirely")
		}

		if _, ok := c.Achievement("day_1k"); !ok {
			t.Error("expected day_1k from file")
		}
	})

	t.Run("rejects_invalid_definitions", func(t *testing.T) {
		cases := map[string]string{
			"negative_price": `
products:
  - id: bad
    name: Bad
    type: decor
    price: -5
    active: true
`,
			"unknown_type": `
products:
  - id: bad
    name: Bad
    type: vehicle
    price: 5
    active: true
`,
			"duplicate_id": `
products:
  - id: bad
    name: Bad
    type: decor
    price: 5
    active: true
  - id: bad
    name: Bad Again
    type: decor
    price: 5
    active: true
`,
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				dir := t.TempDir()
				writeFile(t, dir, "products.yaml", content)
				if _, err := Load(dir); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})

	t.Run("rejects_event_with_wrong_target", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "achievements.yaml", `
achievements:
  - id: first_thing
    name: First Thing
    kind: event
    target: 3
    reward: 10
`)
		if _, err := Load(dir); err == nil {
			t.Error("expected validation error for event target != 1")
		}
	})
}

func TestOrderIsStable(t *testing.T) {
	c := Default()
	first := c.Achievements()
	second := c.Achievements()
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("expected stable ordering, diverged at %d", i)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
