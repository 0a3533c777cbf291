// Package catalog holds the static, read-only reference data the economy
// core validates against: shop products and achievement definitions.
// Catalogs are loaded once at process start and are immutable afterwards,
// so a price observed before a purchase transaction cannot change under it.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProductType classifies what a shop product unlocks.
type ProductType string

const (
	ProductTypeDecor ProductType = "decor"
	ProductTypeSkin  ProductType = "skin"
)

// Product is one purchasable catalog entry. Price is in coins.
type Product struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Type   ProductType `yaml:"type"`
	Price  int64       `yaml:"price"`
	Active bool        `yaml:"active"`
}

// AchievementKind determines which input drives an achievement's progress.
type AchievementKind string

const (
	// KindDaily achievements track the best single-day step count.
	KindDaily AchievementKind = "daily"
	// KindLifetime achievements track the lifetime step total.
	KindLifetime AchievementKind = "lifetime"
	// KindEvent achievements are one-shot registrations with target 1.
	KindEvent AchievementKind = "event"
)

// AchievementDef is one static achievement definition. Reward is in coins.
type AchievementDef struct {
	ID     string          `yaml:"id"`
	Name   string          `yaml:"name"`
	Kind   AchievementKind `yaml:"kind"`
	Target int64           `yaml:"target"`
	Reward int64           `yaml:"reward"`
}

// Catalog bundles the product and achievement reference data.
type Catalog struct {
	products     map[string]Product
	achievements map[string]AchievementDef
	productOrder []string
	defOrder     []string
}

// Event achievement ids referenced by the engines.
const (
	EventFirstBuilding   = "first_building"
	EventFirstDecoration = "first_decoration"
	EventFirstSkin       = "first_skin"
)

// Default returns the built-in catalog shipped with the game.
func Default() *Catalog {
	c := &Catalog{
		products:     make(map[string]Product),
		achievements: make(map[string]AchievementDef),
	}

	for _, p := range []Product{
		{ID: "decor_fountain", Name: "Fountain", Type: ProductTypeDecor, Price: 2500, Active: true},
		{ID: "decor_park_bench", Name: "Park Bench", Type: ProductTypeDecor, Price: 800, Active: true},
		{ID: "decor_oak_tree", Name: "Oak Tree", Type: ProductTypeDecor, Price: 500, Active: true},
		{ID: "decor_street_lamp", Name: "Street Lamp", Type: ProductTypeDecor, Price: 1200, Active: true},
		{ID: "skin_sakura", Name: "Sakura Theme", Type: ProductTypeSkin, Price: 10000, Active: true},
		{ID: "skin_winter", Name: "Winter Theme", Type: ProductTypeSkin, Price: 10000, Active: true},
		{ID: "skin_neon", Name: "Neon Theme", Type: ProductTypeSkin, Price: 15000, Active: true},
	} {
		c.addProduct(p)
	}

	for _, d := range []AchievementDef{
		{ID: "day_5k", Name: "5,000 Steps in a Day", Kind: KindDaily, Target: 5000, Reward: 1000},
		{ID: "day_10k", Name: "10,000 Steps in a Day", Kind: KindDaily, Target: 10000, Reward: 2500},
		{ID: "day_20k", Name: "20,000 Steps in a Day", Kind: KindDaily, Target: 20000, Reward: 6000},
		{ID: "lifetime_100k", Name: "100,000 Lifetime Steps", Kind: KindLifetime, Target: 100000, Reward: 5000},
		{ID: "lifetime_500k", Name: "500,000 Lifetime Steps", Kind: KindLifetime, Target: 500000, Reward: 20000},
		{ID: "lifetime_1m", Name: "1,000,000 Lifetime Steps", Kind: KindLifetime, Target: 1000000, Reward: 50000},
		{ID: EventFirstBuilding, Name: "First Building", Kind: KindEvent, Target: 1, Reward: 500},
		{ID: EventFirstDecoration, Name: "First Decoration", Kind: KindEvent, Target: 1, Reward: 500},
		{ID: EventFirstSkin, Name: "First Skin", Kind: KindEvent, Target: 1, Reward: 1000},
	} {
		c.addDef(d)
	}

	return c
}

type productFile struct {
	Products []Product `yaml:"products"`
}

type achievementFile struct {
	Achievements []AchievementDef `yaml:"achievements"`
}

// Load reads products.yaml and achievements.yaml from dir. Missing files
// fall back to the built-in defaults for that catalog; malformed or
// invalid files are an error, since the catalogs gate real currency.
func Load(dir string) (*Catalog, error) {
	defaults := Default()
	c := &Catalog{
		products:     make(map[string]Product),
		achievements: make(map[string]AchievementDef),
	}

	var pf productFile
	ok, err := readYAML(filepath.Join(dir, "products.yaml"), &pf)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, p := range pf.Products {
			if err := validateProduct(p); err != nil {
				return nil, err
			}
			if _, dup := c.products[p.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
			}
			c.addProduct(p)
		}
	} else {
		c.products = defaults.products
		c.productOrder = defaults.productOrder
	}

	var af achievementFile
	ok, err = readYAML(filepath.Join(dir, "achievements.yaml"), &af)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, d := range af.Achievements {
			if err := validateDef(d); err != nil {
				return nil, err
			}
			if _, dup := c.achievements[d.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate achievement id %q", d.ID)
			}
			c.addDef(d)
		}
	} else {
		c.achievements = defaults.achievements
		c.defOrder = defaults.defOrder
	}

	return c, nil
}

func readYAML(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return true, nil
}

func validateProduct(p Product) error {
	if p.ID == "" {
		return fmt.Errorf("catalog: product with empty id")
	}
	if p.Type != ProductTypeDecor && p.Type != ProductTypeSkin {
		return fmt.Errorf("catalog: product %q has unknown type %q", p.ID, p.Type)
	}
	if p.Price < 0 {
		return fmt.Errorf("catalog: product %q has negative price", p.ID)
	}
	return nil
}

func validateDef(d AchievementDef) error {
	if d.ID == "" {
		return fmt.Errorf("catalog: achievement with empty id")
	}
	switch d.Kind {
	case KindDaily, KindLifetime:
		if d.Target <= 0 {
			return fmt.Errorf("catalog: achievement %q needs a positive target", d.ID)
		}
	case KindEvent:
		if d.Target != 1 {
			return fmt.Errorf("catalog: event achievement %q must have target 1", d.ID)
		}
	default:
		return fmt.Errorf("catalog: achievement %q has unknown kind %q", d.ID, d.Kind)
	}
	if d.Reward < 0 {
		return fmt.Errorf("catalog: achievement %q has negative reward", d.ID)
	}
	return nil
}

func (c *Catalog) addProduct(p Product) {
	c.products[p.ID] = p
	c.productOrder = append(c.productOrder, p.ID)
}

func (c *Catalog) addDef(d AchievementDef) {
	c.achievements[d.ID] = d
	c.defOrder = append(c.defOrder, d.ID)
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Achievement looks up an achievement definition by id.
func (c *Catalog) Achievement(id string) (AchievementDef, bool) {
	d, ok := c.achievements[id]
	return d, ok
}

// Products returns all products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.productOrder))
	for _, id := range c.productOrder {
		out = append(out, c.products[id])
	}
	return out
}

// Achievements returns all achievement definitions in catalog order.
func (c *Catalog) Achievements() []AchievementDef {
	out := make([]AchievementDef, 0, len(c.defOrder))
	for _, id := range c.defOrder {
		out = append(out, c.achievements[id])
	}
	return out
}
