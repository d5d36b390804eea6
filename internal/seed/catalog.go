package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Account is a fixed demo login.
type Account struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// CategorySpec is a built-in category.
type CategorySpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ListingSpec is a hand-written demo listing. Category refers to a CategorySpec name.
type ListingSpec struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Location    string  `yaml:"location"`
	Category    string  `yaml:"category"`
}

// Catalog is the built-in demo data set.
type Catalog struct {
	Accounts   []Account      `yaml:"accounts"`
	Categories []CategorySpec `yaml:"categories"`
	Locations  []string       `yaml:"locations"`
	Listings   []ListingSpec  `yaml:"listings"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("seed catalog has no categories")
	}
	if len(c.Locations) == 0 {
		return nil, fmt.Errorf("seed catalog has no locations")
	}
	known := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		known[cat.Name] = true
	}
	for _, l := range c.Listings {
		if !known[l.Category] {
			return nil, fmt.Errorf("listing %q references unknown category %q", l.Title, l.Category)
		}
	}
	return &c, nil
}
