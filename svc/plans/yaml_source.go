package plans

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLSource loads plans from a YAML file, letting deployments ship their
// catalog alongside configuration instead of hardcoding it.
//
// File format:
//
//	plans:
//	  - id: starter
//	    name: Starter
//	    price: {amount: 1900, currency: USD}
//	    interval: monthly
//	    limits:
//	      products: 100
//	      categories: 10
//	      subcategories_per_category: 5
//	      orders: 500
//	    active: true
type YAMLSource struct {
	path string
}

// NewYAMLSource returns a Source reading the given file on each Load.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

// Load reads and parses the YAML file.
func (s *YAMLSource) Load(_ context.Context) ([]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return doc.Plans, nil
}
