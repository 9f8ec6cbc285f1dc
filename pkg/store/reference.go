package store

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Nutrient names used by the ranking query.
const (
	NutrientNitrogen   = "Nitrogen"
	NutrientPhosphorus = "Phosphorus"
	NutrientPotassium  = "Potassium"
)

// ReferenceData is the agronomic data set the retrieval and ranking queries
// run against: crops, the soils they grow in and their nutrient needs.
type ReferenceData struct {
	Soils     []Soil   `yaml:"soils"`
	Nutrients []string `yaml:"nutrients"`
	Crops     []Crop   `yaml:"crops"`
}

// Soil is merged on Name. Name defaults to Type.
type Soil struct {
	Name            string  `yaml:"name"`
	Type            string  `yaml:"type"`
	PH              float64 `yaml:"ph"`
	MoisturePercent float64 `yaml:"moisture_percent"`
	SalinityDSM     float64 `yaml:"salinity_dsm"`
}

// Crop is merged on Name. GrowsIn holds soil names, Requires maps a nutrient
// name to the required amount in mg/kg.
type Crop struct {
	Name         string             `yaml:"name"`
	TemperatureC float64            `yaml:"temperature_c"`
	GrowsIn      []string           `yaml:"grows_in"`
	Requires     map[string]float64 `yaml:"requires"`
}

// LoadReferenceData decodes and validates a YAML reference data set.
func LoadReferenceData(r io.Reader) (ReferenceData, error) {
	var data ReferenceData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return data, errors.New("reference data is empty")
		}
		return data, fmt.Errorf("decode reference data: %w", err)
	}
	for i := range data.Soils {
		if data.Soils[i].Name == "" {
			data.Soils[i].Name = data.Soils[i].Type
		}
	}
	return data, data.Validate()
}

// Validate checks names and cross references.
func (d ReferenceData) Validate() error {
	var problems []string

	soils := make(map[string]struct{}, len(d.Soils))
	for i, s := range d.Soils {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("soil %d has no name or type", i))
			continue
		}
		soils[s.Name] = struct{}{}
	}

	nutrients := make(map[string]struct{}, len(d.Nutrients))
	for _, n := range d.Nutrients {
		nutrients[n] = struct{}{}
	}

	for i, c := range d.Crops {
		if c.Name == "" {
			problems = append(problems, fmt.Sprintf("crop %d has no name", i))
			continue
		}
		for _, s := range c.GrowsIn {
			if _, ok := soils[s]; !ok {
				problems = append(problems, fmt.Sprintf("crop %q grows in unknown soil %q", c.Name, s))
			}
		}
		for n := range c.Requires {
			if _, ok := nutrients[n]; !ok {
				problems = append(problems, fmt.Sprintf("crop %q requires unknown nutrient %q", c.Name, n))
			}
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid reference data: " + strings.Join(problems, "; "))
	}
	return nil
}
