package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReference = `
soils:
  - type: Clay Loam
    ph: 6.5
    moisture_percent: 60
    salinity_dsm: 1
nutrients: [Nitrogen, Phosphorus, Potassium]
crops:
  - name: Rice
    temperature_c: 25
    grows_in: [Clay Loam]
    requires:
      Nitrogen: 80
      Potassium: 40
`

func TestLoadReferenceData(t *testing.T) {
	data, err := LoadReferenceData(strings.NewReader(sampleReference))
	require.NoError(t, err)

	require.Len(t, data.Soils, 1)
	assert.Equal(t, "Clay Loam", data.Soils[0].Name)
	assert.Equal(t, 6.5, data.Soils[0].PH)

	require.Len(t, data.Crops, 1)
	assert.Equal(t, map[string]float64{"Nitrogen": 80, "Potassium": 40}, data.Crops[0].Requires)
}

func TestLoadReferenceData_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "empty",
			input:   "",
			wantErr: "empty",
		},
		{
			name:    "unknown field",
			input:   "soils: []\ncrop: []\n",
			wantErr: "decode reference data",
		},
		{
			name:    "unknown soil",
			input:   "crops:\n  - name: Rice\n    grows_in: [Sand]\n",
			wantErr: `unknown soil "Sand"`,
		},
		{
			name:    "unknown nutrient",
			input:   "nutrients: [Nitrogen]\ncrops:\n  - name: Rice\n    requires: {Zinc: 2}\n",
			wantErr: `unknown nutrient "Zinc"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadReferenceData(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
