package factors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	got := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Equal(t, Defaults(), got)
}

func TestLoad_JSON(t *testing.T) {
	p := writeFile(t, "factors.json", `{"steel_per_kg":1.85,"packaging_per_kg":1.1,"transport_per_tkm":0.1,"other_per_usd":0.3,"source":"internal"}`)
	got := Load(p, nil)
	assert.Equal(t, entity.EmissionFactors{SteelPerKg: 1.85, PackagingPerKg: 1.1, TransportPerTkm: 0.1, OtherPerUSD: 0.3}, got)
}

func TestLoad_YAML(t *testing.T) {
	p := writeFile(t, "factors.yaml", "steel_per_kg: 3\npackaging_per_kg: 1.5\ntransport_per_tkm: 0.05\nother_per_usd: 0.5\n")
	got := Load(p, nil)
	assert.Equal(t, 3.0, got.SteelPerKg)
	assert.Equal(t, 0.05, got.TransportPerTkm)
}

func TestLoad_PartialDocumentMergesOverDefaults(t *testing.T) {
	p := writeFile(t, "factors.json", `{"steel_per_kg": 2.5}`)
	got := Load(p, nil)

	want := Defaults()
	want.SteelPerKg = 2.5
	assert.Equal(t, want, got)

	p = writeFile(t, "factors.yaml", "transport_per_tkm: 0.1\nnote: regional\n")
	got = Load(p, nil)
	assert.Equal(t, 0.1, got.TransportPerTkm)
	assert.Equal(t, Defaults().SteelPerKg, got.SteelPerKg)
	assert.Equal(t, Defaults().OtherPerUSD, got.OtherPerUSD)
}

func TestLoad_EmptyObjectIsDefaults(t *testing.T) {
	assert.Equal(t, Defaults(), Load(writeFile(t, "factors.json", `{}`), nil))
}

func TestLoad_InvalidDocumentsFallBack(t *testing.T) {
	cases := map[string]string{
		"malformed.json":  `{"steel_per_kg": 2.0,`,
		"negative.json":   `{"steel_per_kg":-1,"packaging_per_kg":1.5,"transport_per_tkm":0.06,"other_per_usd":0.4}`,
		"string.json":     `{"steel_per_kg":"2","packaging_per_kg":1.5,"transport_per_tkm":0.06,"other_per_usd":0.4}`,
		"array.json":      `[1,2,3]`,
		"malformed.yaml":  "steel_per_kg: [",
		"zero_other.yaml": "steel_per_kg: 2\npackaging_per_kg: 1\ntransport_per_tkm: 1\nother_per_usd: 0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Defaults(), Load(writeFile(t, name, content), nil))
		})
	}
}

func TestLoad_DirectoryUsesDefaults(t *testing.T) {
	assert.Equal(t, Defaults(), Load(t.TempDir(), nil))
}
