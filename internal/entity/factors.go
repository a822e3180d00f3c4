package entity

// EmissionFactors converts physical or monetary quantities into kg CO2e.
type EmissionFactors struct {
	SteelPerKg      float64 `json:"steel_per_kg" yaml:"steel_per_kg"`
	PackagingPerKg  float64 `json:"packaging_per_kg" yaml:"packaging_per_kg"`
	TransportPerTkm float64 `json:"transport_per_tkm" yaml:"transport_per_tkm"`
	OtherPerUSD     float64 `json:"other_per_usd" yaml:"other_per_usd"`
}
