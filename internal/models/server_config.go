package models

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string `json:"port,omitzero" yaml:"port"`
	AllowedOrigins string `json:"allowed_origins,omitzero" yaml:"allowed_origins"`
	Environment    string `json:"environment,omitzero" yaml:"environment"`
	LogLevel       string `json:"log_level,omitzero" yaml:"log_level"`
}

// BusinessConfig frames the prompts with the operator's business identity.
type BusinessConfig struct {
	Company   string `yaml:"company" json:"company,omitzero"`
	Location  string `yaml:"location" json:"location,omitzero"`
	Expertise string `yaml:"expertise" json:"expertise,omitzero"`
}

// WithDefaults fills unset fields with the stock identity.
func (b BusinessConfig) WithDefaults() BusinessConfig {
	if b.Company == "" {
		b.Company = "Primes and Zooms Photo and Cine Gear Rentals"
	}
	if b.Location == "" {
		b.Location = "Pune"
	}
	if b.Expertise == "" {
		b.Expertise = "professional photo and cine equipment rentals, events, and collaborations"
	}
	return b
}
