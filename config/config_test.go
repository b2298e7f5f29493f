package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Network:       Mainnet,
		Endpoint:      "https://api.trongrid.io",
		ScanBatchSize: 10,
		PollInterval:  time.Minute,
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }},
		{"malformed endpoint", func(c *Config) { c.Endpoint = "not a url" }},
		{"endpoint without scheme", func(c *Config) { c.Endpoint = "api.trongrid.io" }},
		{"zero batch size", func(c *Config) { c.ScanBatchSize = 0 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"production without api key", func(c *Config) { c.Production = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Errorf("error should be a *ConfigurationError, got %T", err)
			}
		})
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		network NetworkType
		want    string
	}{
		{Mainnet, "https://api.trongrid.io"},
		{Shasta, "https://api.shasta.trongrid.io"},
		{Nile, "https://nile.trongrid.io"},
	}
	for _, tt := range tests {
		got, err := resolveEndpoint(tt.network)
		if err != nil {
			t.Errorf("resolveEndpoint(%s) error: %v", tt.network, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveEndpoint(%s) = %s, want %s", tt.network, got, tt.want)
		}
	}
}

func TestResolveEndpoint_UnknownNetwork(t *testing.T) {
	_, err := resolveEndpoint("ropsten")
	if err == nil {
		t.Fatal("resolveEndpoint(unknown) should fail")
	}
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("error should be a *ConfigurationError, got %T", err)
	}
}

func TestResolveEndpoint_Override(t *testing.T) {
	t.Setenv("TRON_FULLNODE_NILE", "http://localhost:8091")
	got, err := resolveEndpoint(Nile)
	if err != nil {
		t.Fatalf("resolveEndpoint() error: %v", err)
	}
	if got != "http://localhost:8091" {
		t.Errorf("resolveEndpoint() = %s, want override", got)
	}
}
