package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoutesConfig holds the path lists used by the route guard.
type RoutesConfig struct {
	// Public entries match exactly, or by prefix when they end in "/" or "*".
	Public []string `yaml:"public"`
	// Protected entries match by prefix.
	Protected []string `yaml:"protected"`
	// AccessRedirect is where unauthenticated requests for protected pages go.
	AccessRedirect string `yaml:"access_redirect"`
}

// LoadRoutesConfigFromPath loads the route lists from a YAML file. Lists
// missing from the file keep their defaults.
func LoadRoutesConfigFromPath(path string) (*RoutesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes config: %w", err)
	}

	cfg := DefaultRoutesConfig()
	var fromFile RoutesConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse routes config: %w", err)
	}
	if fromFile.Public != nil {
		cfg.Public = fromFile.Public
	}
	if fromFile.Protected != nil {
		cfg.Protected = fromFile.Protected
	}
	if fromFile.AccessRedirect != "" {
		cfg.AccessRedirect = fromFile.AccessRedirect
	}

	for _, p := range append(append([]string{}, cfg.Public...), cfg.Protected...) {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("routes config: path %q must start with /", p)
		}
	}
	if !strings.HasPrefix(cfg.AccessRedirect, "/") {
		return nil, fmt.Errorf("routes config: access_redirect %q must start with /", cfg.AccessRedirect)
	}

	return cfg, nil
}

// LoadRoutesConfigOrDefault loads the route lists or falls back to defaults.
func LoadRoutesConfigOrDefault(path string) *RoutesConfig {
	cfg, err := LoadRoutesConfigFromPath(path)
	if err != nil {
		return DefaultRoutesConfig()
	}
	return cfg
}

// DefaultRoutesConfig returns the built-in route lists.
func DefaultRoutesConfig() *RoutesConfig {
	return &RoutesConfig{
		Public: []string{
			"/",
			"/about",
			"/pricing",
			"/contact",
			"/privacy-policy",
			"/terms-of-service",
			"/sign-in",
			"/access-redirect",
			"/api/auth/",
			"/_next/*",
			"/images/*",
			"/favicon.ico",
		},
		Protected: []string{
			"/admin/",
			"/guide/",
			"/sales/",
			"/tools/",
			"/user/",
		},
		AccessRedirect: "/access-redirect",
	}
}
