package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dealroom/internal/domain"
)

// Config models dealroom.yml.
type Config struct {
	Deal struct {
		ID string `yaml:"id" json:"id"`
	} `yaml:"deal" json:"deal"`
	Signers map[string][]string `yaml:"signers" json:"signers"`
	Hots    struct {
		Editable []string          `yaml:"editable" json:"editable"`
		Seed     map[string]string `yaml:"seed" json:"seed"`
	} `yaml:"hots" json:"hots"`
	Documents struct {
		Tags map[string]struct {
			Description string `yaml:"description" json:"description"`
		} `yaml:"tags" json:"tags"`
	} `yaml:"documents" json:"documents"`
	Services map[string][]ServiceTemplate `yaml:"services" json:"services"`
	Webhooks []WebhookConfig              `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

// ServiceTemplate pre-fills one plan service line for a deal type.
type ServiceTemplate struct {
	Name     string `yaml:"name" json:"name"`
	Route    string `yaml:"route" json:"route"`
	Included bool   `yaml:"included" json:"included"`
	Locked   bool   `yaml:"locked" json:"locked"`
}

type WebhookConfig struct {
	URL    string   `yaml:"url" json:"url"`
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate with dr config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Deal.ID == "" {
		return fmt.Errorf("config.deal.id is required")
	}
	for kind, pair := range c.Signers {
		switch domain.AgreementKind(kind) {
		case domain.KindLandlord, domain.KindUnion, domain.KindSupplier:
		default:
			return fmt.Errorf("config.signers has unknown agreement kind %s", kind)
		}
		if len(pair) == 0 {
			return fmt.Errorf("config.signers.%s must list at least one signer", kind)
		}
		for _, s := range pair {
			if s == "" {
				return fmt.Errorf("config.signers.%s contains empty signer", kind)
			}
		}
	}
	if len(c.Hots.Editable) == 0 {
		return fmt.Errorf("config.hots.editable is required")
	}
	for _, k := range c.Hots.Editable {
		if k == "" {
			return fmt.Errorf("config.hots.editable contains empty key")
		}
	}
	for tag := range c.Documents.Tags {
		if !domain.ValidDocTag(domain.DocTag(tag)) {
			return fmt.Errorf("config.documents.tags has unknown tag %s", tag)
		}
	}
	for dealType, services := range c.Services {
		if !domain.ValidDealType(domain.DealType(dealType)) {
			return fmt.Errorf("config.services has unknown deal type %s", dealType)
		}
		for _, svc := range services {
			if svc.Name == "" {
				return fmt.Errorf("service template for %s has empty name", dealType)
			}
			if !domain.ValidServiceRoute(domain.ServiceRoute(svc.Route)) {
				return fmt.Errorf("service %s for %s has unknown route %s", svc.Name, dealType, svc.Route)
			}
		}
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		for _, evt := range wh.Events {
			if !domain.ValidActivityType(domain.ActivityType(evt)) {
				return fmt.Errorf("webhook %s filters unknown activity type %s", wh.URL, evt)
			}
		}
	}
	return nil
}

// SignersFor returns the configured signer pair for an agreement kind,
// falling back to the built-in defaults.
func (c *Config) SignersFor(kind domain.AgreementKind) []string {
	if c != nil {
		if pair, ok := c.Signers[string(kind)]; ok {
			return append([]string(nil), pair...)
		}
	}
	switch kind {
	case domain.KindLandlord:
		return []string{"Landlord", "Tenant"}
	case domain.KindUnion:
		return []string{"Union Lead", "Tenant"}
	default:
		return []string{"Supplier", "Ops Lead"}
	}
}

// EditableHotsKeys returns the whitelist of user-editable HoTs field keys.
func (c *Config) EditableHotsKeys() []string {
	if c != nil && len(c.Hots.Editable) > 0 {
		return append([]string(nil), c.Hots.Editable...)
	}
	return []string{"Term", "Break", "Indexation"}
}

// SeedHotsFields returns the initial HoTs field map for a new room.
func (c *Config) SeedHotsFields() map[string]string {
	out := map[string]string{}
	if c != nil {
		for k, v := range c.Hots.Seed {
			out[k] = v
		}
	}
	return out
}

// ServicesFor returns the plan service template for a deal type.
func (c *Config) ServicesFor(dealType domain.DealType) []domain.PlanService {
	if c == nil {
		return nil
	}
	templates := c.Services[string(dealType)]
	out := make([]domain.PlanService, 0, len(templates))
	for _, t := range templates {
		out = append(out, domain.PlanService{
			Name:     t.Name,
			Included: t.Included,
			Route:    domain.ServiceRoute(t.Route),
			Locked:   t.Locked,
		})
	}
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "dealroom.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(dealID string) string {
	return fmt.Sprintf(defaultTemplate, dealID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a deal.
func Default(dealID string) *Config {
	var cfg Config
	cfg.Deal.ID = dealID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, dealID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `deal:
  id: %s

signers:
  landlord: ["Landlord", "Tenant"]
  union: ["Union Lead", "Tenant"]
  supplier: ["Supplier", "Ops Lead"]

hots:
  editable: [Term, Break, Indexation]
  seed:
    Term: "24 months"
    Break: "12 months"
    Indexation: "RPI"

documents:
  tags:
    ops:
      description: "Operations manuals and procedures"
    fire:
      description: "Fire risk assessment"
    insurance:
      description: "Insurance certificates"
    fit_out:
      description: "Fit-out plans and approvals"
    floorplan:
      description: "Floorplans"
    photo:
      description: "Site photos"
    other:
      description: "Anything else"

services:
  all_inclusive:
    - {name: Lease, route: landlord, included: true, locked: true}
    - {name: Facilities, route: union_direct, included: true, locked: false}
    - {name: Cleaning, route: supplier, included: true, locked: false}
    - {name: Security, route: supplier, included: true, locked: false}
  bolt_on:
    - {name: Lease, route: landlord, included: true, locked: true}
    - {name: Cleaning, route: supplier, included: false, locked: false}
`
