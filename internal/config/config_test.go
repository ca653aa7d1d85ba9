package config_test

import (
	"testing"

	"dealroom/internal/config"
	"dealroom/internal/domain"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default("deal-1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Deal.ID != "deal-1" {
		t.Fatalf("expected deal id carried through, got %q", cfg.Deal.ID)
	}
	if len(cfg.ServicesFor(domain.DealAllInclusive)) == 0 {
		t.Fatalf("expected all_inclusive service template")
	}
}

func TestFromYAMLRejectsBadEnums(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad route", `
deal: {id: d1}
hots: {editable: [Term]}
services:
  all_inclusive:
    - {name: Lease, route: sideways, included: true}
`},
		{"bad doc tag", `
deal: {id: d1}
hots: {editable: [Term]}
documents:
  tags:
    salad: {description: "nope"}
`},
		{"missing deal id", `
hots: {editable: [Term]}
`},
		{"bad webhook event", `
deal: {id: d1}
hots: {editable: [Term]}
webhooks:
  - url: http://localhost:9999/hook
    events: [warp_drive]
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.FromYAML([]byte(tc.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSignersFallBackToDefaults(t *testing.T) {
	var cfg config.Config
	cfg.Deal.ID = "d1"
	pair := cfg.SignersFor(domain.KindLandlord)
	if len(pair) != 2 || pair[0] != "Landlord" {
		t.Fatalf("unexpected default signers: %v", pair)
	}
	cfg.Signers = map[string][]string{"landlord": {"Agent", "Tenant"}}
	pair = cfg.SignersFor(domain.KindLandlord)
	if pair[0] != "Agent" {
		t.Fatalf("configured signers not used: %v", pair)
	}
}

func TestEditableKeysDefault(t *testing.T) {
	var cfg config.Config
	keys := cfg.EditableHotsKeys()
	if len(keys) != 3 || keys[0] != "Term" {
		t.Fatalf("unexpected default editable keys: %v", keys)
	}
}
