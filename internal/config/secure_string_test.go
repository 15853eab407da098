// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

func TestSecureStringDecoding(t *testing.T) {
	hcl := `
		router_password = "s3cret"
		name            = "r-1"
	`

	type TestConfig struct {
		RouterPassword SecureString `hcl:"router_password"`
		Name           string       `hcl:"name"`
	}

	var cfg TestConfig
	err := hclsimple.Decode("test.hcl", []byte(hcl), nil, &cfg)
	if err != nil {
		t.Fatalf("Failed to decode HCL: %v", err)
	}

	if cfg.RouterPassword.Reveal() != "s3cret" {
		t.Errorf("Expected RouterPassword 's3cret', got '%s'", cfg.RouterPassword.Reveal())
	}
}

func TestSecureStringMasking(t *testing.T) {
	s := SecureString("s3cret")

	if got := fmt.Sprintf("%v", s); got != "(hidden)" {
		t.Errorf("Sprintf(%%v) = %q, want (hidden)", got)
	}
	if got := fmt.Sprintf("%#v", s); got != "(hidden)" {
		t.Errorf("Sprintf(%%#v) = %q, want (hidden)", got)
	}

	data, err := json.Marshal(struct {
		P SecureString `json:"p"`
	}{s})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"p":"(hidden)"}` {
		t.Errorf("Marshal = %s", data)
	}

	if SecureString("").String() != "" {
		t.Error("empty secret should print empty")
	}
}
