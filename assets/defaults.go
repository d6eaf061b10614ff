package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// DefaultGuardrailYAML is the starter rules file written next to the config.
//
//go:embed defaults/guardrail.yaml
var DefaultGuardrailYAML []byte
