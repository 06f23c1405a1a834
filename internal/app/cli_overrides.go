package app

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/olusolaa/fleet-provisioner/internal/config"
	"github.com/olusolaa/fleet-provisioner/internal/core/admission"
)

// OverridesKey holds the --override flag value, "Name=value;Name=value".
const OverridesKey = "overrides"

// applyCLIOverrides merges command-line parameter overrides into the
// admission config. A name given on the command line replaces the same
// name from the file.
func applyCLIOverrides(cfg *config.Config, v *viper.Viper) {
	parsed := parseOverrides(v.GetString(OverridesKey))
	if len(parsed) == 0 {
		return
	}
	merged := make([]admission.Override, 0, len(cfg.Admission.Overrides)+len(parsed))
	replaced := make(map[string]bool, len(parsed))
	for _, o := range parsed {
		replaced[o.Name] = true
	}
	for _, o := range cfg.Admission.Overrides {
		if !replaced[o.Name] {
			merged = append(merged, o)
		}
	}
	cfg.Admission.Overrides = append(merged, parsed...)
}

func parseOverrides(raw string) []admission.Override {
	if raw == "" {
		return nil
	}
	var parsed []admission.Override
	seen := make(map[string]int)
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		o := admission.Override{Name: name, Value: strings.TrimSpace(parts[1])}
		if i, ok := seen[name]; ok {
			parsed[i] = o
			continue
		}
		seen[name] = len(parsed)
		parsed = append(parsed, o)
	}
	return parsed
}
