// Package pricing maps model names to per-token rates for cost
// estimation. The table is an external input: a missing entry degrades
// the dependent cost to unknown, it never defaults to zero.
package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/argus/internal/record"
)

// Rate is the USD cost per single token, by counter.
type Rate struct {
	Input         float64 `yaml:"input"`
	Output        float64 `yaml:"output"`
	CacheRead     float64 `yaml:"cache_read"`
	CacheCreation float64 `yaml:"cache_creation"`
}

// Table holds per-model rates keyed by model name or name prefix.
type Table struct {
	Models map[string]Rate `yaml:"models"`
}

// Load reads a rate table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a rate table from YAML bytes.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}
	if t.Models == nil {
		t.Models = map[string]Rate{}
	}
	return &t, nil
}

// Rate resolves the rate for a model: exact match first, then the longest
// key that prefixes the model name (tables usually key by family, logs
// report dated snapshots).
func (t *Table) Rate(model string) (Rate, bool) {
	if t == nil || model == "" {
		return Rate{}, false
	}
	if r, ok := t.Models[model]; ok {
		return r, true
	}
	bestLen := 0
	var best Rate
	for k, r := range t.Models {
		if len(k) > bestLen && strings.HasPrefix(model, k) {
			bestLen = len(k)
			best = r
		}
	}
	return best, bestLen > 0
}

// Cost prices a usage record against a rate.
func Cost(u record.Usage, r Rate) float64 {
	return float64(u.InputTokens)*r.Input +
		float64(u.OutputTokens)*r.Output +
		float64(u.CacheReadInputTokens)*r.CacheRead +
		float64(u.CacheCreationInputTokens)*r.CacheCreation
}

// Default is the built-in table used when no pricing file is supplied.
// Rates are USD per token.
func Default() *Table {
	return &Table{Models: map[string]Rate{
		"claude-opus-4":   {Input: 15e-6, Output: 75e-6, CacheRead: 1.5e-6, CacheCreation: 18.75e-6},
		"claude-sonnet-4": {Input: 3e-6, Output: 15e-6, CacheRead: 0.3e-6, CacheCreation: 3.75e-6},
		"claude-haiku-4":  {Input: 1e-6, Output: 5e-6, CacheRead: 0.1e-6, CacheCreation: 1.25e-6},
	}}
}
