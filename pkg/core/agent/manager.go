// Package agent routes each model task (answer synthesis, filter translation)
// to the provider configured for it in config/models.yaml.
package agent

import (
	"context"
	"fmt"
	"log"
	"sort"

	"filing_analyst/pkg/core/llm"
)

// Tasks that call a language model.
const (
	TaskSynthesis         = "synthesis"
	TaskFilterTranslation = "filter_translation"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string  `yaml:"provider"` // Optional override
	Model       string  `yaml:"model"`    // Optional model override
	Temperature float64 `yaml:"temperature"`
	Description string  `yaml:"description"`
}

type Manager struct {
	config    Config
	providers map[string]llm.Provider
}

// NewManager binds the configured routing to the available providers.
func NewManager(config Config, providers map[string]llm.Provider) *Manager {
	return &Manager{config: config, providers: providers}
}

// GetProvider resolves the provider for a task: the task override, then the
// global active provider.
func (m *Manager) GetProvider(agentType string) llm.Provider {
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
		log.Printf("[Agent] provider %q for %s is not available, using %q", agentConfig.Provider, agentType, m.config.ActiveProvider)
	}

	return m.providers[m.config.ActiveProvider]
}

// ExecutePrompt sends a prompt through the task's provider, applying the
// task's model and temperature unless options already set them.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("no provider configured for %s (active=%q, available=%v)", agentType, m.config.ActiveProvider, m.ProviderNames())
	}

	merged := make(map[string]interface{}, len(options)+2)
	if agentConfig, ok := m.config.Agents[agentType]; ok {
		if agentConfig.Model != "" {
			merged["model"] = agentConfig.Model
		}
		if agentConfig.Temperature > 0 {
			merged["temperature"] = agentConfig.Temperature
		}
	}
	for k, v := range options {
		merged[k] = v
	}

	return provider.GenerateResponse(ctx, prompt, systemPrompt, merged)
}

// SetGlobalProvider switches the default provider for every task without an
// override.
func (m *Manager) SetGlobalProvider(newProvider string) error {
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	log.Printf("[Agent] Global provider set to: %s", newProvider)
	return nil
}

// GetActiveProvider returns the provider used for tasks without an override.
func (m *Manager) GetActiveProvider() string {
	return m.config.ActiveProvider
}

// ProviderNames lists the registered providers, sorted.
func (m *Manager) ProviderNames() []string {
	names := make([]string, 0, len(m.providers))
	for k := range m.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
