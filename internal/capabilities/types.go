package capabilities

import "gopkg.in/yaml.v3"

// ImageGeneration represents image generation capabilities
type ImageGeneration string

const (
	ImageGenerationNone     ImageGeneration = "none"
	ImageGenerationStandard ImageGeneration = "standard"
)

// ModelCapabilities represents all metadata for a selectable model slot
type ModelCapabilities struct {
	// Slot identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	// Display information
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Backend model the provider calls for this slot
	BackendModel string `yaml:"backend_model" json:"backend_model"`

	// Core capabilities
	SupportsVision bool `yaml:"supports_vision" json:"supports_vision"`
	SupportsFiles  bool `yaml:"supports_files" json:"supports_files"`

	ImageGeneration ImageGeneration `yaml:"image_generation" json:"image_generation"`

	// Limits
	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`
}

// ProviderCapabilities represents all model slots a provider serves
type ProviderCapabilities struct {
	Provider string              `yaml:"provider" json:"provider"`
	Models   []ModelCapabilities `yaml:"-" json:"models"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve model order from YAML file
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "provider" {
			p.Provider = node.Content[i+1].Value
			break
		}
	}

	type modelsOnly struct {
		Models map[string]ModelCapabilities `yaml:"models"`
	}
	var m modelsOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	// Extract model keys in YAML order and build the slice
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "models" {
			modelsNode := node.Content[i+1]
			// modelsNode.Content alternates: key, value, key, value...
			for j := 0; j < len(modelsNode.Content); j += 2 {
				modelID := modelsNode.Content[j].Value
				if model, ok := m.Models[modelID]; ok {
					model.ID = modelID
					p.Models = append(p.Models, model)
				}
			}
			break
		}
	}

	return nil
}
