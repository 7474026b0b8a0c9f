package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"filing_analyst/pkg/core/utils"
)

// LoadFromDirectory overlays prompt files from a directory onto the registry.
// Expected structure:
//
//	baseDir/
//	  prompts/
//	    template/
//	      swot.hjson
//	    analysis/
//	      analyst_system.json
//	  schemas/
//	    structured_query.json
//
// A file whose ID matches a registered prompt only replaces the fields it sets.
func LoadFromDirectory(r *Registry, baseDir string) error {
	promptDir := filepath.Join(baseDir, "prompts")
	if err := loadPrompts(r, promptDir); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	schemaDir := filepath.Join(baseDir, "schemas")
	if err := loadSchemas(r, schemaDir); err != nil {
		// Schemas are optional, just log warning
		log.Printf("[prompt.Loader] Warning: No schemas loaded from %s: %v", schemaDir, err)
	}

	log.Printf("[prompt.Loader] %d prompts registered after loading %s", r.Count(), baseDir)
	return nil
}

func isPromptFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".json" || ext == ".hjson"
}

// loadPrompts recursively loads all .json/.hjson files from the prompts directory
func loadPrompts(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("prompts directory not found: %s", dir)
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isPromptFile(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// Hjson is a superset of JSON, so one decoder serves both extensions.
		normalized, err := utils.ParseHJSON(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		var pt PromptTemplate
		if err := json.Unmarshal([]byte(normalized), &pt); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}

		// Auto-generate ID from path if not specified
		if pt.ID == "" {
			pt.ID = generateIDFromPath(path, dir)
		}

		// Auto-detect category from folder name if not specified
		if pt.Category == "" {
			pt.Category = detectCategory(path, dir)
		}

		if existing, err := r.GetPrompt(pt.ID); err == nil {
			pt = overlay(*existing, pt)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		return nil
	})
}

// overlay copies every non-zero field of override onto base.
func overlay(base, override PromptTemplate) PromptTemplate {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Category != "" {
		base.Category = override.Category
	}
	if override.Description != "" {
		base.Description = override.Description
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if override.UserPromptTmpl != "" {
		base.UserPromptTmpl = override.UserPromptTmpl
	}
	if override.ResponseSchemaID != "" {
		base.ResponseSchemaID = override.ResponseSchemaID
	}
	if len(override.Variables) > 0 {
		base.Variables = override.Variables
	}
	if override.Order != 0 {
		base.Order = override.Order
	}
	if override.Version != "" {
		base.Version = override.Version
	}
	return base
}

// loadSchemas loads all schema JSON files
func loadSchemas(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil // Schemas are optional
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read schema %s: %w", path, err)
		}

		// Schema files can be stored as-is (the JSON is the schema itself)
		baseName := strings.TrimSuffix(filepath.Base(path), ".json")
		schema := &ResponseSchema{
			ID:         baseName,
			Name:       baseName,
			JSONSchema: string(data),
		}

		return r.RegisterSchema(schema)
	})
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "prompts/template/swot.hjson" -> "template.swot"
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

// detectCategory determines the category from the file path
func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context.
// Declared defaults fill unset variables; a missing required variable is an error.
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	vars := make(map[string]interface{}, len(ctx.Variables)+len(pt.Variables))
	for _, v := range pt.Variables {
		if v.Default != "" {
			vars[v.Name] = v.Default
		}
	}
	for k, v := range ctx.Variables {
		vars[k] = v
	}
	for _, v := range pt.Variables {
		if _, ok := vars[v.Name]; v.Required && !ok {
			return "", fmt.Errorf("prompt %s: missing required variable %s", pt.ID, v.Name)
		}
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=zero").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
