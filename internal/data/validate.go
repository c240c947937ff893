package data

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/*.json
var schemaFS embed.FS

// Структурная валидация данных при загрузке: кривой файл отклоняется
// с внятной ошибкой ДО сборки мира, а не падает в рантайме.

func compileEmbedded(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("embedded schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return compiler.Compile(name)
}

// validateYAML прогоняет сырой YAML через схему.
// jsonschema работает с типами encoding/json, поэтому документ
// нормализуется через JSON round-trip.
func validateYAML(raw []byte, schemaName string) error {
	sch, err := compileEmbedded(schemaName)
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("yaml parse: %w", err)
	}

	normalized, err := jsonNormalize(doc)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	if err := sch.Validate(normalized); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

func jsonNormalize(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
