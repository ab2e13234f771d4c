package schemaregistry

import (
	"embed"
	"fmt"
)

// Schema names double as registry subjects (plus the configured suffix).
// They follow the record-name convention: namespace.record, one subject per
// event type per role.
const (
	SchemaEditionKey    = "ltd.edition_key_v1"
	SchemaEditionUpdate = "ltd.edition_update_v1"
)

//go:embed schemas/*.avsc
var schemaFS embed.FS

var schemaFiles = map[string]string{
	SchemaEditionKey:    "schemas/edition_key_v1.avsc",
	SchemaEditionUpdate: "schemas/edition_update_v1.avsc",
}

func schemaText(name string) (string, error) {
	path, ok := schemaFiles[name]
	if !ok {
		return "", fmt.Errorf("no schema definition for %q", name)
	}
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schema %q: %w", name, err)
	}
	return string(data), nil
}
