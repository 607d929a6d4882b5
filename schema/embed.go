package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed release-table.schema.json
var releaseTableSchema []byte

// GetReleaseTableSchema returns the embedded ReleaseTable JSON schema
func GetReleaseTableSchema() (interface{}, error) {
	var jsonSchema interface{}
	if err := json.Unmarshal(releaseTableSchema, &jsonSchema); err != nil {
		return nil, fmt.Errorf("failed to parse JSON schema: %w", err)
	}
	return jsonSchema, nil
}

// GetReleaseTableSchemaRaw returns the raw ReleaseTable JSON schema bytes
func GetReleaseTableSchemaRaw() []byte {
	return releaseTableSchema
}
