package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
ontology:
  file: "model.nt"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "model.nt", cfg.Ontology.File)
	assert.Equal(t, DefaultIdentifierProperty, cfg.IdentifierPropertyURI())
	assert.True(t, cfg.Ontology.UseConceptNames)
	assert.True(t, cfg.Imports.Enabled)
	assert.True(t, cfg.Imports.FollowRedirects)
	assert.Equal(t, 168*time.Hour, cfg.Imports.TTL)
	assert.Equal(t, 3, cfg.Imports.MaxRetries)
	assert.True(t, cfg.Reasoner.Enabled)
	assert.False(t, cfg.Reasoner.Materialize)
	assert.False(t, cfg.Schema.MergeJoinTables.Enabled)
	assert.Equal(t, "relation_type", cfg.Schema.MergeJoinTables.AttributeName)
	assert.Equal(t, 1, cfg.Schema.MergeJoinTables.Threshold)
	assert.Equal(t, 1, cfg.Schema.InterfaceThreshold)
	assert.Equal(t, TableNamingSnake, cfg.Schema.TableNaming)
	assert.Equal(t, []string{FormatSQL, FormatClassDiagram, FormatERDiagram, FormatSHACL, FormatModel}, cfg.Output.Formats)
	assert.True(t, cfg.Output.Enabled(FormatSHACL))
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExplicitFalseSurvives(t *testing.T) {
	path := writeConfig(t, `
imports:
  enabled: false
reasoner:
  enabled: false
ontology:
  use_concept_names: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Imports.Enabled)
	assert.False(t, cfg.Reasoner.Enabled)
	assert.False(t, cfg.Ontology.UseConceptNames)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
schema:
  table_naming: snake
database:
  host: db.example.com
`)
	t.Setenv("ONTOSCHEMA_TABLE_NAMING", "plural")
	t.Setenv("PGPASSWORD", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TableNamingPlural, cfg.Schema.TableNaming)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Contains(t, cfg.Database.ConnectionString(), "host=db.example.com")
}

func TestLoad_PropertiesAndMirrors(t *testing.T) {
	path := writeConfig(t, `
ontology:
  enum_classes:
    - "http://ex.org/Color"
  extra_properties:
    - uri: "http://ex.org/id"
      name: "id"
      range: "http://www.w3.org/2001/XMLSchema#string"
      identifier: true
      min_cardinality: 1
      max_cardinality: 1
  override_properties:
    - uri: "http://ex.org/tags"
      max_cardinality: 5
imports:
  mirrors:
    - uri: "http://purl.org/dc/terms/"
      mirrors:
        - "file:///mirror/dcterms.nt"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://ex.org/Color"}, cfg.Ontology.EnumClasses)

	require.Len(t, cfg.Ontology.ExtraProperties, 1)
	extra := cfg.Ontology.ExtraProperties[0]
	assert.True(t, extra.Identifier)
	require.NotNil(t, extra.MaxCardinality)
	assert.Equal(t, 1, *extra.MaxCardinality)

	require.Len(t, cfg.Ontology.OverrideProperties, 1)
	assert.Nil(t, cfg.Ontology.OverrideProperties[0].MinCardinality)
	require.Len(t, cfg.Imports.Mirrors, 1)
	assert.Equal(t, "http://purl.org/dc/terms/", cfg.Imports.Mirrors[0].URI)
	assert.Equal(t, []string{"file:///mirror/dcterms.nt"}, cfg.Imports.Mirrors[0].Mirrors)
}

func TestValidate_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name: "extra property without uri",
			yaml: `
ontology:
  extra_properties:
    - name: "id"
`,
			field: "ontology.extra_properties[0].uri",
		},
		{
			name: "override property without uri",
			yaml: `
ontology:
  override_properties:
    - range: "http://www.w3.org/2001/XMLSchema#string"
`,
			field: "ontology.override_properties[0].uri",
		},
		{
			name: "unknown table naming",
			yaml: `
schema:
  table_naming: camel
`,
			field: "schema.table_naming",
		},
		{
			name: "inverted bounds",
			yaml: `
ontology:
  extra_properties:
    - uri: "http://ex.org/x"
      min_cardinality: 3
      max_cardinality: 1
`,
			field: "ontology.extra_properties[0].max_cardinality",
		},
		{
			name: "unknown output format",
			yaml: `
output:
  formats: ["sql", "pdf"]
`,
			field: "output.formats",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

			var ce *apperrors.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
