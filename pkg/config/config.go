package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
)

// DefaultIdentifierProperty is used when no identifier property is configured.
const DefaultIdentifierProperty = "http://www.w3.org/1999/02/22-rdf-syntax-ns#id"

// Table naming strategies.
const (
	TableNamingSnake  = "snake"
	TableNamingPlural = "plural"
)

// Output formats.
const (
	FormatSQL          = "sql"
	FormatClassDiagram = "class-diagram"
	FormatERDiagram    = "er-diagram"
	FormatSHACL        = "shacl"
	FormatModel        = "model"
)

// Config holds all configuration for ontoschema.
// Configuration comes from a YAML file with environment variable overrides.
// The database password is only read from the environment.
type Config struct {
	Ontology OntologyConfig `yaml:"ontology"`
	Imports  ImportsConfig  `yaml:"imports"`
	Reasoner ReasonerConfig `yaml:"reasoner"`
	Schema   SchemaConfig   `yaml:"schema"`
	Output   OutputConfig   `yaml:"output"`
	Stages   StagesConfig   `yaml:"stages"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
}

// OntologyConfig describes the input model and builder options.
type OntologyConfig struct {
	File         string `yaml:"file" env:"ONTOSCHEMA_ONTOLOGY_FILE"`
	ConceptsFile string `yaml:"concepts_file" env:"ONTOSCHEMA_CONCEPTS_FILE"`

	// EnumClasses lists class URIs emitted as enums.
	EnumClasses []string `yaml:"enum_classes" env:"ONTOSCHEMA_ENUM_CLASSES" env-separator:","`

	// IdentifierProperty is the property whose column becomes the primary
	// key when no identifier extra property is configured.
	IdentifierProperty string `yaml:"identifier_property" env:"ONTOSCHEMA_IDENTIFIER_PROPERTY" env-default:"http://www.w3.org/1999/02/22-rdf-syntax-ns#id"`

	ExtraProperties    []ExtraProperty    `yaml:"extra_properties"`
	OverrideProperties []OverrideProperty `yaml:"override_properties"`

	// UseConceptNames replaces raw local names with concept preferred labels.
	UseConceptNames bool `yaml:"use_concept_names" env:"ONTOSCHEMA_USE_CONCEPT_NAMES"`
}

// ExtraProperty is injected into every ontology class.
type ExtraProperty struct {
	URI            string `yaml:"uri"`
	Name           string `yaml:"name"`
	Range          string `yaml:"range"`
	Identifier     bool   `yaml:"identifier"`
	MinCardinality *int   `yaml:"min_cardinality"`
	MaxCardinality *int   `yaml:"max_cardinality"`
}

// OverrideProperty replaces the range and/or cardinality of an extracted
// property wherever it appears.
type OverrideProperty struct {
	URI            string `yaml:"uri"`
	Range          string `yaml:"range"`
	MinCardinality *int   `yaml:"min_cardinality"`
	MaxCardinality *int   `yaml:"max_cardinality"`
}

// ImportsConfig controls owl:imports resolution.
type ImportsConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ONTOSCHEMA_IMPORTS_ENABLED"`
	CacheDir        string        `yaml:"cache_dir" env:"ONTOSCHEMA_IMPORTS_CACHE_DIR" env-default:".ontoschema/cache/imports"`
	TTL             time.Duration `yaml:"ttl" env:"ONTOSCHEMA_IMPORTS_TTL" env-default:"168h"`
	Timeout         time.Duration `yaml:"timeout" env:"ONTOSCHEMA_IMPORTS_TIMEOUT" env-default:"30s"`
	MaxRetries      int           `yaml:"max_retries" env:"ONTOSCHEMA_IMPORTS_MAX_RETRIES" env-default:"3"`
	UserAgent       string        `yaml:"user_agent" env:"ONTOSCHEMA_IMPORTS_USER_AGENT" env-default:"ontoschema"`
	FollowRedirects bool          `yaml:"follow_redirects" env:"ONTOSCHEMA_IMPORTS_FOLLOW_REDIRECTS"`
	Mirrors         []MirrorEntry `yaml:"mirrors"`
}

// MirrorEntry lists fallback locations for an import URI or URI prefix.
// Locations may be http(s) URLs, file:// URLs or local paths.
type MirrorEntry struct {
	URI     string   `yaml:"uri"`
	Mirrors []string `yaml:"mirrors"`
}

// ReasonerConfig controls inference.
type ReasonerConfig struct {
	Enabled     bool          `yaml:"enabled" env:"ONTOSCHEMA_REASONER_ENABLED"`
	Materialize bool          `yaml:"materialize" env:"ONTOSCHEMA_REASONER_MATERIALIZE" env-default:"false"`
	CacheDir    string        `yaml:"cache_dir" env:"ONTOSCHEMA_REASONER_CACHE_DIR" env-default:".ontoschema/cache/reasoner"`
	TTL         time.Duration `yaml:"ttl" env:"ONTOSCHEMA_REASONER_TTL" env-default:"24h"`
}

// SchemaConfig controls the simplifier and synthesizer.
type SchemaConfig struct {
	MergeJoinTables MergeJoinTablesConfig `yaml:"merge_join_tables"`

	// InterfaceThreshold is the implementer count an interface must exceed
	// to be emitted.
	InterfaceThreshold int    `yaml:"interface_threshold" env:"ONTOSCHEMA_INTERFACE_THRESHOLD" env-default:"1"`
	TableNaming        string `yaml:"table_naming" env:"ONTOSCHEMA_TABLE_NAMING" env-default:"snake"`
}

// MergeJoinTablesConfig controls merging of parallel many-to-many relations.
type MergeJoinTablesConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ONTOSCHEMA_MERGE_JOIN_TABLES" env-default:"false"`
	AttributeName string `yaml:"attribute_name" env:"ONTOSCHEMA_MERGE_ATTRIBUTE_NAME" env-default:"relation_type"`
	// Threshold is the relation count to the same target that must be
	// exceeded before merging.
	Threshold int `yaml:"threshold" env:"ONTOSCHEMA_MERGE_THRESHOLD" env-default:"1"`
}

// OutputConfig names the rendered artifacts.
type OutputConfig struct {
	Dir                string   `yaml:"dir" env:"ONTOSCHEMA_OUTPUT_DIR" env-default:"out"`
	Formats            []string `yaml:"formats" env:"ONTOSCHEMA_OUTPUT_FORMATS" env-separator:"," env-default:"sql,class-diagram,er-diagram,shacl,model"`
	SQLFile            string   `yaml:"sql_file" env-default:"schema.sql"`
	ClassDiagramFile   string   `yaml:"class_diagram_file" env-default:"classes.mmd"`
	ERDiagramFile      string   `yaml:"er_diagram_file" env-default:"er.mmd"`
	SHACLFile          string   `yaml:"shacl_file" env-default:"shapes.ttl"`
	ModelFile          string   `yaml:"model_file" env-default:"model.yaml"`
	ClassDiagramStyles bool     `yaml:"class_diagram_styles"`
}

// Enabled reports whether format is selected.
func (o *OutputConfig) Enabled(format string) bool {
	for _, f := range o.Formats {
		if strings.TrimSpace(f) == format {
			return true
		}
	}
	return false
}

// StagesConfig optionally restricts the run to a subset of stages.
type StagesConfig struct {
	Enabled []string `yaml:"enabled" env:"ONTOSCHEMA_STAGES" env-separator:","`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"ONTOSCHEMA_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"ONTOSCHEMA_LOG_FORMAT" env-default:"console"`
}

// DatabaseConfig holds the PostgreSQL target for applying generated schema.
type DatabaseConfig struct {
	Host          string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port          int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User          string `yaml:"user" env:"PGUSER" env-default:"ontoschema"`
	Password      string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database      string `yaml:"database" env:"PGDATABASE" env-default:"ontoschema"`
	SSLMode       string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsDir string `yaml:"migrations_dir" env:"ONTOSCHEMA_MIGRATIONS_DIR" env-default:"migrations"`
}

// newDefaults returns the boolean settings that default to true. cleanenv
// only applies env-default to zero values, so an explicit "false" in YAML
// would otherwise be overwritten.
func newDefaults() *Config {
	return &Config{
		Ontology: OntologyConfig{UseConceptNames: true},
		Imports:  ImportsConfig{Enabled: true, FollowRedirects: true},
		Reasoner: ReasonerConfig{Enabled: true},
		Output:   OutputConfig{ClassDiagramStyles: true},
	}
}

// Load reads the YAML file at path with environment overrides, then
// validates the result.
func Load(path string) (*Config, error) {
	cfg := newDefaults()
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds a configuration from defaults and environment only.
func LoadFromEnv() (*Config, error) {
	cfg := newDefaults()
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed as tags. Every failure is
// a *apperrors.ConfigError.
func (c *Config) Validate() error {
	for i, p := range c.Ontology.ExtraProperties {
		if strings.TrimSpace(p.URI) == "" {
			return &apperrors.ConfigError{
				Field:  fmt.Sprintf("ontology.extra_properties[%d].uri", i),
				Reason: "extra property has no URI",
			}
		}
		if err := validateBounds(fmt.Sprintf("ontology.extra_properties[%d]", i), p.MinCardinality, p.MaxCardinality); err != nil {
			return err
		}
	}
	for i, p := range c.Ontology.OverrideProperties {
		if strings.TrimSpace(p.URI) == "" {
			return &apperrors.ConfigError{
				Field:  fmt.Sprintf("ontology.override_properties[%d].uri", i),
				Reason: "override property has no URI",
			}
		}
		if err := validateBounds(fmt.Sprintf("ontology.override_properties[%d]", i), p.MinCardinality, p.MaxCardinality); err != nil {
			return err
		}
	}

	switch c.Schema.TableNaming {
	case TableNamingSnake, TableNamingPlural:
	default:
		return &apperrors.ConfigError{
			Field:  "schema.table_naming",
			Reason: fmt.Sprintf("unknown strategy %q (want %s or %s)", c.Schema.TableNaming, TableNamingSnake, TableNamingPlural),
		}
	}
	if c.Schema.MergeJoinTables.Threshold < 1 {
		return &apperrors.ConfigError{Field: "schema.merge_join_tables.threshold", Reason: "must be at least 1"}
	}
	if c.Schema.MergeJoinTables.Enabled && strings.TrimSpace(c.Schema.MergeJoinTables.AttributeName) == "" {
		return &apperrors.ConfigError{Field: "schema.merge_join_tables.attribute_name", Reason: "required when merging is enabled"}
	}
	if c.Schema.InterfaceThreshold < 0 {
		return &apperrors.ConfigError{Field: "schema.interface_threshold", Reason: "must not be negative"}
	}
	if c.Imports.MaxRetries < 0 {
		return &apperrors.ConfigError{Field: "imports.max_retries", Reason: "must not be negative"}
	}
	for i, m := range c.Imports.Mirrors {
		if strings.TrimSpace(m.URI) == "" {
			return &apperrors.ConfigError{Field: fmt.Sprintf("imports.mirrors[%d].uri", i), Reason: "mirror entry has no URI"}
		}
		for _, loc := range m.Mirrors {
			if _, err := url.Parse(loc); err != nil || loc == "" {
				return &apperrors.ConfigError{Field: fmt.Sprintf("imports.mirrors[%d].mirrors", i), Reason: fmt.Sprintf("invalid location %q", loc)}
			}
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return &apperrors.ConfigError{Field: "logging.format", Reason: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	for _, f := range c.Output.Formats {
		switch strings.TrimSpace(f) {
		case FormatSQL, FormatClassDiagram, FormatERDiagram, FormatSHACL, FormatModel:
		default:
			return &apperrors.ConfigError{Field: "output.formats", Reason: fmt.Sprintf("unknown format %q", f)}
		}
	}
	return nil
}

func validateBounds(field string, min, max *int) error {
	if min != nil && *min < 0 {
		return &apperrors.ConfigError{Field: field + ".min_cardinality", Reason: "must not be negative"}
	}
	if min != nil && max != nil && *max < *min {
		return &apperrors.ConfigError{Field: field + ".max_cardinality", Reason: "must not be below min_cardinality"}
	}
	return nil
}

// IdentifierPropertyURI returns the configured identifier property, falling
// back to the default.
func (c *Config) IdentifierPropertyURI() string {
	if c.Ontology.IdentifierProperty != "" {
		return c.Ontology.IdentifierProperty
	}
	return DefaultIdentifierProperty
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
