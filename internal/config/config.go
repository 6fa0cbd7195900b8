// Package config loads the cmsindex YAML configuration: the target index,
// the configured search fields (including computed fields), the CMS
// connection, and reindex session storage.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Field types accepted in search_fields[].type.
const (
	FieldTypeString     = "string"
	FieldTypeCollection = "collection"
	FieldTypeInt        = "int"
	FieldTypeBool       = "bool"
	FieldTypeDate       = "date"
)

// DefaultBatchSize is the number of ids processed per reindex page.
const DefaultBatchSize = 999

// Config represents the complete cmsindex configuration.
type Config struct {
	Version         int              `yaml:"version" json:"version"`
	Index           IndexConfig      `yaml:"index" json:"index"`
	SearchFields    []SearchField    `yaml:"search_fields" json:"search_fields"`
	ScoringProfiles []ScoringProfile `yaml:"scoring_profiles" json:"scoring_profiles"`
	Analyzers       []Analyzer       `yaml:"analyzers" json:"analyzers"`
	CMS             CMSConfig        `yaml:"cms" json:"cms"`
	Sessions        SessionsConfig   `yaml:"sessions" json:"sessions"`
	Reindex         ReindexConfig    `yaml:"reindex" json:"reindex"`
	LogLevel        string           `yaml:"log_level" json:"log_level"`
}

// IndexConfig names the search index and where its data lives.
type IndexConfig struct {
	// Name is the index documents are submitted to.
	Name string `yaml:"name" json:"name"`
	// Path is the directory holding the bleve indexes. Empty keeps them in memory.
	Path string `yaml:"path" json:"path"`
}

// SearchField is a configured mapping from a CMS property (or a computed
// value) to an index field.
type SearchField struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`

	// ParserType makes this a computed field: the value comes from the
	// registered parser with this identifier instead of a CMS property.
	ParserType string `yaml:"parser_type,omitempty" json:"parser_type,omitempty"`

	// IsGridJSON marks a grid editor value whose text must be extracted.
	IsGridJSON bool `yaml:"is_grid_json,omitempty" json:"is_grid_json,omitempty"`

	IsSearchable  bool   `yaml:"searchable,omitempty" json:"searchable,omitempty"`
	IsFilterable  bool   `yaml:"filterable,omitempty" json:"filterable,omitempty"`
	IsSortable    bool   `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	IsFacetable   bool   `yaml:"facetable,omitempty" json:"facetable,omitempty"`
	IsRetrievable *bool  `yaml:"retrievable,omitempty" json:"retrievable,omitempty"`
	Analyzer      string `yaml:"analyzer,omitempty" json:"analyzer,omitempty"`
}

// IsComputedField reports whether the field value comes from a parser.
func (f SearchField) IsComputedField() bool {
	return strings.TrimSpace(f.ParserType) != ""
}

// Retrievable defaults to true when not set.
func (f SearchField) Retrievable() bool {
	return f.IsRetrievable == nil || *f.IsRetrievable
}

// ScoringProfile boosts matches in particular fields.
type ScoringProfile struct {
	Name    string             `yaml:"name" json:"name"`
	Weights map[string]float64 `yaml:"weights" json:"weights"`
}

// Analyzer declares a custom text analyzer usable by search fields.
type Analyzer struct {
	Name         string   `yaml:"name" json:"name"`
	Tokenizer    string   `yaml:"tokenizer" json:"tokenizer"`
	TokenFilters []string `yaml:"token_filters,omitempty" json:"token_filters,omitempty"`
	CharFilters  []string `yaml:"char_filters,omitempty" json:"char_filters,omitempty"`
}

// CMSConfig configures the CMS database the entities are read from.
type CMSConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn" json:"dsn"`
}

// SessionsConfig configures reindex session storage.
type SessionsConfig struct {
	// StoragePath is the directory holding one subdirectory per session.
	// Defaults to ~/.cmsindex/sessions
	StoragePath string `yaml:"storage_path" json:"storage_path"`
	// MaxAge is how long an abandoned session survives `sessions prune`.
	MaxAge string `yaml:"max_age" json:"max_age"`
}

// ReindexConfig configures paging.
type ReindexConfig struct {
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Name: "umbraco",
			Path: defaultIndexPath(),
		},
		CMS: CMSConfig{
			Driver: "sqlite",
			DSN:    "cms.db",
		},
		Sessions: SessionsConfig{
			StoragePath: defaultSessionsPath(),
			MaxAge:      "24h",
		},
		Reindex: ReindexConfig{
			BatchSize: DefaultBatchSize,
		},
		LogLevel: "info",
	}
}

func dataHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cmsindex")
	}
	return filepath.Join(home, ".cmsindex")
}

func defaultIndexPath() string {
	return filepath.Join(dataHome(), "indexes")
}

func defaultSessionsPath() string {
	return filepath.Join(dataHome(), "sessions")
}

// Load loads configuration from the specified directory.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. Project config (.cmsindex.yaml or .cmsindex.yml in dir)
//  3. Environment variables (CMSINDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load .cmsindex.yaml or .cmsindex.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".cmsindex.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".cmsindex.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Name != "" {
		c.Index.Name = other.Index.Name
	}
	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}

	// Field lists replace rather than append: the file is the full schema.
	if len(other.SearchFields) > 0 {
		c.SearchFields = other.SearchFields
	}
	if len(other.ScoringProfiles) > 0 {
		c.ScoringProfiles = other.ScoringProfiles
	}
	if len(other.Analyzers) > 0 {
		c.Analyzers = other.Analyzers
	}

	if other.CMS.Driver != "" {
		c.CMS.Driver = other.CMS.Driver
	}
	if other.CMS.DSN != "" {
		c.CMS.DSN = other.CMS.DSN
	}

	if other.Sessions.StoragePath != "" {
		c.Sessions.StoragePath = other.Sessions.StoragePath
	}
	if other.Sessions.MaxAge != "" {
		c.Sessions.MaxAge = other.Sessions.MaxAge
	}

	if other.Reindex.BatchSize != 0 {
		c.Reindex.BatchSize = other.Reindex.BatchSize
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies CMSINDEX_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CMSINDEX_INDEX_NAME"); v != "" {
		c.Index.Name = v
	}
	if v := os.Getenv("CMSINDEX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("CMSINDEX_CMS_DRIVER"); v != "" {
		c.CMS.Driver = v
	}
	if v := os.Getenv("CMSINDEX_CMS_DSN"); v != "" {
		c.CMS.DSN = v
	}
	if v := os.Getenv("CMSINDEX_SESSIONS_PATH"); v != "" {
		c.Sessions.StoragePath = v
	}
	if v := os.Getenv("CMSINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reindex.BatchSize = n
		}
	}
	if v := os.Getenv("CMSINDEX_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// reservedFieldNames are the standard fields every document carries.
// Configured fields may not shadow them.
var reservedFieldNames = []string{
	"Id", "Name", "Key", "Url", "MemberEmail",
	"IsContent", "IsMedia", "IsMember", "Published", "Trashed",
	"SearchablePath", "Path", "Template", "Icon", "ContentTypeAlias",
	"UpdateDate", "CreateDate", "ContentTypeId", "ParentID", "Level",
	"SortOrder", "WriterId", "CreatorId", "WriterName", "CreatorName",
}

// ReservedFieldNames returns the standard field names.
func ReservedFieldNames() []string {
	out := make([]string, len(reservedFieldNames))
	copy(out, reservedFieldNames)
	return out
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Index.Name) == "" {
		return fmt.Errorf("index.name is required")
	}

	validTypes := map[string]bool{
		FieldTypeString: true, FieldTypeCollection: true, FieldTypeInt: true,
		FieldTypeBool: true, FieldTypeDate: true,
	}
	reserved := make(map[string]bool, len(reservedFieldNames))
	for _, n := range reservedFieldNames {
		reserved[strings.ToLower(n)] = true
	}

	analyzers := make(map[string]bool, len(c.Analyzers))
	for i, a := range c.Analyzers {
		if a.Name == "" || a.Tokenizer == "" {
			return fmt.Errorf("analyzers[%d]: name and tokenizer are required", i)
		}
		analyzers[a.Name] = true
	}
	analyzers["keyword"] = true
	analyzers["standard"] = true

	seen := make(map[string]bool, len(c.SearchFields))
	for i, f := range c.SearchFields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("search_fields[%d].name is required", i)
		}
		if !validTypes[f.Type] {
			return fmt.Errorf("search_fields[%d] %s: type must be string, collection, int, bool or date, got %q", i, f.Name, f.Type)
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			return fmt.Errorf("search_fields[%d]: duplicate field %s", i, f.Name)
		}
		if reserved[key] {
			return fmt.Errorf("search_fields[%d]: %s is a standard field", i, f.Name)
		}
		seen[key] = true
		if f.IsGridJSON && f.Type != FieldTypeString {
			return fmt.Errorf("search_fields[%d] %s: is_grid_json requires type string", i, f.Name)
		}
		if f.Analyzer != "" && !analyzers[f.Analyzer] {
			return fmt.Errorf("search_fields[%d] %s: unknown analyzer %s", i, f.Name, f.Analyzer)
		}
	}

	for i, p := range c.ScoringProfiles {
		if p.Name == "" {
			return fmt.Errorf("scoring_profiles[%d].name is required", i)
		}
	}

	switch strings.ToLower(c.CMS.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("cms.driver must be 'sqlite' or 'postgres', got %s", c.CMS.Driver)
	}

	if c.Reindex.BatchSize < 1 {
		return fmt.Errorf("reindex.batch_size must be positive, got %d", c.Reindex.BatchSize)
	}

	if c.Sessions.MaxAge != "" {
		if _, err := time.ParseDuration(c.Sessions.MaxAge); err != nil {
			return fmt.Errorf("sessions.max_age: %w", err)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

// SessionMaxAge returns the parsed session max age, defaulting to 24h.
func (c *Config) SessionMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Sessions.MaxAge)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ComputedFields returns the configured fields backed by a parser.
func (c *Config) ComputedFields() []SearchField {
	var out []SearchField
	for _, f := range c.SearchFields {
		if f.IsComputedField() {
			out = append(out, f)
		}
	}
	return out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
