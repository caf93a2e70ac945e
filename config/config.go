package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("SPLATCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("splatctl")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".splatctl"))
		}

		// Check /etc
		v.AddConfigPath("/etc/splatctl/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// viper lowercases map keys, so database names are read straight from the file
	dbs, err := loadDatabases(v.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("error reading databases: %w", err)
	}
	cfg.Databases = dbs

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// BugSplat defaults
	v.SetDefault("bugsplat.url", "https://www.bugsplat.com")
	v.SetDefault("bugsplat.username", "")
	v.SetDefault("bugsplat.password", "")
	v.SetDefault("domain", "")

	// Selection defaults
	v.SetDefault("selection.match_mode", "all")
	v.SetDefault("selection.default_tag", "default")

	v.SetDefault("fetch.default_count", 10)

	v.SetDefault("export.dir", ".")
	v.SetDefault("export.overwrite", false)

	// HTTP defaults
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.retry_wait_min", "1s")
	v.SetDefault("http.retry_wait_max", "30s")
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.user_agent", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("metrics.textfile", "")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.BugSplat.URL == "" {
		return fmt.Errorf("bugsplat.url is required")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	switch strings.ToLower(cfg.Selection.MatchMode) {
	case "", "any", "all":
	default:
		return fmt.Errorf("invalid selection.match_mode: %s (must be 'any' or 'all')", cfg.Selection.MatchMode)
	}

	if cfg.Fetch.DefaultCount < 1 {
		return fmt.Errorf("fetch.default_count must be at least 1, got: %d", cfg.Fetch.DefaultCount)
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got: %s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries cannot be negative, got: %d", cfg.HTTP.MaxRetries)
	}
	if cfg.HTTP.RetryWaitMax < cfg.HTTP.RetryWaitMin {
		return fmt.Errorf("http.retry_wait_max (%s) is lower than http.retry_wait_min (%s)",
			cfg.HTTP.RetryWaitMax, cfg.HTTP.RetryWaitMin)
	}
	if cfg.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative, got: %g", cfg.HTTP.RateLimit)
	}

	seen := make(map[string]bool, len(cfg.Databases))
	for i, db := range cfg.Databases {
		if db.Name == "" {
			return fmt.Errorf("databases[%d] has an empty name", i)
		}
		if seen[db.Name] {
			return fmt.Errorf("database %s is listed more than once", db.Name)
		}
		seen[db.Name] = true
	}

	return nil
}

// listEntry is the original settings-file shape: [{"database": "x", "tags": [...]}]
type listEntry struct {
	Database string   `yaml:"database" json:"database"`
	Name     string   `yaml:"name" json:"name"`
	Tags     []string `yaml:"tags" json:"tags"`
}

func (e listEntry) toDatabase() Database {
	name := e.Database
	if name == "" {
		name = e.Name
	}
	return Database{Name: name, Tags: e.Tags}
}

// loadDatabases reads the databases section keeping the order of the file.
// Both the mapping form (name: [tags]) and the list form are accepted.
func loadDatabases(path string) ([]Database, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseJSONDatabases(data)
	}
	return parseYAMLDatabases(data)
}

func parseYAMLDatabases(data []byte) ([]Database, error) {
	var doc struct {
		Databases yaml.Node `yaml:"databases"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	node := &doc.Databases
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		dbs := make([]Database, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var tags []string
			if err := node.Content[i+1].Decode(&tags); err != nil {
				return nil, fmt.Errorf("tags of database %s: %w", node.Content[i].Value, err)
			}
			dbs = append(dbs, Database{Name: node.Content[i].Value, Tags: tags})
		}
		return dbs, nil
	case yaml.SequenceNode:
		var entries []listEntry
		if err := node.Decode(&entries); err != nil {
			return nil, err
		}
		dbs := make([]Database, 0, len(entries))
		for _, e := range entries {
			dbs = append(dbs, e.toDatabase())
		}
		return dbs, nil
	default:
		return nil, fmt.Errorf("databases must be a mapping or a list (line %d)", node.Line)
	}
}

func parseJSONDatabases(data []byte) ([]Database, error) {
	var doc struct {
		Databases json.RawMessage `json:"databases"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	raw := bytes.TrimSpace(doc.Databases)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var entries []listEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		dbs := make([]Database, 0, len(entries))
		for _, e := range entries {
			dbs = append(dbs, e.toDatabase())
		}
		return dbs, nil
	}

	// Walk the object token by token: encoding/json maps do not keep key order.
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("databases must be an object or an array")
	}
	var dbs []Database
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)
		var tags []string
		if err := dec.Decode(&tags); err != nil {
			return nil, fmt.Errorf("tags of database %s: %w", name, err)
		}
		dbs = append(dbs, Database{Name: name, Tags: tags})
	}
	return dbs, nil
}
