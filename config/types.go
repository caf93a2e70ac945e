package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	BugSplat  BugSplatConfig    `mapstructure:"bugsplat"`
	Databases []Database        `mapstructure:"-"`
	Domain    string            `mapstructure:"domain"`
	Selection SelectionConfig   `mapstructure:"selection"`
	Fetch     FetchConfig       `mapstructure:"fetch"`
	Export    ExportConfig      `mapstructure:"export"`
	HTTP      HTTPConfig        `mapstructure:"http"`
	Filters   map[string]string `mapstructure:"filters"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// BugSplatConfig holds BugSplat connection details
type BugSplatConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Database is one BugSplat database and the tags used to select it
type Database struct {
	Name string
	Tags []string
}

// HasTag reports whether the database carries tag (case-sensitive)
func (d Database) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SelectionConfig contains database selection defaults
type SelectionConfig struct {
	MatchMode  string `mapstructure:"match_mode"`
	DefaultTag string `mapstructure:"default_tag"`
}

// FetchConfig contains listing defaults
type FetchConfig struct {
	DefaultCount int `mapstructure:"default_count"`
}

// ExportConfig contains crash archive download settings
type ExportConfig struct {
	Dir       string `mapstructure:"dir"`
	Overwrite bool   `mapstructure:"overwrite"`
}

// HTTPConfig contains transport settings shared by every request
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// MetricsConfig controls the Prometheus textfile dump written after a run
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}
