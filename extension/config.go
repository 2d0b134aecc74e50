package extension

// Config holds the Praetor extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.praetor" or "praetor" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxHierarchyDepth controls the maximum depth for role hierarchy traversal.
	MaxHierarchyDepth int `json:"max_hierarchy_depth" mapstructure:"max_hierarchy_depth" yaml:"max_hierarchy_depth"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and constructs the
	// SQLite store from it.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxHierarchyDepth: 10,
	}
}
