package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/interfaces-to/interfaces-to/errors"
)

// Dir is the directory, under the home and working directories, that holds config.yaml.
const Dir = ".into"

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Toolset is a named group of tool set entries, usable wherever a tool set
// name is accepted.
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

// Listen configures the HTTP based message sources.
type Listen struct {
	Address   string `yaml:"address"`
	Path      string `yaml:"path"`
	WSAddress string `yaml:"ws_address"`
	WSPath    string `yaml:"ws_path"`
}

type Config struct {
	LLMClient        string           `yaml:"llm"`
	Model            string           `yaml:"model"`
	BaseURL          string           `yaml:"base_url"`
	Azure            bool             `yaml:"azure"`
	APIVersion       string           `yaml:"api_version"`
	System           string           `yaml:"system"`
	Verbose          bool             `yaml:"verbose"`
	Tools            []string         `yaml:"tools"`
	Messages         []string         `yaml:"messages"`
	Toolsets         []Toolset        `yaml:"toolsets"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
	Listen           Listen           `yaml:"listen"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		FilesystemAccess: FilesystemAccess{
			Hidden: []string{Dir, Dir + "/**", ".env"},
		},
		Listen: Listen{Address: ":8080", Path: "/message", WSAddress: ":8081", WSPath: "/ws"},
	}
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored and variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrapf(err, "failed to load %v", existing)
	}
	return nil
}

// LoadConfig loads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	home, _ := os.UserHomeDir()
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	return Load(home, wd)
}

// Load reads <dir>/.into/config.yaml for each of dirs, later files
// overriding earlier ones. Empty dirs are skipped.
func Load(dirs ...string) (*Config, error) {
	cfg := Default()
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, Dir, "config.yaml")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadFromFile(path, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading config %s", path)
		}
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites the fields present in the YAML, so a project file
	// replaces user-level values field by field.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name.
func (c *Config) GetToolset(name string) (*Toolset, bool) {
	for i := range c.Toolsets {
		if c.Toolsets[i].Name == name {
			return &c.Toolsets[i], true
		}
	}
	return nil, false
}

// GetMCPServer finds an MCP server by name.
func (c *Config) GetMCPServer(name string) (*MCPServer, bool) {
	for i := range c.MCPServers {
		if c.MCPServers[i].Name == name {
			return &c.MCPServers[i], true
		}
	}
	return nil, false
}
