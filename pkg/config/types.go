// Package config provides configuration types and utilities for the trip
// planning runtime. Every section implements Validate and SetDefaults so a
// partially written file still produces a usable configuration.
package config

import (
	"fmt"
)

// Config is the single entry point for all configuration.
type Config struct {
	Version     string `yaml:"version,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	// LLM provider configurations, keyed by provider name
	LLMs map[string]LLMProviderConfig `yaml:"llms,omitempty"`

	// Orchestrator settings
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`

	// Upstream services consumed by the inline tools
	Services ServiceConfig `yaml:"services,omitempty"`

	// Trip storage settings
	Storage StorageConfig `yaml:"storage,omitempty"`

	// HTTP server settings
	Server ServerConfig `yaml:"server,omitempty"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// Validate implements Config.Validate for Config
func (c *Config) Validate() error {
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("LLM '%s' validation failed: %w", name, err)
		}
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("orchestrator validation failed: %w", err)
	}
	if err := c.Services.Validate(); err != nil {
		return fmt.Errorf("services validation failed: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for Config
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "wayfarer"
	}
	if c.LLMs == nil {
		c.LLMs = make(map[string]LLMProviderConfig)
	}
	// Zero-config: a single default provider
	if len(c.LLMs) == 0 {
		c.LLMs["default-llm"] = LLMProviderConfig{}
	}
	for name := range c.LLMs {
		llm := c.LLMs[name]
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
	c.Orchestrator.SetDefaults()
	c.Services.SetDefaults()
	c.Storage.SetDefaults()
	c.Server.SetDefaults()
	c.Logging.SetDefaults()
}

// LLMProviderConfig represents a single LLM provider.
type LLMProviderConfig struct {
	Type        string  `yaml:"type"`        // "qwen", "openai", "anthropic"
	Model       string  `yaml:"model"`       // Model name
	APIKey      string  `yaml:"api_key"`     // API key
	Host        string  `yaml:"host"`        // Base URL of the provider or proxy
	Temperature float64 `yaml:"temperature"` // Sampling temperature
	MaxTokens   int     `yaml:"max_tokens"`  // Max completion tokens
	Timeout     int     `yaml:"timeout"`     // Request timeout in seconds
	MaxRetries  int     `yaml:"max_retries"` // Max retry attempts before first token
	RetryDelay  int     `yaml:"retry_delay"` // Base backoff delay in milliseconds
}

// Validate implements Config.Validate for LLMProviderConfig
func (c *LLMProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for LLMProviderConfig
func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "qwen"
	}
	if c.Model == "" {
		switch c.Type {
		case "openai":
			c.Model = "gpt-4o-mini"
		case "anthropic":
			c.Model = "claude-3-5-haiku-20241022"
		default:
			c.Model = "qwen-turbo"
		}
	}
	if c.Host == "" {
		switch c.Type {
		case "openai":
			c.Host = "https://api.openai.com/v1"
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		default:
			c.Host = "https://dashscope.aliyuncs.com"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 500
	}
}

// OrchestratorConfig controls agent sequencing.
type OrchestratorConfig struct {
	LLM          string `yaml:"llm"`           // LLM provider reference
	SaveTrips    bool   `yaml:"save_trips"`    // Persist finished trips
	ToolTimeout  int    `yaml:"tool_timeout"`  // Per tool-call timeout in seconds
	PromptBudget int    `yaml:"prompt_budget"` // Max prompt tokens passed to the model
	TokenModel   string `yaml:"token_model"`   // Encoding used for token estimation
}

// Validate implements Config.Validate for OrchestratorConfig
func (c *OrchestratorConfig) Validate() error {
	if c.LLM == "" {
		return fmt.Errorf("llm provider reference is required")
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("tool_timeout must be non-negative")
	}
	if c.PromptBudget < 0 {
		return fmt.Errorf("prompt_budget must be non-negative")
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for OrchestratorConfig
func (c *OrchestratorConfig) SetDefaults() {
	if c.LLM == "" {
		c.LLM = "default-llm"
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = 30
	}
	if c.PromptBudget == 0 {
		c.PromptBudget = 6000
	}
	if c.TokenModel == "" {
		c.TokenModel = "gpt-4o"
	}
}

// ServiceConfig holds the upstream endpoints the inline tools call. The
// endpoints are expected to be the credential-injecting proxy, not the raw
// third-party APIs.
type ServiceConfig struct {
	WeatherURL string `yaml:"weather_url"` // Weather lookup endpoint
	PlacesURL  string `yaml:"places_url"`  // Place/hotel search endpoint
	Timeout    int    `yaml:"timeout"`     // Request timeout in seconds
	MaxRetries int    `yaml:"max_retries"` // Max retry attempts
}

// Validate implements Config.Validate for ServiceConfig
func (c *ServiceConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for ServiceConfig
func (c *ServiceConfig) SetDefaults() {
	if c.WeatherURL == "" {
		c.WeatherURL = "http://localhost:8787/api/weather"
	}
	if c.PlacesURL == "" {
		c.PlacesURL = "http://localhost:8787/api/places"
	}
	if c.Timeout == 0 {
		c.Timeout = 15
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// StorageConfig represents trip storage configuration.
type StorageConfig struct {
	Type string `yaml:"type"` // "sqlite"
	Path string `yaml:"path"` // Database file path
}

// Validate implements Config.Validate for StorageConfig
func (c *StorageConfig) Validate() error {
	if c.Type != "" && c.Type != "sqlite" {
		return fmt.Errorf("unsupported storage type: %s", c.Type)
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for StorageConfig
func (c *StorageConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "sqlite"
	}
	if c.Path == "" {
		c.Path = "wayfarer.db"
	}
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Validate implements Config.Validate for ServerConfig
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for ServerConfig
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // simple, text, json
	Output string `yaml:"output"` // stdout, stderr, file path
}

// Validate implements Config.Validate for LoggingConfig
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	validFormats := map[string]bool{
		"simple": true, "text": true, "json": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid log format: %s", c.Format)
	}
	return nil
}

// SetDefaults implements Config.SetDefaults for LoggingConfig
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}
