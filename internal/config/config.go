package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validator returns the process-wide validator instance so request types and
// config share one set of validations.
func Validator() *validator.Validate {
	return validate
}

// Config holds every runtime setting of the service. The output directory is
// injected here rather than hard-coded so tests can point it at a temp dir.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	Port       int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	OutputDir  string `mapstructure:"output_dir" validate:"required"`

	LLM     LLMConfig     `mapstructure:"llm"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`

	DrainGrace time.Duration `mapstructure:"drain_grace" validate:"required"`
	LogLevel   string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// LLMConfig configures the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"required,min=1"`
}

// SandboxConfig configures script execution.
type SandboxConfig struct {
	Image   string        `mapstructure:"image" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.Port)
}

// Load reads configuration from an optional YAML file and TASKFORGE_*
// environment variables, applies defaults and validates the result.
// An empty filePath skips the file and uses defaults plus environment only.
func Load(filePath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", "0.0.0.0")
	v.SetDefault("port", 7860)
	v.SetDefault("output_dir", "/app/output")
	v.SetDefault("llm.base_url", "")
	// Every key needs a default (even an empty one): AutomaticEnv keys are
	// not enumerable, so Unmarshal only sees keys viper already knows about.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("sandbox.image", "python:3.12-slim")
	v.SetDefault("sandbox.timeout", 30*time.Second)
	v.SetDefault("drain_grace", 10*time.Second)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("TASKFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", filePath)
		}
		v.SetConfigFile(filePath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The OpenAI SDK convention is honored when no explicit key is set.
	if v.GetString("llm.api_key") == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			v.Set("llm.api_key", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, formatValidationError(err)
	}

	return &cfg, nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		result := "validation errors:\n"
		for _, msg := range errorMessages {
			result += fmt.Sprintf("  - %s\n", msg)
		}
		return fmt.Errorf("%s", result)
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, tag)
	}
}
