// Package config loads and validates the deployment configuration from
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// ConfigurationError reports an invalid or inconsistent configuration
// value. It is always raised before any construct is created, so a
// failing configuration never produces a partial stack.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// SecretRef points at one field of an externally managed Secrets Manager
// secret. The secret is looked up by name at deploy time, never created
// here, and only the reference crosses the stack boundary.
type SecretRef struct {
	// LogicalName is the environment variable the field is surfaced as
	// inside the container.
	LogicalName string
	// SecretPath is the Secrets Manager secret name, e.g.
	// "multimodalai/openai-api-key".
	SecretPath string
	// Field is the JSON key inside the secret value.
	Field string
}

// SecretRefs decodes from a comma-separated list of
// "NAME=secret/path#FIELD" entries.
type SecretRefs []SecretRef

// Decode implements envconfig.Decoder.
func (s *SecretRefs) Decode(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var refs SecretRefs
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return fmt.Errorf("secret ref %q: expected NAME=path#field", entry)
		}
		path, field, ok := strings.Cut(rest, "#")
		if !ok {
			return fmt.Errorf("secret ref %q: expected NAME=path#field", entry)
		}
		refs = append(refs, SecretRef{
			LogicalName: strings.TrimSpace(name),
			SecretPath:  strings.TrimSpace(path),
			Field:       strings.TrimSpace(field),
		})
	}
	*s = refs
	return nil
}

// Config holds every stack-level input. All values are environment
// sourced; nothing is compiled in.
type Config struct {
	Account string `envconfig:"CDK_DEFAULT_ACCOUNT"`
	Region  string `envconfig:"CDK_DEFAULT_REGION"`

	// Synthesizer settings for accounts bootstrapped with a custom
	// qualifier. Empty means the default synthesizer.
	SynthQualifier    string `envconfig:"CDK_QUALIFIER"`
	SynthAssetsBucket string `envconfig:"CDK_ASSETS_BUCKET"`

	// DomainName is the pre-existing, delegated Route53 zone. Required
	// when HTTPS is enabled.
	DomainName string `envconfig:"DOMAIN_NAME"`
	// Subdomain is the record label pointed at the load balancer, e.g.
	// "app" for app.example.com.
	Subdomain string `envconfig:"SUBDOMAIN" default:"app"`

	// ContainerImage is a public registry reference. Tags are taken
	// as-is; there is no digest pinning, so a mutable tag like :latest
	// deploys whatever the registry currently serves.
	ContainerImage string `envconfig:"CONTAINER_IMAGE" default:"lobehub/lobe-chat:latest"`
	ContainerPort  int    `envconfig:"CONTAINER_PORT" default:"3210"`

	SecretRefs SecretRefs        `envconfig:"SECRET_REFS"`
	EnvVars    map[string]string `envconfig:"CONTAINER_ENV"`

	DesiredCount     int `envconfig:"DESIRED_COUNT" default:"2"`
	MinReplicas      int `envconfig:"MIN_REPLICAS" default:"1"`
	MaxReplicas      int `envconfig:"MAX_REPLICAS" default:"6"`
	CPUTargetPercent int `envconfig:"CPU_TARGET_PERCENT" default:"30"`

	EnableHTTPS           bool `envconfig:"ENABLE_HTTPS" default:"false"`
	EnableKnowledgeBucket bool `envconfig:"ENABLE_KNOWLEDGE_BUCKET" default:"true"`

	// NotifyEmail subscribes an address to the alerts topic. Empty
	// skips the subscription but still creates the topic.
	NotifyEmail string `envconfig:"NOTIFY_EMAIL"`

	// AllowedCountries enables the WAF geo rule: traffic not
	// originating from these ISO country codes is blocked outright,
	// health checkers included. Empty disables the rule.
	AllowedCountries []string `envconfig:"WAF_ALLOWED_COUNTRIES"`

	// ElbLogDeliveryAccount is the regional ELB log-delivery account
	// granted write access on the access-log bucket. The default is
	// the us-east-1 delivery account.
	ElbLogDeliveryAccount string `envconfig:"ELB_LOG_DELIVERY_ACCOUNT" default:"127311923021"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency. It returns a
// *ConfigurationError naming the offending field, or nil.
func (c *Config) Validate() error {
	if c.MinReplicas < 1 {
		return &ConfigurationError{Field: "MIN_REPLICAS", Reason: "must be at least 1"}
	}
	if c.MaxReplicas < c.MinReplicas {
		return &ConfigurationError{
			Field:  "MAX_REPLICAS",
			Reason: fmt.Sprintf("must be >= MIN_REPLICAS (%d), got %d", c.MinReplicas, c.MaxReplicas),
		}
	}
	if c.DesiredCount < c.MinReplicas || c.DesiredCount > c.MaxReplicas {
		return &ConfigurationError{
			Field:  "DESIRED_COUNT",
			Reason: fmt.Sprintf("must be within [%d, %d], got %d", c.MinReplicas, c.MaxReplicas, c.DesiredCount),
		}
	}
	if c.CPUTargetPercent <= 0 || c.CPUTargetPercent > 100 {
		return &ConfigurationError{
			Field:  "CPU_TARGET_PERCENT",
			Reason: fmt.Sprintf("must be in (0, 100], got %d", c.CPUTargetPercent),
		}
	}
	if c.ContainerPort <= 0 || c.ContainerPort > 65535 {
		return &ConfigurationError{
			Field:  "CONTAINER_PORT",
			Reason: fmt.Sprintf("must be a valid port, got %d", c.ContainerPort),
		}
	}
	if c.ContainerImage == "" {
		return &ConfigurationError{Field: "CONTAINER_IMAGE", Reason: "must not be empty"}
	}
	if c.EnableHTTPS && c.DomainName == "" {
		return &ConfigurationError{
			Field:  "DOMAIN_NAME",
			Reason: "required when ENABLE_HTTPS is true",
		}
	}
	for _, ref := range c.SecretRefs {
		if ref.LogicalName == "" || ref.SecretPath == "" || ref.Field == "" {
			return &ConfigurationError{
				Field:  "SECRET_REFS",
				Reason: fmt.Sprintf("entry %q has an empty name, path or field", ref.LogicalName),
			}
		}
	}
	return nil
}

// FQDN returns the fully qualified record name for the service, or ""
// when no domain is configured.
func (c *Config) FQDN() string {
	if c.DomainName == "" || c.Subdomain == "" {
		return ""
	}
	return fmt.Sprintf("%s.%s", c.Subdomain, c.DomainName)
}
