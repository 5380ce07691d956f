package config

import (
	"fmt"
	"os"
)

// Config holds application configuration
type Config struct {
	// Cluster
	KubeconfigPath   string
	SimNamespace     string
	VirtualNamespace string
	TargetDeploy     string

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Observability
	PrometheusURL string

	// Artifacts
	RunsDir          string
	TraceClusterPath string
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		KubeconfigPath:   getEnv("KUBECONFIG_PATH", ""),
		SimNamespace:     getEnv("SIM_NAMESPACE", "simkube"),
		VirtualNamespace: getEnv("VIRTUAL_NAMESPACE", "virtual-default"),
		TargetDeploy:     getEnv("TARGET_DEPLOY", "web"),
		StorageEnabled:   getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost port=5432 user=trainer password=devpassword dbname=simtrainer sslmode=disable"),
		PrometheusURL:    getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		RunsDir:          getEnv("RUNS_DIR", "runs"),
		TraceClusterPath: getEnv("TRACE_CLUSTER_PATH", "file:///data"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.SimNamespace == "" {
		return fmt.Errorf("SIM_NAMESPACE must not be empty")
	}
	if c.VirtualNamespace == "" {
		return fmt.Errorf("VIRTUAL_NAMESPACE must not be empty")
	}
	if c.TargetDeploy == "" {
		return fmt.Errorf("TARGET_DEPLOY must not be empty")
	}
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.RunsDir == "" {
		return fmt.Errorf("RUNS_DIR must not be empty")
	}
	return nil
}
