package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	ProjectsDir    string
	PricingFile    string
	LogLevel       string
	SubagentLimit  int
	SSHAddr        string
	SSHUser        string
	SSHKeyFile     string
	SSHPassword    string
	SSHProjectsDir string
}

func Load() Config {
	return Config{
		ProjectsDir:    envStr("ARGUS_PROJECTS_DIR", defaultProjectsDir()),
		PricingFile:    envStr("ARGUS_PRICING_FILE", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		SubagentLimit:  envInt("ARGUS_SUBAGENT_LIMIT", 4),
		SSHAddr:        envStr("ARGUS_SSH_ADDR", ""),
		SSHUser:        envStr("ARGUS_SSH_USER", ""),
		SSHKeyFile:     envStr("ARGUS_SSH_KEY_FILE", ""),
		SSHPassword:    envStr("ARGUS_SSH_PASSWORD", ""),
		SSHProjectsDir: envStr("ARGUS_SSH_PROJECTS_DIR", ".claude/projects"),
	}
}

func defaultProjectsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
