package config

// Build metadata, set with -ldflags "-X github.com/edirooss/zmux-analytics/internal/config.Version=..."
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)
