package environ

import (
	"os"
	"strconv"
	"time"

	"k8s.io/kube-openapi/pkg/validation/strfmt"
)

// Prefix is prepended to every variable name looked up by this package.
const Prefix = "XPERF_"

func lookup(key string) (string, bool) {
	return os.LookupEnv(Prefix + key)
}

func GetString(key, fallback string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	if value, ok := lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func GetBool(key string, fallback bool) bool {
	if value, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if d, err := strfmt.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
