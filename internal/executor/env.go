package executor

import (
	"fmt"
	"strings"
)

// EnvMap parses KEY=VALUE pairs, silently dropping malformed entries.
func EnvMap(envs []string) map[string]string {
	env := make(map[string]string, len(envs))
	for _, e := range envs {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}

		env[k] = v
	}

	return env
}

func envSlice(env map[string]string) []string {
	envs := make([]string, 0, len(env))
	for k, v := range env {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}

	return envs
}

// MergeEnv layers overrides onto base, later maps win.
func MergeEnv(base map[string]string, overrides ...map[string]string) map[string]string {
	merged := make(map[string]string, len(base))
	for k, v := range base {
		merged[k] = v
	}

	for _, override := range overrides {
		for k, v := range override {
			merged[k] = v
		}
	}

	return merged
}
