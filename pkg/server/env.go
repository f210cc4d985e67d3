package server

import (
	"os"
	"sort"
	"strings"
)

// maxEnvValueLen caps displayed environment values.
const maxEnvValueLen = 100

// maskedValue is what secret-like values are replaced with.
const maskedValue = "••••••••"

// secretMarkers are matched case-insensitively against variable names.
var secretMarkers = []string{"SECRET", "PASSWORD", "TOKEN", "KEY"}

// EnvVar is one row of the /info environment table.
type EnvVar struct {
	Name  string
	Value string
}

// environmentRows returns the process environment sorted by name, with
// secret-like values masked and everything else truncated for display.
func environmentRows() []EnvVar {
	env := os.Environ()
	rows := make([]EnvVar, 0, len(env))

	for _, kv := range env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rows = append(rows, EnvVar{Name: name, Value: displayValue(name, value)})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// displayValue masks secret-like variables and truncates the rest.
func displayValue(name, value string) string {
	upper := strings.ToUpper(name)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return maskedValue
		}
	}
	if len(value) > maxEnvValueLen {
		return value[:maxEnvValueLen]
	}
	return value
}
