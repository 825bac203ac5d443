// Package metrics centralizes metric naming so every subsystem exports
// instruments under a single prefix.
package metrics

import "strings"

const prefix = "chunkforge_"

// MetricName returns the metric name prefixed with the project namespace.
// Names that already carry the prefix are returned unchanged.
func MetricName(name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// MetricNameWithSubsystem builds "<prefix><subsystem>_<name>", trimming
// stray underscores from the subsystem label.
func MetricNameWithSubsystem(subsystem, name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	sub := strings.Trim(subsystem, "_")
	switch {
	case sub == "":
		return MetricName(name)
	case name == "":
		return prefix + sub
	default:
		return prefix + sub + "_" + name
	}
}
