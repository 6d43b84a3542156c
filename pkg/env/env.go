// Package env reads optional process environment values that sit outside
// the prefixed application config, such as logging output tweaks.
package env

import "os"

// Get returns the variable's value, or the fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
