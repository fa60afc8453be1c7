// Package instance names the running replica in logs.
package instance

import (
	"os"
	"strings"
)

const fallbackID = "local"

// envKeys are checked in order; DYNO covers Heroku style platforms.
var envKeys = []string{"QUARTERMASTER_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID returns the replica identifier, falling back to the host name and
// then to "local".
func GetID() string {
	for _, key := range envKeys {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
