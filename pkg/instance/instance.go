package instance

import "os"

// GetID returns the process instance identifier used in startup logs.
func GetID() string {
	if id := os.Getenv("BAKEHOUSE_INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
