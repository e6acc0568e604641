// Package instance names the running process in logs and lock tokens.
package instance

import (
	"fmt"
	"os"
)

// GetID returns WORKER_ID when set, otherwise <hostname>-<pid>.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
