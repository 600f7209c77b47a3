package instance

import (
	"os"

	"github.com/angelmondragon/comanda-backend/pkg/env"
)

// GetID identifies this worker process in lock ownership values. It prefers
// COMANDA_WORKER_ID, then WORKER_ID, then the hostname.
func GetID() string {
	if id := env.First("", "COMANDA_WORKER_ID", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
