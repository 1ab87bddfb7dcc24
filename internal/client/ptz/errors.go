package ptz

import "github.com/edirooss/zmux-analytics/internal/client"

// RemoteCallError is returned by every driver when the camera side rejects or misses a command.
type RemoteCallError = client.RemoteCallError
