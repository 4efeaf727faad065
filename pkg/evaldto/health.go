package evaldto

import "time"

type HealthResponse struct {
	Status     string            `json:"status"`
	Realm      string            `json:"realm"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}
