// Package health provides health status reporting for the gateway and its
// engine dependency.
package health

import (
	"time"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status represents the health state of a component or the system.
type Status struct {
	Component   string   `json:"component"`
	Healthy     bool     `json:"healthy"`
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status `json:"sub_statuses,omitempty"`
}

// Healthy creates a healthy status for a component.
func Healthy(component string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy status with a message.
func Unhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// IsHealthy returns true if the status is healthy.
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// IsDegraded returns true if the status is degraded.
func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is unhealthy.
func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// Aggregate combines component statuses: all healthy yields healthy, all
// unhealthy yields unhealthy, anything in between is degraded. An empty
// set is healthy.
func Aggregate(component string, statuses []Status) Status {
	healthy := 0
	for _, s := range statuses {
		if s.IsHealthy() {
			healthy++
		}
	}

	overall := Status{
		Component:   component,
		Timestamp:   time.Now(),
		SubStatuses: statuses,
	}
	switch {
	case healthy == len(statuses):
		overall.Healthy = true
		overall.Status = StatusHealthy
	case healthy == 0:
		overall.Status = StatusUnhealthy
	default:
		overall.Status = StatusDegraded
	}
	return overall
}
