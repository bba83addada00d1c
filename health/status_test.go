package health_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/piyushkb/WhastapWeb/health"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []health.Status
		want     string
	}{
		{
			name:     "empty set is healthy",
			statuses: nil,
			want:     health.StatusHealthy,
		},
		{
			name: "all healthy",
			statuses: []health.Status{
				health.Healthy("engine"),
				health.Healthy("sessions"),
			},
			want: health.StatusHealthy,
		},
		{
			name: "all unhealthy",
			statuses: []health.Status{
				health.Unhealthy("engine", "connection refused"),
			},
			want: health.StatusUnhealthy,
		},
		{
			name: "mixed is degraded",
			statuses: []health.Status{
				health.Healthy("sessions"),
				health.Unhealthy("engine", "connection refused"),
			},
			want: health.StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := health.Aggregate("whastapweb", tt.statuses)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want == health.StatusHealthy, got.Healthy)
			assert.Len(t, got.SubStatuses, len(tt.statuses))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, health.Healthy("x").IsHealthy())
	assert.True(t, health.Unhealthy("x", "down").IsUnhealthy())

	degraded := health.Aggregate("x", []health.Status{
		health.Healthy("a"),
		health.Unhealthy("b", "down"),
	})
	assert.True(t, degraded.IsDegraded())
}

func TestUnhealthy_CarriesMessage(t *testing.T) {
	s := health.Unhealthy("engine", "connection refused")
	assert.Equal(t, "connection refused", s.Message)
	assert.False(t, s.Healthy)
}
