// Package services provides lifecycle management for the components of a runtime.
package services

import (
	"context"
	"time"
)

// ManagedService defines the interface for components with lifecycle management.
type ManagedService interface {
	// Name returns the component name for logging and identification.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health() HealthStatus

	// Dependencies returns the names of components this component depends on.
	Dependencies() []string
}

// HealthStatus represents the health of a managed component.
type HealthStatus struct {
	Status  string    `json:"status" yaml:"status"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	CheckAt time.Time `json:"check_at" yaml:"check_at"`
}

const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// Healthy returns a healthy status with an optional detail message.
func Healthy(message string) HealthStatus {
	return HealthStatus{Status: HealthHealthy, Message: message, CheckAt: time.Now()}
}

// Unhealthy returns an unhealthy status carrying the reason.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{Status: HealthUnhealthy, Message: message, CheckAt: time.Now()}
}
