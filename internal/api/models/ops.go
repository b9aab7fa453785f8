package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus is the operator view of the API and its dependencies.
// DegradedProviders names every provider whose circuit is not closed;
// while nominatim is listed, address destinations fall back to ranking
// by price alone.
type SystemStatus struct {
	Status            HealthStatus      `json:"status"`
	Time              Timestamp         `json:"time"`
	Subsystems        []SubsystemStatus `json:"subsystems"`
	Providers         []ProviderStatus  `json:"providers"`
	DegradedProviders []string          `json:"degradedProviders,omitempty"`
}

// SubsystemStatus reports an internal dependency such as the catalogue store.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus reports an upstream provider tracked by the resilience registry.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
