package geodata_client

const (
	// API Endpoints
	RandomLocationEndpoint = "/api/locations/random"

	// Headers
	APIKeyHeader = "X-Api-Key"
)
