package matchdata_client

const (
	// API Endpoints
	MatchEndedEndpoint = "/api/matches/ended"

	// Headers
	APIKeyHeader = "X-Api-Key"
)
