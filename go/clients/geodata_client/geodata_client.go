package geodata_client

import (
	"github.com/mcdev12/geoduel/go/clients"
)

// GeoDataClient talks to the service that serves round locations.
type GeoDataClient struct {
	*clients.BaseClient
}

func NewGeoDataClient(baseURL, apiKey string) *GeoDataClient {
	client := &GeoDataClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader(APIKeyHeader, apiKey)
	}

	return client
}
