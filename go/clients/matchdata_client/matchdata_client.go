package matchdata_client

import (
	"github.com/mcdev12/geoduel/go/clients"
)

// MatchDataClient delivers match outcomes to the data service over HTTP.
type MatchDataClient struct {
	*clients.BaseClient
}

func NewMatchDataClient(baseURL, apiKey string) *MatchDataClient {
	client := &MatchDataClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader(APIKeyHeader, apiKey)
	}

	return client
}
