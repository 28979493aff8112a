package geodata_client

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/mcdev12/geoduel/go/internal/models"
)

type LocationCoordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type LocationResponse struct {
	ID         string             `json:"id"`
	Coordinate LocationCoordinate `json:"coordinate"`
	Name       string             `json:"name"`
	Heading    *int               `json:"heading"`
	Pitch      *int               `json:"pitch"`
}

// ToCoordinate reads X as latitude and Y as longitude.
func (r LocationResponse) ToCoordinate() models.Coordinate {
	return models.NewCoordinate(r.Coordinate.X, r.Coordinate.Y)
}

// GetRandomLocation returns a location from the provider. Heading and pitch are nil when the
// provider does not know them.
func (c *GeoDataClient) GetRandomLocation(ctx context.Context) (*LocationResponse, error) {
	body, err := c.Get(ctx, RandomLocationEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get random location")
	}

	var response LocationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal response, raw response: %s", string(body))
	}

	coord := response.ToCoordinate()
	if coord.Lat < -90 || coord.Lat > 90 || coord.Lng < -180 || coord.Lng > 180 {
		return nil, errors.Newf("provider returned out of range coordinate %s", coord)
	}

	return &response, nil
}
