package matchdata_client

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/mcdev12/geoduel/go/internal/events"
)

// SendMatchEnded posts a finished match. It is the fallback path when the bus is down.
func (c *MatchDataClient) SendMatchEnded(ctx context.Context, payload events.MatchEndedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal match ended payload")
	}

	if _, err := c.Post(ctx, MatchEndedEndpoint, bytes.NewReader(body)); err != nil {
		return errors.Wrapf(err, "failed to send match %s", payload.MatchID)
	}
	return nil
}
