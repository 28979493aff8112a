// Package location picks the target for each round.
package location

import (
	"context"
	"math/rand/v2"

	"github.com/mcdev12/geoduel/go/clients/geodata_client"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RandomLocationFetcher is the remote source of round locations.
type RandomLocationFetcher interface {
	GetRandomLocation(ctx context.Context) (*geodata_client.LocationResponse, error)
}

// DefaultFallbacks are used whenever the remote source cannot answer.
var DefaultFallbacks = []models.Location{
	{Coordinate: models.NewCoordinate(-23.550520, -46.633308), Name: "São Paulo"},
	{Coordinate: models.NewCoordinate(-22.906847, -43.172897), Name: "Rio de Janeiro"},
	{Coordinate: models.NewCoordinate(-19.916681, -43.934493), Name: "Belo Horizonte"},
	{Coordinate: models.NewCoordinate(-15.826691, -47.921822), Name: "Brasília"},
	{Coordinate: models.NewCoordinate(-30.034647, -51.217658), Name: "Porto Alegre"},
}

type Provider struct {
	remote    RandomLocationFetcher
	fallbacks []models.Location
	intn      func(n int) int
}

// NewProvider returns a Provider. remote may be nil, in which case only fallbacks are served.
func NewProvider(remote RandomLocationFetcher, fallbacks []models.Location) *Provider {
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbacks
	}
	return &Provider{
		remote:    remote,
		fallbacks: fallbacks,
		intn:      rand.IntN,
	}
}

// RandomLocation never fails; a broken remote degrades to the fallback list.
func (p *Provider) RandomLocation(ctx context.Context) models.Location {
	if p.remote != nil {
		resp, err := p.remote.GetRandomLocation(ctx)
		if err == nil {
			return p.fromResponse(resp)
		}
		log.Warn().Err(err).Msg("location provider failed, using fallback")
	}

	loc := p.fallbacks[p.intn(len(p.fallbacks))]
	loc.Heading = p.randomHeading()
	loc.Pitch = p.randomPitch()
	return loc
}

func (p *Provider) fromResponse(resp *geodata_client.LocationResponse) models.Location {
	loc := models.Location{
		Coordinate: resp.ToCoordinate(),
		Name:       resp.Name,
	}
	if resp.Heading != nil {
		loc.Heading = *resp.Heading
	} else {
		loc.Heading = p.randomHeading()
	}
	if resp.Pitch != nil {
		loc.Pitch = *resp.Pitch
	} else {
		loc.Pitch = p.randomPitch()
	}
	return loc
}

// 0..359
func (p *Provider) randomHeading() int {
	return p.intn(360)
}

// -10..9
func (p *Provider) randomPitch() int {
	return p.intn(20) - 10
}
