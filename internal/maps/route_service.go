// README: Routing provider backed by the Google Maps Directions API.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"berline/internal/modules/chat"
)

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Estimate returns the driving distance and duration between two free-text
// addresses. Callers must treat failure as routine: addresses come straight
// from the user and frequently do not geocode on the first try.
func (s *RouteService) Estimate(ctx context.Context, origin, destination string) (chat.RouteEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    "fr",
		Region:      "fr", // bias geocoding toward France
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return chat.RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return chat.RouteEstimate{}, fmt.Errorf("no route found between %q and %q", origin, destination)
	}

	leg := routes[0].Legs[0]
	return chat.RouteEstimate{
		Km:      float64(leg.Distance.Meters) / 1000.0,
		Minutes: leg.Duration.Minutes(),
	}, nil
}
