// README: Conversation domain model: context, turns, form updates, assistant contracts.
package chat

import (
	"context"
	"errors"

	"berline/internal/modules/tariff"
)

var ErrEmptyMessage = errors.New("empty message")

// MaxHistory caps the number of conversation turns kept; older turns are
// dropped first.
const MaxHistory = 12

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type OptionsDecision string

const (
	DecisionUnknown OptionsDecision = ""
	DecisionNone    OptionsDecision = "none"
	DecisionSome    OptionsDecision = "some"
)

// CatalogVehicle is the id/label view of a vehicle that is safe to share with
// the language model.
type CatalogVehicle struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	QuoteOnly bool   `json:"quoteOnly"`
}

// CatalogOption is the pricing-safe view of a bookable option.
type CatalogOption struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// VehicleQuote is one computed (or quote-only) price shown to the user.
// Total is nil when no price has been computed yet.
type VehicleQuote struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	IsQuote bool     `json:"isQuote"`
	Total   *float64 `json:"total"`
}

// Context is the sanitised conversation state round-tripped by the caller.
// The server holds nothing between requests; every turn re-derives the
// conversation stage from this snapshot. Pricing is kept only for local
// recomputation and is stripped before anything is sent to the model.
type Context struct {
	Pickup     string `json:"pickup"`
	Dropoff    string `json:"dropoff"`
	PickupDate string `json:"pickupDate"`
	PickupTime string `json:"pickupTime"`

	Vehicles []CatalogVehicle `json:"vehicles"`
	Options  []CatalogOption  `json:"options"`

	VehicleQuotes []VehicleQuote `json:"vehicleQuotes"`

	OptionsAskedOnce  bool            `json:"optionsAskedOnce"`
	OptionsDecision   OptionsDecision `json:"optionsDecision"`
	SelectedOptionIDs []string        `json:"selectedOptionIds"`
	CountsAskedOnce   bool            `json:"countsAskedOnce"`

	Passengers *int `json:"passengers"`
	Bags       *int `json:"bags"`

	RouteKm *float64 `json:"routeKm"`

	Pricing *tariff.Config `json:"pricing"`
}

// RedactedContext is the only conversation payload ever serialised for the
// language model: catalog ids and labels, computed quotes, slot state.
// No base fares, no per-km rates, no surcharge parameters.
type RedactedContext struct {
	Pickup     string `json:"pickup"`
	Dropoff    string `json:"dropoff"`
	PickupDate string `json:"pickupDate"`
	PickupTime string `json:"pickupTime"`

	Vehicles []CatalogVehicle `json:"vehicles"`
	Options  []CatalogOption  `json:"options"`

	VehicleQuotes []VehicleQuote `json:"vehicleQuotes"`

	OptionsAskedOnce  bool            `json:"optionsAskedOnce"`
	OptionsDecision   OptionsDecision `json:"optionsDecision"`
	SelectedOptionIDs []string        `json:"selectedOptionIds"`

	Passengers *int `json:"passengers"`
	Bags       *int `json:"bags"`

	SearchResults []SearchResult `json:"searchResults,omitempty"`
}

// SearchResult is one web-search hit surfaced to the model.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// FormUpdate is the structured change the assistant proposes for the booking
// form. OptionIDs is a pointer so that an explicit empty selection ("no
// options") stays distinct from the field being omitted. Every id must be
// validated against the current catalogs before the update is trusted.
type FormUpdate struct {
	Pickup              string    `json:"pickup,omitempty"`
	Dropoff             string    `json:"dropoff,omitempty"`
	PickupDate          string    `json:"pickupDate,omitempty"`
	PickupTime          string    `json:"pickupTime,omitempty"`
	VehicleID           string    `json:"vehicleId,omitempty"`
	OptionIDs           *[]string `json:"optionIds,omitempty"`
	SuggestedVehicleIDs []string  `json:"suggestedVehicleIds,omitempty"`
}

// StructuredReply is the JSON shape the model is instructed to answer with.
// Either Answer carries the whole reply, or the three section fields do.
type StructuredReply struct {
	Answer     string      `json:"answer,omitempty"`
	Missing    []string    `json:"missing,omitempty"`
	Recap      []string    `json:"recap,omitempty"`
	NextStep   string      `json:"nextStep,omitempty"`
	FormUpdate *FormUpdate `json:"formUpdate,omitempty"`
}

// AssistantReply is the decoded model output: structured when the reply
// parsed as JSON, plain text otherwise. Exactly one branch is set.
type AssistantReply struct {
	Structured *StructuredReply
	Text       string
}

// AssistantRequest is what the orchestrator hands to the language model
// gateway for a freeform turn.
type AssistantRequest struct {
	UserMessage string
	History     []Turn
	Context     RedactedContext
}

// Assistant produces a guarded reply for turns the state machine cannot
// answer deterministically.
type Assistant interface {
	Reply(ctx context.Context, req AssistantRequest) (AssistantReply, error)
}

// RouteEstimate is a routing provider's answer for one origin/destination.
type RouteEstimate struct {
	Km      float64
	Minutes float64
}

// Router resolves trip distances. Implementations must honour the context
// deadline; failures are expected and degrade to a clarifying question.
type Router interface {
	Estimate(ctx context.Context, origin, destination string) (RouteEstimate, error)
}

// Searcher answers transport-schedule style lookups. Optional.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
