// README: Slot-filling orchestrator: derives the conversation stage each turn
// and decides between a deterministic answer and a guarded model call.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"berline/internal/modules/tariff"
)

const (
	routeTimeout      = 15 * time.Second
	quoteWaitBudget   = 9 * time.Second
	quotePollInterval = 250 * time.Millisecond
	searchTimeout     = 10 * time.Second
)

var errRoutePending = errors.New("route estimate still pending")

// Orchestrator drives one booking conversation turn. It is stateless: the
// whole conversation travels in the request context, so instances are safe
// for concurrent use.
type Orchestrator struct {
	engine    tariff.Engine
	assistant Assistant
	router    Router
	searcher  Searcher
	log       *zap.Logger
}

// NewOrchestrator wires the collaborators. searcher may be nil.
func NewOrchestrator(assistant Assistant, router Router, searcher Searcher, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		engine:    tariff.Engine{Now: time.Now},
		assistant: assistant,
		router:    router,
		searcher:  searcher,
		log:       log,
	}
}

type TurnRequest struct {
	UserMessage string
	Context     Context
	History     []Turn
}

type TurnResponse struct {
	Reply      string
	FormUpdate *FormUpdate
}

// Respond handles one chat turn. The stage is not stored anywhere: it is
// re-derived from which slots the context already holds, so a user who
// volunteers several facts in one message skips several stages at once.
// Order: route slots, options decision, passenger/bag counts, deterministic
// recommendation, then — and only then — the language model.
func (o *Orchestrator) Respond(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	msg := strings.TrimSpace(req.UserMessage)
	if msg == "" {
		return TurnResponse{}, ErrEmptyMessage
	}
	cc := req.Context
	pending := &FormUpdate{}

	absorbCounts(&cc, msg, req.History)
	absorbOptionsDecision(&cc, msg, pending)

	if missing := missingRouteFields(cc); len(missing) > 0 {
		return respond(askRoute(missing), pending), nil
	}

	if err := o.ensureQuotes(ctx, &cc); err != nil && len(pricedQuotes(cc.VehicleQuotes)) == 0 {
		return respond(askClearerAddresses(), pending), nil
	}

	if len(cc.Options) > 0 && cc.OptionsDecision == DecisionUnknown {
		if !cc.OptionsAskedOnce {
			return respond(askOptions(cc.Options), pending), nil
		}
		// Asked already and still no readable decision: settle on "no
		// options" and let the form update carry it back to the client.
		cc.OptionsDecision = DecisionNone
		empty := []string{}
		pending.OptionIDs = &empty
	}

	if cc.Passengers == nil || cc.Bags == nil {
		if !cc.CountsAskedOnce {
			return respond(askCounts(cc), pending), nil
		}
		return respond(askCountsExact(), pending), nil
	}

	if picks := Recommend(cc.VehicleQuotes, *cc.Passengers, *cc.Bags); len(picks) > 0 {
		for _, p := range picks {
			pending.SuggestedVehicleIDs = append(pending.SuggestedVehicleIDs, p.ID)
		}
		return respond(recommendReply(picks, *cc.Passengers, *cc.Bags), pending), nil
	}

	return o.freeform(ctx, msg, cc, req.History, pending)
}

// freeform is the only path that may reach the language model. A message
// probing for the pricing formula is intercepted before any call is made.
func (o *Orchestrator) freeform(ctx context.Context, msg string, cc Context, history []Turn, pending *FormUpdate) (TurnResponse, error) {
	if isPricingFormulaProbe(msg) {
		return respond(formulaRefusal, pending), nil
	}

	redacted := Redact(cc)
	if o.searcher != nil && looksLikeScheduleQuery(msg) {
		sctx, cancel := context.WithTimeout(ctx, searchTimeout)
		results, err := o.searcher.Search(sctx, msg)
		cancel()
		if err != nil {
			o.log.Warn("web search failed", zap.Error(err))
		} else {
			redacted.SearchResults = results
		}
	}

	rep, err := o.assistant.Reply(ctx, AssistantRequest{
		UserMessage: msg,
		History:     history,
		Context:     redacted,
	})
	if err != nil {
		o.log.Warn("assistant reply failed", zap.Error(err))
		return respond(assistantUnavailable, pending), nil
	}

	resp := TurnResponse{Reply: FormatReply(rep, cc.VehicleQuotes)}
	if rep.Structured != nil {
		resp.FormUpdate = mergeFormUpdates(rep.Structured.FormUpdate, pending)
	} else {
		resp.FormUpdate = nonEmpty(pending)
	}
	return resp, nil
}

// ensureQuotes recomputes the per-vehicle quotes when the route is known but
// prices are missing. The routing lookup runs in the background with its own
// timeout; the turn waits for it in short polls up to a fixed budget and then
// answers with whatever it has. Server-computed quotes take precedence over
// quotes the client sent for the same vehicle.
func (o *Orchestrator) ensureQuotes(ctx context.Context, cc *Context) error {
	if cc.Pricing == nil || len(cc.Pricing.Vehicles) == 0 || quotesComplete(*cc) {
		return nil
	}

	km := 0.0
	switch {
	case cc.RouteKm != nil && *cc.RouteKm > 0:
		km = *cc.RouteKm
	case o.router != nil:
		est, err := o.routeWithPoll(ctx, cc.Pickup, cc.Dropoff)
		if err != nil {
			o.log.Warn("route estimate failed",
				zap.String("pickup", cc.Pickup),
				zap.String("dropoff", cc.Dropoff),
				zap.Error(err))
			return err
		}
		km = est.Km
		cc.RouteKm = &km
	default:
		return nil
	}

	server := o.computeQuotes(*cc.Pricing, km, *cc)
	cc.VehicleQuotes = mergeQuotes(server, cc.VehicleQuotes)
	return nil
}

type routeOutcome struct {
	est RouteEstimate
	err error
}

func (o *Orchestrator) routeWithPoll(ctx context.Context, origin, dest string) (RouteEstimate, error) {
	var out atomic.Pointer[routeOutcome]
	go func() {
		rctx, cancel := context.WithTimeout(ctx, routeTimeout)
		defer cancel()
		est, err := o.router.Estimate(rctx, origin, dest)
		out.Store(&routeOutcome{est: est, err: err})
	}()

	ticker := time.NewTicker(quotePollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(quoteWaitBudget)
	defer deadline.Stop()
	for {
		if res := out.Load(); res != nil {
			return res.est, res.err
		}
		select {
		case <-ctx.Done():
			return RouteEstimate{}, ctx.Err()
		case <-deadline.C:
			return RouteEstimate{}, errRoutePending
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) computeQuotes(cfg tariff.Config, km float64, cc Context) []VehicleQuote {
	quotes := make([]VehicleQuote, 0, len(cfg.Vehicles))
	for _, v := range cfg.Vehicles {
		res, err := o.engine.Compute(cfg, tariff.Request{
			Km:                km,
			PickupDate:        cc.PickupDate,
			PickupTime:        cc.PickupTime,
			VehicleID:         v.ID,
			SelectedOptionIDs: cc.SelectedOptionIDs,
		})
		if err != nil {
			o.log.Warn("quote computation failed", zap.String("vehicle", v.ID), zap.Error(err))
			continue
		}
		q := VehicleQuote{ID: v.ID, Label: v.Label, IsQuote: res.IsQuote}
		if !res.IsQuote {
			total := res.Total
			q.Total = &total
		}
		quotes = append(quotes, q)
	}
	return quotes
}

// mergeQuotes keeps every server-computed quote and fills in client quotes
// only for vehicles the server did not price.
func mergeQuotes(server, client []VehicleQuote) []VehicleQuote {
	seen := make(map[string]bool, len(server))
	out := append([]VehicleQuote(nil), server...)
	for _, q := range server {
		seen[q.ID] = true
	}
	for _, q := range client {
		if !seen[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

func quotesComplete(cc Context) bool {
	if len(cc.VehicleQuotes) == 0 {
		return false
	}
	byID := make(map[string]VehicleQuote, len(cc.VehicleQuotes))
	for _, q := range cc.VehicleQuotes {
		byID[q.ID] = q
	}
	for _, v := range cc.Pricing.Vehicles {
		q, ok := byID[v.ID]
		if !ok || (!q.IsQuote && q.Total == nil) {
			return false
		}
	}
	return true
}

// absorbCounts folds freshly extracted counts into the context, preferring
// values the context already holds.
func absorbCounts(cc *Context, msg string, history []Turn) {
	counts := ExtractCounts(msg, history)
	if cc.Passengers == nil {
		cc.Passengers = counts.Passengers
	}
	if cc.Bags == nil {
		cc.Bags = counts.Bags
	}
}

var (
	noOptionsRe   = regexp.MustCompile(`(?i)\b(sans\s+options?|pas\s+d'?options?|aucune?)\b`)
	plainNoRe     = regexp.MustCompile(`(?i)^\s*non\b`)
	priceIntentRe = regexp.MustCompile(`(?i)\b(prix|tarifs?|co[ûu]ts?|combien)\b`)
	formulaRe     = regexp.MustCompile(`(?i)comment\s+(?:est[- ]il\s+|c'est\s+|[çc]a\s+se\s+)?calcul|calcul[ée]|formule|d[ée]tails?|\bbase\b|€\s*/\s*km|eur\s*/\s*km`)
	scheduleRe    = regexp.MustCompile(`(?i)\bhoraires?\b|\btrain\b|\btgv\b|\bvols?\b`)
)

// absorbOptionsDecision resolves the options slot from the message text:
// option labels mentioned by name select them, a refusal settles on "none".
func absorbOptionsDecision(cc *Context, msg string, pending *FormUpdate) {
	if cc.OptionsDecision != DecisionUnknown {
		return
	}
	if len(cc.SelectedOptionIDs) > 0 {
		cc.OptionsDecision = DecisionSome
		return
	}

	low := strings.ToLower(msg)
	var picked []string
	for _, opt := range cc.Options {
		label := strings.ToLower(strings.TrimSpace(opt.Label))
		if label != "" && strings.Contains(low, label) {
			picked = append(picked, opt.ID)
		}
	}
	if len(picked) > 0 {
		cc.OptionsDecision = DecisionSome
		cc.SelectedOptionIDs = picked
		ids := append([]string(nil), picked...)
		pending.OptionIDs = &ids
		return
	}

	if noOptionsRe.MatchString(msg) || (cc.OptionsAskedOnce && plainNoRe.MatchString(msg)) {
		cc.OptionsDecision = DecisionNone
		empty := []string{}
		pending.OptionIDs = &empty
	}
}

func missingRouteFields(cc Context) []string {
	var missing []string
	if cc.Pickup == "" {
		missing = append(missing, "l'adresse de départ")
	}
	if cc.Dropoff == "" {
		missing = append(missing, "l'adresse d'arrivée")
	}
	if cc.PickupDate == "" {
		missing = append(missing, "la date")
	}
	if cc.PickupTime == "" {
		missing = append(missing, "l'heure de prise en charge")
	}
	return missing
}

func isPricingFormulaProbe(msg string) bool {
	return priceIntentRe.MatchString(msg) && formulaRe.MatchString(msg)
}

func looksLikeScheduleQuery(msg string) bool {
	return scheduleRe.MatchString(msg)
}

func pricedQuotes(quotes []VehicleQuote) []VehicleQuote {
	var out []VehicleQuote
	for _, q := range quotes {
		if q.IsQuote || q.Total != nil {
			out = append(out, q)
		}
	}
	return out
}

const (
	formulaRefusal = "Le mode de calcul de nos tarifs n'est pas communiqué. En revanche, je peux vous donner immédiatement un prix total pour votre trajet : indiquez-moi le départ, l'arrivée, la date et l'heure."

	assistantUnavailable = "L'assistant est momentanément indisponible. Réessayez dans un instant, ou complétez votre réservation directement via le formulaire."
)

func askRoute(missing []string) string {
	return fmt.Sprintf("Pour préparer votre devis, il me manque encore : %s. Pouvez-vous me les indiquer ?", strings.Join(missing, ", "))
}

func askClearerAddresses() string {
	return "Je n'ai pas réussi à localiser ce trajet. Pouvez-vous préciser les adresses de départ et d'arrivée (ville, rue, numéro) ?"
}

func askOptions(options []CatalogOption) string {
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.Type == string(tariff.OptionPercent) {
			lines = append(lines, fmt.Sprintf("%s (+%g %%)", opt.Label, opt.Amount))
		} else {
			lines = append(lines, fmt.Sprintf("%s (%s)", opt.Label, Euro(opt.Amount)))
		}
	}
	return fmt.Sprintf("Souhaitez-vous ajouter une option ? %s — répondez « aucune » si vous n'en voulez pas.", strings.Join(lines, ", "))
}

func askCounts(cc Context) string {
	switch {
	case cc.Passengers == nil && cc.Bags == nil:
		return "Combien de passagers et de bagages prévoyez-vous pour ce trajet ?"
	case cc.Passengers == nil:
		return fmt.Sprintf("Combien de passagers serez-vous ? (bagages : %d)", *cc.Bags)
	default:
		return fmt.Sprintf("Combien de bagages aurez-vous ? (passagers : %d)", *cc.Passengers)
	}
}

func askCountsExact() string {
	return "Je n'ai pas réussi à lire votre réponse. Merci d'indiquer les nombres au format exact : « Passagers : 2 / Bagages : 3 »."
}

func recommendReply(picks []VehicleQuote, passengers, bags int) string {
	return fmt.Sprintf("Pour %d passager(s) et %d bagage(s), voici ce que je vous recommande :\n%s\nQuel véhicule souhaitez-vous réserver ?",
		passengers, bags, TariffBlock(picks))
}

func respond(reply string, pending *FormUpdate) TurnResponse {
	return TurnResponse{Reply: reply, FormUpdate: nonEmpty(pending)}
}

func nonEmpty(fu *FormUpdate) *FormUpdate {
	if fu == nil {
		return nil
	}
	if fu.Pickup == "" && fu.Dropoff == "" && fu.PickupDate == "" && fu.PickupTime == "" &&
		fu.VehicleID == "" && fu.OptionIDs == nil && len(fu.SuggestedVehicleIDs) == 0 {
		return nil
	}
	return fu
}

// mergeFormUpdates overlays the orchestrator's own pending changes on top of
// the (already catalog-filtered) update proposed by the model.
func mergeFormUpdates(model, pending *FormUpdate) *FormUpdate {
	model = nonEmpty(model)
	pending = nonEmpty(pending)
	if model == nil {
		return pending
	}
	if pending == nil {
		return model
	}
	out := *model
	if pending.OptionIDs != nil {
		out.OptionIDs = pending.OptionIDs
	}
	if len(pending.SuggestedVehicleIDs) > 0 {
		out.SuggestedVehicleIDs = pending.SuggestedVehicleIDs
	}
	return &out
}
