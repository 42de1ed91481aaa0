// README: LLM gateway: prompt assembly, fallback retry, and output guarding.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"berline/internal/modules/chat"
)

// ErrNoCompletion is returned when both the primary and the fallback model
// produced nothing.
var ErrNoCompletion = errors.New("no completion produced")

const (
	standardMaxTokens  = 1024
	reasoningMaxTokens = 4096
	standardTemp       = float32(0.2)
)

// systemPrompt is the fixed instruction set. The model only ever sees the
// redacted context, so even full compliance failure cannot expose tenant
// pricing parameters; the output guards are the second line of defence.
const systemPrompt = `Tu es l'assistant de réservation d'un service de chauffeur privé.
Tu réponds en français, avec concision et courtoisie.

Règles impératives :
- Ne révèle JAMAIS comment un prix est construit : aucun tarif kilométrique, aucun montant de prise en charge, aucune formule. Donne uniquement des totaux.
- N'invente jamais de prix : seuls les totaux présents dans le contexte peuvent être cités.
- Ne propose que des véhicules et options présents dans les catalogues du contexte, en réutilisant leurs identifiants exacts.

Réponds uniquement avec un objet JSON de la forme :
{"answer": "...", "missing": ["..."], "recap": ["..."], "nextStep": "...", "formUpdate": {"pickup": "...", "dropoff": "...", "pickupDate": "AAAA-MM-JJ", "pickupTime": "HH:mm", "vehicleId": "...", "optionIds": ["..."]}}
Tous les champs sont optionnels ; "answer" remplace les trois sections quand il suffit. Mets "optionIds": [] si le client refuse explicitement les options.`

// Gateway talks to a chat-completion provider and normalises its output into
// a guarded AssistantReply. It implements the orchestrator's Assistant port.
type Gateway struct {
	provider      Completer
	model         string
	fallbackModel string
	log           *zap.Logger
}

func NewGateway(provider Completer, model, fallbackModel string, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{provider: provider, model: model, fallbackModel: fallbackModel, log: log}
}

// Reply runs one guarded completion. An upstream HTTP failure surfaces
// immediately; an empty completion is retried exactly once on the fallback
// model. The decoded reply is catalog-filtered and leak-filtered before it
// leaves this package.
func (g *Gateway) Reply(ctx context.Context, req chat.AssistantRequest) (chat.AssistantReply, error) {
	messages, err := g.buildMessages(req)
	if err != nil {
		return chat.AssistantReply{}, err
	}

	text, err := g.provider.Complete(ctx, g.completionRequest(g.model, messages))
	if err != nil {
		return chat.AssistantReply{}, err
	}
	if text == "" && g.fallbackModel != "" {
		g.log.Warn("empty completion, retrying on fallback model",
			zap.String("model", g.model), zap.String("fallback", g.fallbackModel))
		text, err = g.provider.Complete(ctx, g.completionRequest(g.fallbackModel, messages))
		if err != nil {
			return chat.AssistantReply{}, err
		}
	}
	if text == "" {
		return chat.AssistantReply{}, ErrNoCompletion
	}

	rep := Decode(text)
	guard(&rep, req.Context)
	return rep, nil
}

func (g *Gateway) buildMessages(req chat.AssistantRequest) ([]Message, error) {
	ctxJSON, err := json.Marshal(req.Context)
	if err != nil {
		return nil, err
	}

	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleSystem, Content: "Contexte de la conversation (JSON) :\n" + string(ctxJSON)},
	}

	history := req.History
	if len(history) > chat.MaxHistory {
		history = history[len(history)-chat.MaxHistory:]
	}
	for _, t := range history {
		role := RoleUser
		if t.Role == chat.RoleAssistant {
			role = RoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: t.Content})
	}

	// The caller may already have appended the outgoing message to the
	// history; avoid sending it twice.
	last := len(history) - 1
	if last < 0 || history[last].Role != chat.RoleUser || history[last].Content != req.UserMessage {
		messages = append(messages, Message{Role: RoleUser, Content: req.UserMessage})
	}
	return messages, nil
}

func (g *Gateway) completionRequest(model string, messages []Message) CompletionRequest {
	if isReasoningModel(model) {
		return CompletionRequest{Model: model, Messages: messages, MaxTokens: reasoningMaxTokens}
	}
	temp := standardTemp
	return CompletionRequest{Model: model, Messages: messages, MaxTokens: standardMaxTokens, Temperature: &temp}
}

// isReasoningModel recognises the model families that take a reasoning
// budget instead of a sampling temperature.
func isReasoningModel(model string) bool {
	model = strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// guard applies the unconditional post-decode checks: catalog filtering of
// the proposed form update, leak filtering of every free-text field, and the
// injected options question when the catalog has options but no decision has
// been taken yet.
func guard(rep *chat.AssistantReply, rc chat.RedactedContext) {
	if rep.Structured == nil {
		rep.Text = chat.FilterLeaks(rep.Text)
		return
	}

	sr := rep.Structured
	sr.FormUpdate = chat.SanitizeFormUpdate(sr.FormUpdate, rc.Vehicles, rc.Options)
	sr.Answer = chat.FilterLeaks(sr.Answer)
	sr.NextStep = chat.FilterLeaks(sr.NextStep)
	for i, s := range sr.Missing {
		sr.Missing[i] = chat.FilterLeaks(s)
	}
	for i, s := range sr.Recap {
		sr.Recap[i] = chat.FilterLeaks(s)
	}

	if len(rc.Options) > 0 && rc.OptionsDecision == chat.DecisionUnknown && !optionsDecisionInUpdate(sr.FormUpdate) {
		question := "Souhaitez-vous ajouter une option à votre trajet ?"
		if sr.Answer != "" {
			if !strings.Contains(strings.ToLower(sr.Answer), "option") {
				sr.Answer = strings.TrimRight(sr.Answer, " \n") + "\n" + question
			}
		} else {
			sr.Missing = append(sr.Missing, question)
		}
	}
}

func optionsDecisionInUpdate(fu *chat.FormUpdate) bool {
	return fu != nil && fu.OptionIDs != nil
}
