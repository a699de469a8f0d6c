package scenes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"keepsake/internal/logging"
	"keepsake/internal/services"
	"keepsake/internal/services/llm"
)

// Completer is the text-generation collaborator the extractor depends on.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor turns a transcript plus participant labels into a validated,
// deduplicated scene list.
type Extractor struct {
	completer Completer
	logger    *slog.Logger
}

// NewExtractor constructs an extractor. A nil logger discards output.
func NewExtractor(completer Completer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{completer: completer, logger: logger.With(logging.FieldComponent, "scenes")}
}

// rawResponse mirrors the model's output schema before validation.
type rawResponse struct {
	OwnerLabel string     `json:"owner_label"`
	Scenes     []rawScene `json:"scenes"`
}

type rawScene struct {
	Pair           []string `json:"pair"`
	SourceScope    string   `json:"source_scope"`
	EvidenceQuotes []string `json:"evidence_quotes"`
	Action         string   `json:"action"`
	Place          string   `json:"place"`
	SceneText      string   `json:"scene_text"`
}

const maxEvidenceQuotes = 3

// Extract runs the full extraction pipeline: model call, parse,
// canonical pairing, evidence enforcement, text normalization, and
// deterministic id assignment. The model call is made once; retry policy
// belongs to the caller.
func (e *Extractor) Extract(ctx context.Context, transcript string, participants []string, ownerLabel string) (*Document, error) {
	if err := validateInputs(transcript, participants, ownerLabel); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "extracting scenes",
		"participants", len(participants), "owner", ownerLabel)

	content, err := e.completer.CompleteJSON(ctx, systemPrompt, userPrompt(transcript, participants, ownerLabel))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "scenes", "extract", "scene extraction request", err)
	}

	var raw rawResponse
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return nil, services.Wrap(services.ErrParse, "scenes", "extract", "decode scene response", err)
	}

	doc := &Document{OwnerLabel: ownerLabel}
	for _, partner := range canonicalPartners(participants, ownerLabel) {
		kept := 0
		for _, candidate := range raw.Scenes {
			if kept >= 2 {
				break
			}
			if !pairMatches(candidate.Pair, ownerLabel, partner) {
				continue
			}
			quotes := trimQuotes(candidate.EvidenceQuotes)
			if len(quotes) == 0 {
				e.logger.WarnContext(ctx, "dropping scene without evidence",
					"pair", fmt.Sprintf("%s-%s", ownerLabel, partner))
				continue
			}
			kept++
			pair := []string{ownerLabel, partner}
			doc.Scenes = append(doc.Scenes, Scene{
				SceneID:        sceneID(pair, kept),
				Pair:           pair,
				EvidenceQuotes: quotes,
				SceneText:      NormalizeSceneText(candidate.SceneText, candidate.Action, candidate.Place),
			})
		}
		if kept == 0 {
			e.logger.WarnContext(ctx, "no grounded scenes for pair",
				"pair", fmt.Sprintf("%s-%s", ownerLabel, partner))
		}
	}

	e.logger.InfoContext(ctx, "extraction complete", "scenes", len(doc.Scenes))
	return doc, nil
}

func validateInputs(transcript string, participants []string, ownerLabel string) error {
	if strings.TrimSpace(transcript) == "" {
		return services.Wrap(services.ErrValidation, "scenes", "extract", "transcript is empty", nil)
	}
	if len(participants) < 2 {
		return services.Wrap(services.ErrValidation, "scenes", "extract", "at least 2 participants required", nil)
	}
	for _, label := range participants {
		if label == ownerLabel {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, "scenes", "extract",
		fmt.Sprintf("owner label %q not among participants", ownerLabel), nil)
}

// canonicalPartners returns the non-owner labels in input order. The pair
// set is {owner} x partners regardless of what the model emitted.
func canonicalPartners(participants []string, ownerLabel string) []string {
	partners := make([]string, 0, len(participants)-1)
	seen := make(map[string]bool)
	for _, label := range participants {
		if label == ownerLabel || seen[label] {
			continue
		}
		seen[label] = true
		partners = append(partners, label)
	}
	return partners
}

func pairMatches(pair []string, ownerLabel, partner string) bool {
	if len(pair) != 2 {
		return false
	}
	return (pair[0] == ownerLabel && pair[1] == partner) ||
		(pair[0] == partner && pair[1] == ownerLabel)
}

func trimQuotes(quotes []string) []string {
	out := make([]string, 0, len(quotes))
	for _, quote := range quotes {
		trimmed := strings.TrimSpace(quote)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == maxEvidenceQuotes {
			break
		}
	}
	return out
}
