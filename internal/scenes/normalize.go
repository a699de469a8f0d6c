package scenes

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// pairArtifact matches the "pair: [1,2]" style prefixes the model sometimes
// leaks into scene_text when it echoes the schema.
var pairArtifact = regexp.MustCompile(`^(?i)\s*(?:pair|페어|쌍)\s*[:：]?\s*(?:\[[^\]]*\]|\(?\d+\s*[,x×~-]\s*\d+\)?)?\s*[:：—-]?\s*`)

const templateMarker = "친구와 함께"

// NormalizeSceneText cleans a model-produced scene text: NFC-normalizes it,
// strips leaked pair prefixes, and falls back to a minimal template built
// from the action and place fields when the required template phrase is
// missing. Free-form text never passes through unchanged.
func NormalizeSceneText(text, action, place string) string {
	text = norm.NFC.String(strings.TrimSpace(text))
	action = norm.NFC.String(strings.TrimSpace(action))
	place = norm.NFC.String(strings.TrimSpace(place))

	if stripped := pairArtifact.ReplaceAllString(text, ""); stripped != "" {
		text = strings.TrimSpace(stripped)
	}

	if strings.Contains(text, templateMarker) {
		return text
	}
	return fallbackSceneText(action, place)
}

func fallbackSceneText(action, place string) string {
	var b strings.Builder
	b.WriteString(templateMarker)
	if place != "" {
		b.WriteString(" ")
		b.WriteString(place)
		if !strings.HasSuffix(place, "에서") {
			b.WriteString("에서")
		}
	}
	if action != "" {
		b.WriteString(" ")
		b.WriteString(action)
	}
	return b.String()
}
