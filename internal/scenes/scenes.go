package scenes

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"keepsake/internal/fileutil"
	"keepsake/internal/services"
)

// Scene is one evidence-grounded narrative unit tied to an owner/partner
// pair. Scenes are immutable once extracted; generation stages consume them
// as-is.
type Scene struct {
	SceneID        string   `json:"scene_id"`
	Pair           []string `json:"pair"`
	EvidenceQuotes []string `json:"evidence_quotes"`
	SceneText      string   `json:"scene_text"`
}

// Partner returns the non-owner label of the pair.
func (s Scene) Partner(ownerLabel string) string {
	for _, label := range s.Pair {
		if label != ownerLabel {
			return label
		}
	}
	return ""
}

// Document is the persisted output of extraction: the owner label plus the
// flat scene list in emission order.
type Document struct {
	OwnerLabel string  `json:"owner_label"`
	Scenes     []Scene `json:"scenes"`
}

// Load reads a scenes document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "scenes", "load", "read scenes file", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrParse, "scenes", "load", "decode scenes file", err)
	}
	return &doc, nil
}

// Save writes the document atomically.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrParse, "scenes", "save", "encode scenes", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "scenes", "save", "write scenes file", err)
	}
	return nil
}

// sceneID derives the deterministic identifier from the sorted pair and the
// per-pair sequence number, e.g. pair (2,1) index 1 -> "12_01".
func sceneID(pair []string, index int) string {
	sorted := append([]string(nil), pair...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s_%02d", strings.Join(sorted, ""), index)
}
