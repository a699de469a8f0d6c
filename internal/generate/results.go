package generate

import (
	"encoding/json"
	"os"

	"keepsake/internal/fileutil"
	"keepsake/internal/services"
	"keepsake/internal/services/comfy"
)

// Result is one scene's generation record. A failed scene carries Error and
// whatever fields were populated before the failure; the stage result array
// mixes successes and failures by design.
type Result struct {
	SceneID         string        `json:"scene_id"`
	Pair            []string      `json:"pair"`
	PromptText      string        `json:"prompt_text"`
	ImagePromptID   string        `json:"image_prompt_id,omitempty"`
	VideoPromptID   string        `json:"video_prompt_id,omitempty"`
	ImagePath       string        `json:"image_path,omitempty"`
	VideoPath       string        `json:"video_path,omitempty"`
	VideoDescriptor *comfy.Output `json:"comfy_video_descriptor,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Failed reports whether the scene's most recent stage recorded an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// LoadResults reads a stage result file.
func LoadResults(path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "generate", "results", "read results file", err)
	}
	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, services.Wrap(services.ErrParse, "generate", "results", "decode results file", err)
	}
	return results, nil
}

// SaveResults writes a stage result file atomically.
func SaveResults(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrParse, "generate", "results", "encode results", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "generate", "results", "write results file", err)
	}
	return nil
}
