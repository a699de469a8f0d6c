package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"keepsake/internal/services"
	"keepsake/internal/services/comfy"
	"keepsake/internal/workflowgraph"
)

// RunVideoStage animates each successfully generated image and writes
// comfy_results.json. Scenes that failed the image stage are carried through
// with their original error so the final results file covers every scene.
func (o *Orchestrator) RunVideoStage(ctx context.Context, sessionID string) ([]Result, error) {
	paths := o.paths(sessionID)

	imageResults, err := LoadResults(paths.ImageResults())
	if err != nil {
		return nil, err
	}
	if len(imageResults) == 0 {
		return nil, services.Wrap(services.ErrValidation, "generate", "video", "image results are empty", nil)
	}

	template, err := workflowgraph.Load(o.cfg.VideoWorkflowPath())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(paths.VideosDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "video", "create videos directory", err)
	}

	o.logger.InfoContext(ctx, "video stage starting", "scenes", len(imageResults))

	results := make([]Result, 0, len(imageResults))
	for _, entry := range imageResults {
		if entry.Failed() || entry.ImagePath == "" {
			if entry.Error == "" {
				entry.Error = "image stage produced no artifact"
			}
			results = append(results, entry)
			continue
		}
		result := o.animateScene(ctx, template, entry, entry.SceneID, paths.VideosDir())
		if result.Failed() {
			sceneLogger(o.logger, entry.SceneID).WarnContext(ctx, "video generation failed", "error", result.Error)
		} else {
			sceneLogger(o.logger, entry.SceneID).InfoContext(ctx, "video generated", "path", result.VideoPath)
		}
		results = append(results, result)
	}

	if err := SaveResults(paths.VideoResults(), results); err != nil {
		return nil, err
	}
	return results, nil
}

// animateScene runs one video job: re-upload the scene image, patch the
// template, submit, poll with the longer video timeout, download.
func (o *Orchestrator) animateScene(ctx context.Context, template workflowgraph.Graph, entry Result, outputPrefix, videosDir string) Result {
	result := entry
	result.VideoPromptID = ""
	result.Error = ""
	fail := func(err error) Result {
		result.Error = err.Error()
		return result
	}

	upload, err := o.service.UploadImage(ctx, entry.ImagePath)
	if err != nil {
		return fail(err)
	}

	graph := template.Clone()
	if err := graph.SetImage(0, upload.ServerPath()); err != nil {
		return fail(err)
	}
	if err := graph.SetPositivePrompt(entry.PromptText); err != nil {
		return fail(err)
	}
	graph.SetOutputPrefix(outputPrefix)
	graph.SetSeeds(o.seedFn())

	promptID, err := o.service.Submit(ctx, graph)
	if err != nil {
		return fail(err)
	}
	result.VideoPromptID = promptID

	outputs, err := o.service.WaitForOutput(ctx, promptID, o.videoTimeout())
	if err != nil {
		return fail(err)
	}
	if len(outputs) == 0 {
		return fail(services.Wrap(services.ErrTimeout, "generate", "video",
			fmt.Sprintf("timed out waiting for video output (prompt %s)", promptID), nil))
	}

	output, ok := pickVideoOutput(outputs)
	if !ok {
		return fail(fmt.Errorf("prompt %s produced no video output", promptID))
	}

	destPath := filepath.Join(videosDir, entry.SceneID+videoExt(output.Filename))
	if err := o.service.Download(ctx, output, destPath); err != nil {
		return fail(err)
	}
	result.VideoPath = destPath
	descriptor := output
	result.VideoDescriptor = &descriptor
	return result
}

// RegenerateVideo re-runs the video job for one scene, bumping the output
// prefix so the server writes a fresh file instead of colliding with the
// previous run. The scene's entry in comfy_results.json is updated in place.
func (o *Orchestrator) RegenerateVideo(ctx context.Context, sessionID, sceneID string) (*Result, error) {
	paths := o.paths(sessionID)

	results, err := LoadResults(paths.VideoResults())
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, entry := range results {
		if entry.SceneID == sceneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, services.Wrap(services.ErrValidation, "generate", "regenerate",
			fmt.Sprintf("scene %q not found in results", sceneID), nil)
	}
	entry := results[idx]
	if entry.ImagePath == "" {
		return nil, services.Wrap(services.ErrValidation, "generate", "regenerate",
			fmt.Sprintf("scene %q has no image artifact to animate", sceneID), nil)
	}

	template, err := workflowgraph.Load(o.cfg.VideoWorkflowPath())
	if err != nil {
		return nil, err
	}

	prefix := nextPrefixFor(entry)
	sceneLogger(o.logger, sceneID).InfoContext(ctx, "regenerating video", "prefix", prefix)

	result := o.animateScene(ctx, template, entry, prefix, paths.VideosDir())
	results[idx] = result
	if err := SaveResults(paths.VideoResults(), results); err != nil {
		return nil, err
	}
	if result.Failed() {
		return &result, services.Wrap(services.ErrExternalService, "generate", "regenerate", result.Error, nil)
	}
	return &result, nil
}

// nextPrefixFor derives the bumped output prefix from the previous server
// filename when one is recorded, otherwise starts the scene's counter fresh.
func nextPrefixFor(entry Result) string {
	if entry.VideoDescriptor != nil && entry.VideoDescriptor.Filename != "" {
		return workflowgraph.NextOutputPrefix(entry.VideoDescriptor.Filename)
	}
	if entry.VideoPath != "" {
		return workflowgraph.NextOutputPrefix(entry.VideoPath)
	}
	return workflowgraph.NextOutputPrefix(entry.SceneID)
}

var videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".gif": true}

func pickVideoOutput(outputs []comfy.Output) (comfy.Output, bool) {
	for _, output := range outputs {
		if output.Kind == "videos" || output.Kind == "gifs" {
			return output, true
		}
	}
	for _, output := range outputs {
		if videoExtensions[strings.ToLower(filepath.Ext(output.Filename))] {
			return output, true
		}
	}
	return comfy.Output{}, false
}

func videoExt(filename string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); videoExtensions[ext] {
		return ext
	}
	return ".mp4"
}
