package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"keepsake/internal/scenes"
	"keepsake/internal/services"
	"keepsake/internal/services/comfy"
	"keepsake/internal/session"
	"keepsake/internal/workflowgraph"
)

// RunImageStage generates one image per scene and writes image_results.json.
// A missing scenes file or missing owner crop aborts the whole stage; any
// per-scene failure is recorded in that scene's result and the loop moves on.
func (o *Orchestrator) RunImageStage(ctx context.Context, sessionID string) ([]Result, error) {
	paths := o.paths(sessionID)

	doc, err := scenes.Load(paths.Scenes())
	if err != nil {
		return nil, err
	}
	if len(doc.Scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "generate", "image", "no scenes to generate", nil)
	}

	template, err := workflowgraph.Load(o.cfg.ImageWorkflowPath())
	if err != nil {
		return nil, err
	}

	ownerCrop, err := resolveCrop(paths.CropsDir(), doc.OwnerLabel)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(paths.ImagesDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "image", "create images directory", err)
	}

	o.logger.InfoContext(ctx, "image stage starting", "scenes", len(doc.Scenes))

	results := make([]Result, 0, len(doc.Scenes))
	for _, scene := range doc.Scenes {
		result := o.generateSceneImage(ctx, paths, template, scene, doc.OwnerLabel, ownerCrop)
		if result.Failed() {
			sceneLogger(o.logger, scene.SceneID).WarnContext(ctx, "image generation failed", "error", result.Error)
		} else {
			sceneLogger(o.logger, scene.SceneID).InfoContext(ctx, "image generated", "path", result.ImagePath)
		}
		results = append(results, result)
	}

	if err := SaveResults(paths.ImageResults(), results); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) generateSceneImage(ctx context.Context, paths session.Paths, template workflowgraph.Graph, scene scenes.Scene, ownerLabel, ownerCrop string) Result {
	result := Result{
		SceneID:    scene.SceneID,
		Pair:       scene.Pair,
		PromptText: scene.SceneText,
	}
	fail := func(err error) Result {
		result.Error = err.Error()
		return result
	}

	partnerCrop, err := resolveCrop(paths.CropsDir(), scene.Partner(ownerLabel))
	if err != nil {
		return fail(err)
	}

	ownerUpload, err := o.service.UploadImage(ctx, ownerCrop)
	if err != nil {
		return fail(err)
	}
	partnerUpload, err := o.service.UploadImage(ctx, partnerCrop)
	if err != nil {
		return fail(err)
	}

	graph := template.Clone()
	if err := graph.SetImage(0, ownerUpload.ServerPath()); err != nil {
		return fail(err)
	}
	if err := graph.SetImage(1, partnerUpload.ServerPath()); err != nil {
		return fail(err)
	}
	if err := graph.SetPrompt(scene.SceneText); err != nil {
		return fail(err)
	}
	graph.SetOutputPrefix(scene.SceneID)

	promptID, err := o.service.Submit(ctx, graph)
	if err != nil {
		return fail(err)
	}
	result.ImagePromptID = promptID

	outputs, err := o.service.WaitForOutput(ctx, promptID, o.imageTimeout())
	if err != nil {
		return fail(err)
	}
	if len(outputs) == 0 {
		return fail(services.Wrap(services.ErrTimeout, "generate", "image",
			fmt.Sprintf("timed out waiting for image output (prompt %s)", promptID), nil))
	}

	output := pickImageOutput(outputs)
	destPath := filepath.Join(paths.ImagesDir(), scene.SceneID+filepath.Ext(output.Filename))
	if destPath == filepath.Join(paths.ImagesDir(), scene.SceneID) {
		destPath += ".png"
	}
	if err := o.service.Download(ctx, output, destPath); err != nil {
		return fail(err)
	}
	result.ImagePath = destPath
	return result
}

func pickImageOutput(outputs []comfy.Output) comfy.Output {
	for _, output := range outputs {
		if output.Kind == "images" {
			return output
		}
	}
	return outputs[0]
}
