package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"keepsake/internal/assemble"
	"keepsake/internal/config"
	"keepsake/internal/fileutil"
	"keepsake/internal/generate"
	"keepsake/internal/scenes"
	"keepsake/internal/services"
	"keepsake/internal/services/comfy"
	"keepsake/internal/services/llm"
	"keepsake/internal/session"
	"keepsake/internal/transcribe"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <session-id>",
		Short: "Transcribe the session recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				return runTranscribe(stageContext(cmd.Context(), sess), cfg, store, sess, logger, cmd)
			})
		},
	}
}

func runTranscribe(ctx context.Context, cfg *config.Config, store *session.Store, sess *session.Session, logger *slog.Logger, cmd *cobra.Command) error {
	service, err := transcribe.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	text, err := service.Transcribe(ctx, sess.AudioPath)
	if err != nil {
		_ = store.MarkFailed(ctx, sess, err)
		return err
	}
	paths := session.NewPaths(cfg.Paths.SessionsDir, sess.ID)
	if err := fileutil.WriteFileAtomic(paths.Transcript(), []byte(text+"\n"), 0o644); err != nil {
		_ = store.MarkFailed(ctx, sess, err)
		return err
	}
	if err := store.SetStatus(ctx, sess, session.StatusTranscribed); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s\n", paths.Transcript())
	return nil
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var participantsFlag, ownerFlag string

	cmd := &cobra.Command{
		Use:   "extract <session-id>",
		Short: "Extract evidence-grounded scenes from the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			participants := splitLabels(participantsFlag)
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				return runExtract(stageContext(cmd.Context(), sess), cfg, store, sess, logger, cmd, participants, ownerFlag)
			})
		},
	}

	cmd.Flags().StringVar(&participantsFlag, "participants", "", "Comma-separated participant labels (e.g. 1,2,3)")
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Label of the photo owner")
	return cmd
}

func runExtract(ctx context.Context, cfg *config.Config, store *session.Store, sess *session.Session, logger *slog.Logger, cmd *cobra.Command, participants []string, owner string) error {
	paths := session.NewPaths(cfg.Paths.SessionsDir, sess.ID)
	transcript, err := os.ReadFile(paths.Transcript())
	if err != nil {
		return services.Wrap(services.ErrValidation, "cli", "extract", "read transcript (run transcribe first)", err)
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	extractor := scenes.NewExtractor(client, logger)

	doc, err := extractor.Extract(ctx, string(transcript), participants, owner)
	if err != nil {
		_ = store.MarkFailed(ctx, sess, err)
		return err
	}
	if err := doc.Save(paths.Scenes()); err != nil {
		_ = store.MarkFailed(ctx, sess, err)
		return err
	}
	if err := store.SetStatus(ctx, sess, session.StatusExtracted); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d scenes to %s\n", len(doc.Scenes), paths.Scenes())
	return nil
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the media generation stages",
	}

	generateCmd.AddCommand(&cobra.Command{
		Use:   "images <session-id>",
		Short: "Generate one image per scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				return runGenerateStage(stageContext(cmd.Context(), sess), cfg, store, sess, logger, cmd, "images")
			})
		},
	})
	generateCmd.AddCommand(&cobra.Command{
		Use:   "videos <session-id>",
		Short: "Animate each generated image into a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				return runGenerateStage(stageContext(cmd.Context(), sess), cfg, store, sess, logger, cmd, "videos")
			})
		},
	})
	return generateCmd
}

func runGenerateStage(ctx context.Context, cfg *config.Config, store *session.Store, sess *session.Session, logger *slog.Logger, cmd *cobra.Command, stage string) error {
	orch := newOrchestrator(cfg, logger)

	var results []generate.Result
	var err error
	var nextStatus session.Status
	switch stage {
	case "images":
		results, err = orch.RunImageStage(ctx, sess.ID)
		nextStatus = session.StatusImagesReady
	case "videos":
		results, err = orch.RunVideoStage(ctx, sess.ID)
		nextStatus = session.StatusVideosReady
	}
	if err != nil {
		_ = store.MarkFailed(ctx, sess, err)
		return err
	}
	if err := store.SetStatus(ctx, sess, nextStatus); err != nil {
		return err
	}
	printResults(cmd, results)
	return nil
}

func newOrchestrator(cfg *config.Config, logger *slog.Logger) *generate.Orchestrator {
	client := comfy.NewClient(comfy.Config{
		URL:          cfg.Comfy.URL,
		APIKey:       cfg.Comfy.APIKey,
		OutputURL:    cfg.Comfy.OutputURL,
		PollInterval: time.Duration(cfg.Comfy.PollIntervalSeconds) * time.Second,
	})
	return generate.NewOrchestrator(cfg, client, logger)
}

func printResults(cmd *cobra.Command, results []generate.Result) {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, result := range results {
		status := "ok"
		detail := result.VideoPath
		if detail == "" {
			detail = result.ImagePath
		}
		if result.Failed() {
			status = "error"
			detail = result.Error
			failed++
		}
		rows = append(rows, []string{result.SceneID, strings.Join(result.Pair, "-"), status, detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Scene", "Pair", "Status", "Detail"}, rows, cmd.OutOrStdout()))
	if failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d scenes failed; the rest completed.\n", failed, len(results))
	}
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <session-id> <scene-id>",
		Short: "Re-run video generation for one scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				orch := newOrchestrator(cfg, logger)
				result, err := orch.RegenerateVideo(stageContext(cmd.Context(), sess), sess.ID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %s -> %s\n", result.SceneID, result.VideoPath)
				return nil
			})
		},
	}
}

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble <session-id>",
		Short: "Concatenate scene clips into the final video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				return runAssemble(stageContext(cmd.Context(), sess), cfg, store, sess, logger, cmd)
			})
		},
	}
}

func runAssemble(ctx context.Context, cfg *config.Config, store *session.Store, sess *session.Session, logger *slog.Logger, cmd *cobra.Command) error {
	assembler := assemble.New(cfg, logger)
	finalPath, err := assembler.Assemble(ctx, sess.ID)
	if err != nil {
		_ = store.MarkFailed(ctx, sess, err)
		return err
	}
	if err := store.SetStatus(ctx, sess, session.StatusCompleted); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Final video: %s\n", finalPath)
	return nil
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var participantsFlag, ownerFlag string

	cmd := &cobra.Command{
		Use:   "run <session-id>",
		Short: "Run the full pipeline: transcribe, extract, images, videos, assemble",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			participants := splitLabels(participantsFlag)
			return ctx.withSession(cmd, args[0], func(cfg *config.Config, store *session.Store, sess *session.Session) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				stageCtx := stageContext(cmd.Context(), sess)

				if !sess.Status.ReachedAtLeast(session.StatusTranscribed) {
					if err := runTranscribe(stageCtx, cfg, store, sess, logger, cmd); err != nil {
						return err
					}
				}
				if !sess.Status.ReachedAtLeast(session.StatusExtracted) {
					if err := runExtract(stageCtx, cfg, store, sess, logger, cmd, participants, ownerFlag); err != nil {
						return err
					}
				}
				if err := runGenerateStage(stageCtx, cfg, store, sess, logger, cmd, "images"); err != nil {
					return err
				}
				if err := runGenerateStage(stageCtx, cfg, store, sess, logger, cmd, "videos"); err != nil {
					return err
				}
				return runAssemble(stageCtx, cfg, store, sess, logger, cmd)
			})
		},
	}

	cmd.Flags().StringVar(&participantsFlag, "participants", "", "Comma-separated participant labels (e.g. 1,2,3)")
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Label of the photo owner")
	return cmd
}

func stageContext(ctx context.Context, sess *session.Session) context.Context {
	return services.WithSessionID(ctx, sess.ID)
}

func splitLabels(value string) []string {
	parts := strings.Split(value, ",")
	labels := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}
