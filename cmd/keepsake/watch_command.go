package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"keepsake/internal/config"
	"keepsake/internal/session"
	"keepsake/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var participantsFlag, ownerFlag string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox directory and ingest new recordings",
		Long: "Watches the configured inbox directory. Each audio file dropped in becomes a new\n" +
			"session and is transcribed. When --participants and --owner are given the full\n" +
			"pipeline runs through assembly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			participants := splitLabels(participantsFlag)
			fullPipeline := len(participants) > 0 && ownerFlag != ""

			handler := func(hctx context.Context, audioPath string) error {
				return ingestRecording(hctx, cfg, store, cmd, audioPath, participants, ownerFlag, fullPipeline, logger)
			}

			watcher, err := watch.New(cfg, handler, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := watcher.Run(sigCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&participantsFlag, "participants", "", "Comma-separated participant labels applied to every session")
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Label of the photo owner applied to every session")
	return cmd
}

func ingestRecording(ctx context.Context, cfg *config.Config, store *session.Store, cmd *cobra.Command, audioPath string, participants []string, owner string, fullPipeline bool, logger *slog.Logger) error {
	title := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	sess := session.New(title, audioPath, "")
	paths := session.NewPaths(cfg.Paths.SessionsDir, sess.ID)
	if err := os.MkdirAll(paths.CropsDir(), 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := store.Create(ctx, sess); err != nil {
		return err
	}

	lock, err := session.AcquireLock(paths)
	if err != nil {
		return err
	}
	defer lock.Release()

	stageCtx := stageContext(ctx, sess)

	if err := runTranscribe(stageCtx, cfg, store, sess, logger, cmd); err != nil {
		return err
	}
	if !fullPipeline {
		logger.InfoContext(stageCtx, "session transcribed; waiting for manual extract", "session_id", sess.ShortID())
		return nil
	}
	if err := runExtract(stageCtx, cfg, store, sess, logger, cmd, participants, owner); err != nil {
		return err
	}
	if err := runGenerateStage(stageCtx, cfg, store, sess, logger, cmd, "images"); err != nil {
		return err
	}
	if err := runGenerateStage(stageCtx, cfg, store, sess, logger, cmd, "videos"); err != nil {
		return err
	}
	return runAssemble(stageCtx, cfg, store, sess, logger, cmd)
}
