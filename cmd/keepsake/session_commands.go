package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"keepsake/internal/fileutil"
	"keepsake/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage memory video sessions",
	}
	sessionCmd.AddCommand(newSessionNewCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionRemoveCommand(ctx))
	return sessionCmd
}

func newSessionNewCommand(ctx *commandContext) *cobra.Command {
	var title, audioPath, photoPath, cropsDir string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session from a recording and a group photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if audioPath == "" {
				return fmt.Errorf("--audio is required")
			}
			if _, err := os.Stat(audioPath); err != nil {
				return fmt.Errorf("audio file: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sess := session.New(title, audioPath, photoPath)
			paths := session.NewPaths(cfg.Paths.SessionsDir, sess.ID)
			if err := os.MkdirAll(paths.CropsDir(), 0o755); err != nil {
				return fmt.Errorf("create session directory: %w", err)
			}

			// The group photo doubles as the title card for intro/outro.
			if photoPath != "" {
				if err := fileutil.CopyFile(photoPath, paths.TitleCard()); err != nil {
					return fmt.Errorf("copy group photo: %w", err)
				}
			}
			if cropsDir != "" {
				if err := copyCrops(cropsDir, paths.CropsDir()); err != nil {
					return err
				}
			}

			if err := store.Create(cmd.Context(), sess); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created session %s\n", sess.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Directory: %s\n", paths.Root)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Session title")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Path to the conversation recording")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Path to the labeled group photo")
	cmd.Flags().StringVar(&cropsDir, "crops", "", "Directory of per-person cropped images")
	return cmd
}

func copyCrops(srcDir, destDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("read crops directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		if err := fileutil.CopyFile(src, filepath.Join(destDir, entry.Name())); err != nil {
			return fmt.Errorf("copy crop %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []session.Status
			if statusFilter != "" {
				status := session.Status(strings.ToLower(strings.TrimSpace(statusFilter)))
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				statuses = append(statuses, status)
			}
			sessions, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, sess := range sessions {
				rows = append(rows, []string{
					sess.ShortID(),
					sess.Title,
					string(sess.Status),
					sess.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Created"}, rows, cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show sessions with this status")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's state and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			paths := session.NewPaths(cfg.Paths.SessionsDir, sess.ID)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", sess.ID)
			fmt.Fprintf(out, "Title:    %s\n", sess.Title)
			fmt.Fprintf(out, "Status:   %s\n", sess.Status)
			fmt.Fprintf(out, "Audio:    %s\n", sess.AudioPath)
			fmt.Fprintf(out, "Dir:      %s\n", paths.Root)
			if sess.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", sess.ErrorMessage)
			}
			for _, artifact := range []struct {
				label string
				path  string
			}{
				{"Transcript", paths.Transcript()},
				{"Scenes", paths.Scenes()},
				{"Images", paths.ImageResults()},
				{"Videos", paths.VideoResults()},
				{"Final", paths.FinalVideo()},
			} {
				marker := " "
				if _, err := os.Stat(artifact.path); err == nil {
					marker = "x"
				}
				fmt.Fprintf(out, "  [%s] %s\n", marker, artifact.label)
			}
			return nil
		},
	}
}

func newSessionRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <session-id>",
		Short: "Remove a session from the registry (files are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			removed, err := store.Remove(cmd.Context(), sess.ID)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session %s\n", sess.ShortID())
			}
			return nil
		},
	}
}
