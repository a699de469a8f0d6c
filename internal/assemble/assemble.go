package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"keepsake/internal/config"
	"keepsake/internal/generate"
	"keepsake/internal/logging"
	"keepsake/internal/media/ffprobe"
	"keepsake/internal/services"
	"keepsake/internal/session"
)

// Assembler concatenates per-scene videos into the final file, optionally
// framed by zoom intro/outro clips synthesized from the session's title
// image.
type Assembler struct {
	cfg           *config.Config
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
	prober        func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New creates an assembler. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		cfg:    cfg,
		logger: logger.With(logging.FieldComponent, "assemble"),
		prober: ffprobe.Inspect,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (a *Assembler) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	a.commandRunner = runner
}

// WithProber sets a custom metadata prober (for testing).
func (a *Assembler) WithProber(prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	a.prober = prober
}

// Assemble builds final.mp4 for a session from its recorded video artifacts.
// Intro/outro synthesis failures are logged and skipped; concatenation of the
// scene videos themselves is the only step that can fail the run.
func (a *Assembler) Assemble(ctx context.Context, sessionID string) (string, error) {
	paths := session.NewPaths(a.cfg.Paths.SessionsDir, sessionID)

	videos, err := a.collectSceneVideos(paths)
	if err != nil {
		return "", err
	}

	manifest := videos
	if title := titleImage(paths); title != "" {
		intro, outro, ok := a.synthesizeFraming(ctx, paths, title, videos[0])
		if ok {
			manifest = append(append([]string{intro}, videos...), outro)
		}
	} else {
		a.logger.InfoContext(ctx, "no title image, skipping intro and outro")
	}

	finalPath := paths.FinalVideo()
	reencode := len(manifest) != len(videos)
	if reencode {
		err = a.concatReencode(ctx, manifest, videos[0], finalPath)
	} else {
		err = a.concatStreamCopy(ctx, paths, manifest, finalPath)
	}
	if err != nil {
		return "", err
	}

	a.logger.InfoContext(ctx, "assembly complete", "output", finalPath, "clips", len(manifest), "reencode", reencode)
	return finalPath, nil
}

// collectSceneVideos builds the ordered manifest from the video-stage
// results, keeping only artifacts that still exist on disk.
func (a *Assembler) collectSceneVideos(paths session.Paths) ([]string, error) {
	results, err := generate.LoadResults(paths.VideoResults())
	if err != nil {
		return nil, err
	}
	var videos []string
	for _, entry := range results {
		if entry.Failed() || entry.VideoPath == "" {
			continue
		}
		if _, statErr := os.Stat(entry.VideoPath); statErr != nil {
			a.logger.Warn("recorded artifact missing on disk", "path", entry.VideoPath)
			continue
		}
		videos = append(videos, entry.VideoPath)
	}
	if len(videos) == 0 {
		return nil, services.Wrap(services.ErrValidation, "assemble", "collect", "no scene videos to assemble", nil)
	}
	return videos, nil
}

func titleImage(paths session.Paths) string {
	if _, err := os.Stat(paths.TitleCard()); err == nil {
		return paths.TitleCard()
	}
	return ""
}

// synthesizeFraming probes the first scene video and renders the zoom-in
// intro and zoom-out outro at its resolution and frame rate. Any failure
// disables framing for this run rather than aborting assembly.
func (a *Assembler) synthesizeFraming(ctx context.Context, paths session.Paths, title, firstVideo string) (string, string, bool) {
	probe, err := a.prober(ctx, a.cfg.FFprobeBinary(), firstVideo)
	if err != nil {
		a.logger.WarnContext(ctx, "probe failed, skipping intro and outro", "error", err)
		return "", "", false
	}
	stream, ok := probe.FirstVideoStream()
	if !ok || stream.Width <= 0 || stream.Height <= 0 {
		a.logger.WarnContext(ctx, "no usable video stream, skipping intro and outro")
		return "", "", false
	}
	fps := stream.FrameRate()
	if fps <= 0 {
		fps = 24
	}

	spec := clipSpec{
		width:    stream.Width,
		height:   stream.Height,
		fps:      fps,
		duration: a.cfg.Assembly.IntroSeconds,
	}
	introPath := filepath.Join(paths.Root, "intro.mp4")
	outroPath := filepath.Join(paths.Root, "outro.mp4")

	introArgs := zoomClipArgs(title, introPath, spec, a.cfg.Assembly.ZoomStart, a.cfg.Assembly.ZoomEnd)
	if err := a.run(ctx, a.cfg.FFmpegBinary(), introArgs...); err != nil {
		a.logger.WarnContext(ctx, "intro synthesis failed, skipping intro and outro", "error", err)
		return "", "", false
	}
	outroArgs := zoomClipArgs(title, outroPath, spec, a.cfg.Assembly.ZoomEnd, a.cfg.Assembly.ZoomStart)
	if err := a.run(ctx, a.cfg.FFmpegBinary(), outroArgs...); err != nil {
		a.logger.WarnContext(ctx, "outro synthesis failed, skipping intro and outro", "error", err)
		return "", "", false
	}
	return introPath, outroPath, true
}

// concatStreamCopy concatenates uniform clips without re-encoding via the
// concat demuxer.
func (a *Assembler) concatStreamCopy(ctx context.Context, paths session.Paths, clips []string, finalPath string) error {
	listPath := filepath.Join(paths.Root, "concat.txt")
	if err := writeConcatList(listPath, clips); err != nil {
		return services.Wrap(services.ErrMediaTool, "assemble", "concat", "write concat list", err)
	}
	args := concatCopyArgs(listPath, finalPath)
	if err := a.run(ctx, a.cfg.FFmpegBinary(), args...); err != nil {
		return services.Wrap(services.ErrMediaTool, "assemble", "concat", "stream-copy concat", err)
	}
	return nil
}

// concatReencode concatenates mixed clips through a scale+fps filter graph,
// matching everything to the first scene video's geometry.
func (a *Assembler) concatReencode(ctx context.Context, clips []string, reference, finalPath string) error {
	probe, err := a.prober(ctx, a.cfg.FFprobeBinary(), reference)
	if err != nil {
		return services.Wrap(services.ErrMediaTool, "assemble", "concat", "probe reference video", err)
	}
	stream, ok := probe.FirstVideoStream()
	if !ok {
		return services.Wrap(services.ErrMediaTool, "assemble", "concat", "reference video has no video stream", nil)
	}
	fps := stream.FrameRate()
	if fps <= 0 {
		fps = 24
	}
	args := concatReencodeArgs(clips, stream.Width, stream.Height, fps, finalPath)
	if err := a.run(ctx, a.cfg.FFmpegBinary(), args...); err != nil {
		return services.Wrap(services.ErrMediaTool, "assemble", "concat", "re-encode concat", err)
	}
	return nil
}

func (a *Assembler) run(ctx context.Context, name string, args ...string) error {
	if a.commandRunner != nil {
		return a.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func writeConcatList(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(clip, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
