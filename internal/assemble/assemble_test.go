package assemble

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"keepsake/internal/generate"
	"keepsake/internal/media/ffprobe"
	"keepsake/internal/services"
	"keepsake/internal/session"
	"keepsake/internal/testsupport"
)

type call struct {
	name string
	args []string
}

func fakeProbe(width, height int, rate string) func(context.Context, string, string) (ffprobe.Result, error) {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", Width: width, Height: height, RFrameRate: rate}},
		}, nil
	}
}

func setup(t *testing.T, withTitle bool) (*Assembler, string, session.Paths, *[]call) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	sessionID := "sess"
	paths := session.NewPaths(cfg.Paths.SessionsDir, sessionID)

	video1 := filepath.Join(paths.VideosDir(), "12_01.mp4")
	video2 := filepath.Join(paths.VideosDir(), "13_01.mp4")
	testsupport.WriteFile(t, video1, []byte("v1"))
	testsupport.WriteFile(t, video2, []byte("v2"))
	results := []generate.Result{
		{SceneID: "12_01", VideoPath: video1},
		{SceneID: "13_01", VideoPath: video2},
		{SceneID: "14_01", Error: "timed out"},
	}
	if err := generate.SaveResults(paths.VideoResults(), results); err != nil {
		t.Fatal(err)
	}
	if withTitle {
		testsupport.WriteFile(t, paths.TitleCard(), []byte("title"))
	}

	assembler := New(cfg, nil)
	var calls []call
	assembler.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, call{name: name, args: args})
		return nil
	})
	assembler.WithProber(fakeProbe(1280, 720, "24/1"))
	return assembler, sessionID, paths, &calls
}

func TestAssembleStreamCopyWithoutTitle(t *testing.T) {
	assembler, sessionID, paths, calls := setup(t, false)

	finalPath, err := assembler.Assemble(t.Context(), sessionID)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if finalPath != paths.FinalVideo() {
		t.Fatalf("unexpected final path %s", finalPath)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected single ffmpeg call, got %d", len(*calls))
	}
	args := strings.Join((*calls)[0].args, " ")
	if !strings.Contains(args, "-f concat") || !strings.Contains(args, "-c copy") {
		t.Fatalf("expected stream-copy concat, got %s", args)
	}

	list, err := os.ReadFile(filepath.Join(paths.Root, "concat.txt"))
	if err != nil {
		t.Fatalf("concat list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	if len(lines) != 2 {
		t.Fatalf("failed scene leaked into manifest: %q", list)
	}
	if !strings.Contains(lines[0], "12_01.mp4") || !strings.Contains(lines[1], "13_01.mp4") {
		t.Fatalf("manifest order wrong: %q", lines)
	}
}

func TestAssembleWithTitleReencodes(t *testing.T) {
	assembler, sessionID, _, calls := setup(t, true)

	if _, err := assembler.Assemble(t.Context(), sessionID); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	// intro, outro, then the final re-encode concat.
	if len(*calls) != 3 {
		t.Fatalf("expected 3 ffmpeg calls, got %d", len(*calls))
	}
	intro := strings.Join((*calls)[0].args, " ")
	if !strings.Contains(intro, "zoompan") || !strings.Contains(intro, "1280x720") {
		t.Fatalf("intro args missing zoompan at probed size: %s", intro)
	}
	concat := strings.Join((*calls)[2].args, " ")
	if !strings.Contains(concat, "concat=n=4:v=1:a=0") {
		t.Fatalf("expected 4-clip re-encode concat, got %s", concat)
	}
	if strings.Contains(concat, "-c copy") {
		t.Fatal("re-encode path must not stream copy")
	}
}

func TestAssembleProbeFailureFallsBack(t *testing.T) {
	assembler, sessionID, _, calls := setup(t, true)
	assembler.WithProber(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("ffprobe exploded")
	})

	if _, err := assembler.Assemble(t.Context(), sessionID); err != nil {
		t.Fatalf("assemble should fall back, got %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected stream-copy fallback only, got %d calls", len(*calls))
	}
	if !strings.Contains(strings.Join((*calls)[0].args, " "), "-c copy") {
		t.Fatal("fallback should stream copy")
	}
}

func TestAssembleIntroFailureFallsBack(t *testing.T) {
	assembler, sessionID, _, _ := setup(t, true)
	var calls []call
	assembler.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, call{name: name, args: args})
		if strings.Contains(strings.Join(args, " "), "zoompan") {
			return errors.New("exit status 1")
		}
		return nil
	})

	if _, err := assembler.Assemble(t.Context(), sessionID); err != nil {
		t.Fatalf("assemble should fall back, got %v", err)
	}
	last := calls[len(calls)-1]
	if !strings.Contains(strings.Join(last.args, " "), "-c copy") {
		t.Fatal("fallback should stream copy")
	}
}

func TestAssembleNoVideosFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	paths := session.NewPaths(cfg.Paths.SessionsDir, "empty")
	if err := generate.SaveResults(paths.VideoResults(), []generate.Result{{SceneID: "x", Error: "failed"}}); err != nil {
		t.Fatal(err)
	}
	assembler := New(cfg, nil)
	if _, err := assembler.Assemble(t.Context(), "empty"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestZoomExpr(t *testing.T) {
	if got := zoomExpr(1.0, 1.2, 72); got != "1.0000+(1.2000-1.0000)*on/71" {
		t.Fatalf("unexpected expr: %s", got)
	}
	if got := zoomExpr(1.0, 1.2, 1); got != "1.2000" {
		t.Fatalf("single frame should pin final zoom: %s", got)
	}
}

func TestConcatReencodeArgs(t *testing.T) {
	args := concatReencodeArgs([]string{"a.mp4", "b.mp4"}, 640, 360, 23.976, "out.mp4")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i a.mp4 -i b.mp4") {
		t.Fatalf("inputs missing: %s", joined)
	}
	if !strings.Contains(joined, "fps=23.976") {
		t.Fatalf("fractional fps lost: %s", joined)
	}
	if !strings.Contains(joined, "concat=n=2:v=1:a=0[outv]") {
		t.Fatalf("concat filter wrong: %s", joined)
	}
}

func TestWriteConcatListEscapesQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	if err := writeConcatList(path, []string{"/tmp/it's.mp4"}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `it'\''s.mp4`) {
		t.Fatalf("quote not escaped: %s", data)
	}
}
