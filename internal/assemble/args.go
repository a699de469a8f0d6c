package assemble

import (
	"fmt"
	"math"
	"strings"
)

type clipSpec struct {
	width    int
	height   int
	fps      float64
	duration float64
}

// zoomClipArgs builds the ffmpeg invocation that renders a zoom clip from a
// still image: letterbox to the target frame first so the zoom never
// distorts aspect, then interpolate the zoom factor linearly across the
// clip's frames.
func zoomClipArgs(imagePath, outPath string, spec clipSpec, zoomFrom, zoomTo float64) []string {
	frames := int(math.Round(spec.duration * spec.fps))
	if frames < 1 {
		frames = 1
	}
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,"+
			"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,"+
			"zoompan=z='%s':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d:fps=%s,"+
			"format=yuv420p",
		spec.width, spec.height,
		spec.width, spec.height,
		zoomExpr(zoomFrom, zoomTo, frames), frames,
		spec.width, spec.height, formatFPS(spec.fps),
	)
	return []string{
		"-y",
		"-loop", "1",
		"-t", fmt.Sprintf("%.3f", spec.duration),
		"-i", imagePath,
		"-vf", filter,
		"-r", formatFPS(spec.fps),
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outPath,
	}
}

// zoomExpr interpolates the zoom factor linearly over the output frames.
func zoomExpr(from, to float64, frames int) string {
	if frames <= 1 {
		return fmt.Sprintf("%.4f", to)
	}
	return fmt.Sprintf("%.4f+(%.4f-%.4f)*on/%d", from, to, from, frames-1)
}

// concatCopyArgs concatenates uniform clips via the concat demuxer without
// re-encoding.
func concatCopyArgs(listPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
}

// concatReencodeArgs concatenates heterogeneous clips by scaling each to the
// reference geometry and joining them through the concat filter.
func concatReencodeArgs(clips []string, width, height int, fps float64, outPath string) []string {
	args := []string{"-y"}
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	var filter strings.Builder
	for i := range clips {
		fmt.Fprintf(&filter,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,fps=%s,setsar=1[v%d];",
			i, width, height, width, height, formatFPS(fps), i)
	}
	for i := range clips {
		fmt.Fprintf(&filter, "[v%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[outv]", len(clips))

	return append(args,
		"-filter_complex", filter.String(),
		"-map", "[outv]",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outPath,
	)
}

func formatFPS(fps float64) string {
	if fps == math.Trunc(fps) {
		return fmt.Sprintf("%d", int(fps))
	}
	return fmt.Sprintf("%.3f", fps)
}
