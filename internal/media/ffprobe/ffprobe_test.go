package ffprobe_test

import (
	"testing"

	"keepsake/internal/media/ffprobe"
)

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "scene.mp4", "nb_streams": 2, "duration": "5.120000", "format_name": "mov,mp4,m4a"}
}`

func TestDecode(t *testing.T) {
	result, err := ffprobe.Decode([]byte(samplePayload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := result.DurationSeconds(); got != 5.12 {
		t.Fatalf("unexpected duration: %v", got)
	}
	stream, ok := result.FirstVideoStream()
	if !ok {
		t.Fatal("expected video stream")
	}
	if stream.Width != 1280 || stream.Height != 720 {
		t.Fatalf("unexpected dimensions: %dx%d", stream.Width, stream.Height)
	}
	rate := stream.FrameRate()
	if rate < 29.96 || rate > 29.98 {
		t.Fatalf("unexpected frame rate: %v", rate)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := ffprobe.Decode([]byte("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFrameRateEdgeCases(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"25", 25},
		{"0/0", 0},
		{"24/1", 24},
		{"bogus", 0},
	}
	for _, tc := range cases {
		stream := ffprobe.Stream{RFrameRate: tc.raw}
		if got := stream.FrameRate(); got != tc.want {
			t.Fatalf("FrameRate(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestFirstVideoStreamAbsent(t *testing.T) {
	result, err := ffprobe.Decode([]byte(`{"streams": [{"index":0,"codec_type":"audio"}], "format": {}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := result.FirstVideoStream(); ok {
		t.Fatal("expected no video stream")
	}
}
