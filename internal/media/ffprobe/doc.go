// Package ffprobe shells out to ffprobe and decodes its JSON report into
// typed stream and format metadata. The assembler uses it to match intro and
// outro clips to the first scene video's resolution and frame rate.
package ffprobe
