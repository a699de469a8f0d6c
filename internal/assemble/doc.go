// Package assemble produces the final memory video. Scene clips from one
// generation template are uniform, so the default path is a stream-copy
// concat; only when a title image yields freshly encoded intro/outro clips
// does the assembler fall back to a re-encode concat at the probed geometry.
package assemble
