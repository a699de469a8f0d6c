package workflowgraph

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var versionSuffix = regexp.MustCompile(`^(.*)_(\d{5})_?$`)

// NextOutputPrefix derives the output prefix for a regenerated file from an
// existing output filename. A trailing _NNNNN counter is incremented and kept
// zero-padded; filenames without one start a fresh counter at 00001.
func NextOutputPrefix(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if m := versionSuffix.FindStringSubmatch(base); m != nil {
		current, err := strconv.Atoi(m[2])
		if err == nil {
			return fmt.Sprintf("%s_%05d", m[1], current+1)
		}
	}
	return base + "_00001"
}
