package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"keepsake/internal/services"
)

var cropExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// resolveCrop locates the cropped photo for a participant label. Fixed
// candidate names are tried first; when none exist, the directory is scanned
// for any image whose base name contains the label.
func resolveCrop(cropsDir, label string) (string, error) {
	patterns := []string{
		"person_%s", "person%s", "crop_%s", "%s",
	}
	for _, pattern := range patterns {
		base := fmt.Sprintf(pattern, label)
		for _, ext := range cropExtensions {
			candidate := filepath.Join(cropsDir, base+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	entries, err := os.ReadDir(cropsDir)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "generate", "crops", "read crops directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isCropExtension(ext) {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.Contains(base, label) {
			return filepath.Join(cropsDir, name), nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "generate", "crops",
		fmt.Sprintf("no crop image for participant %q in %s", label, cropsDir), nil)
}

func isCropExtension(ext string) bool {
	for _, known := range cropExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
