package session

import "path/filepath"

// Paths resolves the on-disk layout of a single session directory. Every
// stage reads and writes through these helpers so the layout stays in one
// place.
type Paths struct {
	Root string
}

// NewPaths returns the path set for a session under the sessions directory.
func NewPaths(sessionsDir, sessionID string) Paths {
	return Paths{Root: filepath.Join(sessionsDir, sessionID)}
}

func (p Paths) Transcript() string   { return filepath.Join(p.Root, "transcript.txt") }
func (p Paths) Scenes() string       { return filepath.Join(p.Root, "scenes.json") }
func (p Paths) ImageResults() string { return filepath.Join(p.Root, "image_results.json") }
func (p Paths) VideoResults() string { return filepath.Join(p.Root, "comfy_results.json") }
func (p Paths) CropsDir() string     { return filepath.Join(p.Root, "crops") }
func (p Paths) ImagesDir() string    { return filepath.Join(p.Root, "images") }
func (p Paths) VideosDir() string    { return filepath.Join(p.Root, "videos") }
func (p Paths) TitleCard() string    { return filepath.Join(p.Root, "title.png") }
func (p Paths) FinalVideo() string   { return filepath.Join(p.Root, "final.mp4") }
func (p Paths) LockFile() string     { return filepath.Join(p.Root, ".lock") }
func (p Paths) Crop(name string) string {
	return filepath.Join(p.CropsDir(), name)
}
