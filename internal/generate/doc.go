// Package generate orchestrates the two media generation stages. Each stage
// walks the scene list serially through the same per-scene state machine:
// patch a workflow template, submit it, poll until an output descriptor
// appears or the stage timeout elapses, then download the artifact. One
// scene's failure never aborts the stage; it is recorded in that scene's
// result entry and the loop continues.
package generate
