// Package workflowgraph models ComfyUI workflows in API format and patches
// them per scene: image slots, the positive prompt, output prefixes, and
// sampler seeds. Resolution is structural so user-edited workflow files keep
// working as long as the node classes stay recognizable.
package workflowgraph
