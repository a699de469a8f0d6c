package workflowgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"keepsake/internal/services"
)

// Node is a single workflow node: its class, its wired inputs, and the
// optional UI metadata block.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      *NodeMeta      `json:"_meta,omitempty"`
}

// NodeMeta carries the display metadata ComfyUI attaches to API exports.
type NodeMeta struct {
	Title string `json:"title,omitempty"`
}

// Title returns the node's display title, empty when absent.
func (n Node) Title() string {
	if n.Meta == nil {
		return ""
	}
	return n.Meta.Title
}

// Graph is a workflow in API format: node id to node.
type Graph map[string]*Node

// Load reads a workflow graph from an API-format JSON file.
func Load(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "load", "read workflow", err)
	}
	return Decode(data)
}

// Decode parses an API-format workflow graph.
func Decode(data []byte) (Graph, error) {
	var graph Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, services.Wrap(services.ErrParse, "workflow", "decode", "parse workflow", err)
	}
	if len(graph) == 0 {
		return nil, services.Wrap(services.ErrParse, "workflow", "decode", "workflow has no nodes", nil)
	}
	for id, node := range graph {
		if node == nil || node.ClassType == "" {
			return nil, services.Wrap(services.ErrParse, "workflow", "decode",
				fmt.Sprintf("node %s has no class_type", id), nil)
		}
	}
	return graph, nil
}

// Clone deep-copies the graph so per-scene patches never leak between
// submissions.
func (g Graph) Clone() Graph {
	clone := make(Graph, len(g))
	for id, node := range g {
		copied := &Node{ClassType: node.ClassType, Inputs: cloneValue(node.Inputs).(map[string]any)}
		if node.Meta != nil {
			meta := *node.Meta
			copied.Meta = &meta
		}
		clone[id] = copied
	}
	return clone
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case nil:
		return map[string]any{}
	default:
		return v
	}
}

// LoadImageNodeIDs returns the LoadImage node ids sorted numerically, so the
// first slot is deterministic regardless of map order. Non-numeric ids sort
// after numeric ones, alphabetically.
func (g Graph) LoadImageNodeIDs() []string {
	var ids []string
	for id, node := range g {
		if node.ClassType == "LoadImage" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aErr := strconv.Atoi(ids[i])
		b, bErr := strconv.Atoi(ids[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		if aErr == nil {
			return true
		}
		if bErr == nil {
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// SetImage points the n-th LoadImage node (in numeric id order) at an
// uploaded server image.
func (g Graph) SetImage(slot int, serverPath string) error {
	ids := g.LoadImageNodeIDs()
	if slot < 0 || slot >= len(ids) {
		return services.Wrap(services.ErrValidation, "workflow", "patch",
			fmt.Sprintf("no LoadImage node for slot %d (graph has %d)", slot, len(ids)), nil)
	}
	g[ids[slot]].Inputs["image"] = serverPath
	return nil
}

// PositivePromptNodeID locates the CLIPTextEncode node carrying the positive
// prompt. Preference order: a node titled with "positive", then the first
// encode node whose text is set and free of "negative", then the first encode
// node in numeric id order.
func (g Graph) PositivePromptNodeID() (string, bool) {
	var encodeIDs []string
	for id, node := range g {
		if strings.Contains(node.ClassType, "CLIPTextEncode") {
			encodeIDs = append(encodeIDs, id)
		}
	}
	if len(encodeIDs) == 0 {
		return "", false
	}
	sort.Slice(encodeIDs, func(i, j int) bool { return numericLess(encodeIDs[i], encodeIDs[j]) })

	for _, id := range encodeIDs {
		if strings.Contains(strings.ToLower(g[id].Title()), "positive") {
			return id, true
		}
	}
	for _, id := range encodeIDs {
		text, _ := g[id].Inputs["text"].(string)
		if text != "" && !strings.Contains(strings.ToLower(text), "negative") {
			return id, true
		}
	}
	return encodeIDs[0], true
}

// SetPositivePrompt writes the prompt text into the positive encode node.
func (g Graph) SetPositivePrompt(text string) error {
	id, ok := g.PositivePromptNodeID()
	if !ok {
		return services.Wrap(services.ErrValidation, "workflow", "patch", "no CLIPTextEncode node in workflow", nil)
	}
	g[id].Inputs["text"] = text
	return nil
}

// SetPrompt writes the scene prompt into whichever node the template carries
// it on: the first GeminiImageNode's "prompt" input when present, otherwise
// the positive CLIPTextEncode node.
func (g Graph) SetPrompt(text string) error {
	var geminiIDs []string
	for id, node := range g {
		if node.ClassType == "GeminiImageNode" {
			geminiIDs = append(geminiIDs, id)
		}
	}
	if len(geminiIDs) > 0 {
		sort.Slice(geminiIDs, func(i, j int) bool { return numericLess(geminiIDs[i], geminiIDs[j]) })
		g[geminiIDs[0]].Inputs["prompt"] = text
		return nil
	}
	return g.SetPositivePrompt(text)
}

// SetOutputPrefix rewrites the filename_prefix on every save node so each
// scene's outputs are distinguishable in the server history.
func (g Graph) SetOutputPrefix(prefix string) int {
	count := 0
	for _, node := range g {
		if _, ok := node.Inputs["filename_prefix"]; ok {
			node.Inputs["filename_prefix"] = prefix
			count++
		}
	}
	return count
}

// SetSeeds assigns the given seed to every sampler node, covering both the
// "seed" and "noise_seed" input conventions.
func (g Graph) SetSeeds(seed int64) int {
	count := 0
	for _, node := range g {
		touched := false
		if _, ok := node.Inputs["seed"]; ok {
			node.Inputs["seed"] = seed
			touched = true
		}
		if _, ok := node.Inputs["noise_seed"]; ok {
			node.Inputs["noise_seed"] = seed
			touched = true
		}
		if touched {
			count++
		}
	}
	return count
}

func numericLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	if aErr == nil {
		return true
	}
	if bErr == nil {
		return false
	}
	return a < b
}
