package prompt

import "strings"

// BlockKind identifies the role of a prompt block.
type BlockKind string

// Block kinds in the order they appear in a PromptContext.
const (
	BlockCurrentDate BlockKind = "current_date"
	BlockCitation    BlockKind = "citation"
	BlockAlert       BlockKind = "alert"
	BlockInstruction BlockKind = "instruction"
)

// Block is one line of grounding handed to the language model.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// PromptContext is the ordered grounding that precedes the user's question.
type PromptContext struct {
	Blocks []Block `json:"blocks"`
	// Degraded is set when retrieval or alert lookup failed and grounding is partial.
	Degraded        bool     `json:"degraded"`
	DegradedReasons []string `json:"degraded_reasons,omitempty"`
}

// Texts returns the text of every block of kind k, in order.
func (pc PromptContext) Texts(k BlockKind) []string {
	var out []string
	for _, b := range pc.Blocks {
		if b.Kind == k {
			out = append(out, b.Text)
		}
	}
	return out
}

// Render joins the blocks, one per line.
func (pc PromptContext) Render() string {
	lines := make([]string, len(pc.Blocks))
	for i, b := range pc.Blocks {
		lines[i] = b.Text
	}
	return strings.Join(lines, "\n")
}
