package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var systemTemplate = template.Must(template.New("system_prompt.tmpl").ParseFS(templateFS, "templates/system_prompt.tmpl"))

type systemData struct {
	Blocks   []Block
	Grounded bool
}

// RenderSystemMessage renders the assistant's system message: the grounding rules,
// stricter when citations are present, followed by every block of pc.
func RenderSystemMessage(pc PromptContext) (string, error) {
	data := systemData{
		Blocks:   pc.Blocks,
		Grounded: len(pc.Texts(BlockCitation)) > 0,
	}

	var buf bytes.Buffer
	if err := systemTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render system message: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
