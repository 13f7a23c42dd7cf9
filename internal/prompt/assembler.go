// Package prompt assembles the grounded context handed to the language model.
package prompt

import (
	"fmt"
	"sort"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/citation"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

// InstructionText tells the model which date to compute delays from.
const InstructionText = "INSTRUCTION: pour tout calcul de délai ou de durée, utilise la DATE ACTUELLE ci-dessus " +
	"comme date du jour et non ta propre notion de la date."

// Request carries the inputs of one query. Now is the date injected as DATE ACTUELLE.
type Request struct {
	Now   time.Time
	Query string
	// Retrieved is the ranked retrieval result; citations keep this order.
	Retrieved []model.Fragment
	Alerts    []model.Alert
	// ConversationFileIDs are the files attached to the active conversation. Alerts on
	// other files are left out.
	ConversationFileIDs []string
}

// Assembler builds PromptContexts. It holds no per-query state and is safe for
// concurrent use.
type Assembler struct {
	engine *temporal.Engine
}

// NewAssembler creates an assembler computing trends with engine.
func NewAssembler(engine *temporal.Engine) *Assembler {
	if engine == nil {
		engine = temporal.NewEngine(temporal.DefaultConfig())
	}
	return &Assembler{engine: engine}
}

// Assemble builds the four-part context: current date, citations, alerts and the
// instruction line. Temporal context is computed over exactly req.Retrieved. A
// fragment with an incomplete position fails the assembly with a citation.FormatError.
func (a *Assembler) Assemble(req Request) (PromptContext, error) {
	contexts := a.engine.Compute(req.Retrieved)
	citations, err := citation.FormatAll(req.Retrieved, contexts)
	if err != nil {
		return PromptContext{}, fmt.Errorf("failed to format citations: %w", err)
	}

	blocks := make([]Block, 0, len(citations)+len(req.Alerts)+2)
	blocks = append(blocks, dateBlock(req.Now))
	for _, c := range citations {
		blocks = append(blocks, Block{Kind: BlockCitation, Text: c})
	}
	for _, alert := range relevantAlerts(req.Alerts, req.ConversationFileIDs) {
		blocks = append(blocks, Block{Kind: BlockAlert, Text: AlertLine(alert)})
	}
	blocks = append(blocks, instructionBlock())

	return PromptContext{Blocks: blocks}, nil
}

// Degraded builds the temporal-only context used when retrieval is unavailable.
func (a *Assembler) Degraded(now time.Time, reasons ...string) PromptContext {
	return PromptContext{
		Blocks:          []Block{dateBlock(now), instructionBlock()},
		Degraded:        true,
		DegradedReasons: reasons,
	}
}

// AlertLine renders an alert as "ALERTE (critical): {message}".
func AlertLine(a model.Alert) string {
	return fmt.Sprintf("ALERTE (%s): %s", a.Severity, a.Message)
}

func dateBlock(now time.Time) Block {
	return Block{Kind: BlockCurrentDate, Text: "DATE ACTUELLE: " + temporal.FormatDateFR(now)}
}

func instructionBlock() Block {
	return Block{Kind: BlockInstruction, Text: InstructionText}
}

// relevantAlerts keeps alerts on the conversation's files, most severe first.
func relevantAlerts(alerts []model.Alert, fileIDs []string) []model.Alert {
	if len(alerts) == 0 || len(fileIDs) == 0 {
		return nil
	}
	files := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		files[id] = struct{}{}
	}

	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := files[a.FileID]; ok {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}
