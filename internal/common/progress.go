package common

import (
	"fmt"
	"io"
	"sync"

	"resumeinsight/internal/types"
)

// ProgressPrinter writes one line per progress event, usually to stderr
type ProgressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

// NewProgressPrinter creates a printer writing to out
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out, last: -1}
}

// Print renders an event as "[ 40%] Parsing: message"
func (p *ProgressPrinter) Print(event types.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := stageLabel(event.Stage)
	if event.Message != "" {
		_, _ = fmt.Fprintf(p.out, "[%3d%%] %s: %s\n", event.Progress, label, event.Message)
	} else {
		_, _ = fmt.Fprintf(p.out, "[%3d%%] %s\n", event.Progress, label)
	}
	p.last = event.Progress
}

// Waiting reports a readiness probe that has not succeeded yet
func (p *ProgressPrinter) Waiting(attempt int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "Waiting for analysis service (attempt %d): %v\n", attempt, err)
}

// Last returns the last reported percentage, or -1 before any event
func (p *ProgressPrinter) Last() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

var stageLabels = map[types.Stage]string{
	types.StageDecoding:    "Decoding",
	types.StageExtracting:  "Extracting",
	types.StageValidating:  "Validating",
	types.StageATSAnalysis: "ATS analysis",
	types.StageAIAnalysis:  "AI analysis",
	types.StageFinalizing:  "Finalizing",
	types.StageComplete:    "Complete",
}

func stageLabel(stage types.Stage) string {
	if label, ok := stageLabels[stage]; ok {
		return label
	}
	if stage == "" {
		return "Working"
	}
	return string(stage)
}
