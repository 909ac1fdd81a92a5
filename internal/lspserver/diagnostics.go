package lspserver

import (
	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/eventbus"
	"github.com/char5742/groovy-lsp/internal/types"
)

type diagnosticWire struct {
	Range    wireRangeDiag `json:"range"`
	Severity int           `json:"severity"`
	Message  string        `json:"message"`
	Source   string        `json:"source,omitempty"`
}

type wireRangeDiag struct {
	Start wirePositionDiag `json:"start"`
	End   wirePositionDiag `json:"end"`
}

type wirePositionDiag struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type publishDiagnosticsParams struct {
	URI         string           `json:"uri"`
	Diagnostics []diagnosticWire `json:"diagnostics"`
}

// bindDiagnosticPublishing subscribes to FileIndexedEvent and republishes
// its Diagnostics as textDocument/publishDiagnostics, the indexer-to-client
// path spec.md §7 requires: indexing errors are surfaced as diagnostics on
// the offending file's URI in addition to being logged.
func bindDiagnosticPublishing(bus *eventbus.Bus, d *dispatch.Dispatcher) eventbus.Subscription {
	return eventbus.Subscribe(bus, func(e eventbus.FileIndexedEvent) {
		d.Notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
			URI:         "file://" + e.Path,
			Diagnostics: diagnosticsToWire(e.Diagnostics),
		})
	})
}

func diagnosticsToWire(diags []types.Diagnostic) []diagnosticWire {
	out := make([]diagnosticWire, len(diags))
	for i, d := range diags {
		out[i] = diagnosticWire{
			Range: wireRangeDiag{
				Start: wirePositionDiag{Line: d.Range.Start.Line, Character: d.Range.Start.Column},
				End:   wirePositionDiag{Line: d.Range.End.Line, Character: d.Range.End.Column},
			},
			Severity: int(d.Severity),
			Message:  d.Message,
			Source:   d.Source,
		}
	}
	return out
}
