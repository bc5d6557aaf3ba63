package progrock

import (
	"fmt"
	"io"

	"github.com/vito/progrock"
	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
)

var _ ports.Vertex = (*Vertex)(nil)

// Vertex records one guarded action on a progrock tape.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Stdout is where the action's command writes its standard output.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Stderr is where the action's command writes its error output.
func (v *Vertex) Stderr() io.Writer {
	return v.vertex.Stderr()
}

// Log writes msg to the vertex. Warnings and errors go to the stderr stream.
func (v *Vertex) Log(level domain.LogLevel, msg string) {
	w := v.vertex.Stdout()
	if level >= domain.LogLevelWarn {
		w = v.vertex.Stderr()
	}
	_, _ = fmt.Fprintf(w, "[%s] %s\n", level.String(), msg)
}

// Complete ends the vertex. A non-nil err marks the action failed and its
// stamp uncommitted.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

// Cached marks the action as skipped because its stamp matched the digest of
// its inputs.
func (v *Vertex) Cached() {
	_, _ = fmt.Fprintf(v.vertex.Stdout(), "[%s] stamp fresh, skipped\n", domain.LogLevelInfo.String())
	v.vertex.Cached()
}
