// Package streaming implements the Streaming Transport: converting the
// core's ExecutionEvent/DeepAnalysisEvent values into the
// newline-delimited JSON wire frames spec.md §6 describes, with
// ordering preserved and no re-parsing downstream (§9, "Streaming as
// iterator of events").
package streaming

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
)

// Writer serializes one session's event stream to an underlying
// writer (an HTTP response body in the demonstration wiring) as
// newline-delimited JSON, flushing after every frame so intermediary
// buffering does not delay delivery (§6, "Streaming transport").
type Writer struct {
	w       *bufio.Writer
	flusher flusher
}

// flusher is satisfied by http.ResponseWriter via the small interface
// the demonstration server's handler passes in; kept narrow so this
// package never imports net/http.
type flusher interface {
	Flush()
}

// NewWriter wraps w. If w also implements flusher (as
// http.ResponseWriter does when the underlying transport supports
// streaming), each frame is flushed immediately after being written.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: bufio.NewWriter(w)}
	if f, ok := w.(flusher); ok {
		sw.flusher = f
	}
	return sw
}

// WriteExecutionEvent serializes one plan-execution event as a
// models.Frame. Errors flatten their message into content, matching
// the per-agent-contained-error shape of §7.
func (w *Writer) WriteExecutionEvent(evt models.ExecutionEvent) error {
	content := evt.Output.Summary
	if evt.Output.Answer != "" {
		content = evt.Output.Answer
	}
	status := evt.Status
	if evt.Output.IsError() {
		content = evt.Output.Error
		status = config.FrameError
	}
	return w.writeLine(models.Frame{Agent: evt.AgentName, Content: content, Status: status})
}

// WritePlannerDescriptionFrame writes the planner's own description,
// the first frame in a planned-execution stream (§6). cmd/orchestrator
// does not write it for a no_agents_available plan, whose single error
// frame stands alone.
func (w *Writer) WritePlannerDescriptionFrame(description string) error {
	return w.writeLine(models.Frame{Agent: "planner", Content: description, Status: config.FrameSuccess})
}

// WriteDeepAnalysisEvent serializes one deep-analysis stage event
// verbatim (its json tags already match §6's
// `{step, status, message?, progress, content?, final_result?}` shape).
func (w *Writer) WriteDeepAnalysisEvent(evt models.DeepAnalysisEvent) error {
	return w.writeLine(evt)
}

func (w *Writer) writeLine(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling stream frame: %w", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
