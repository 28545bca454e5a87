package models

import "orchestrator/pkg/config"

// AgentOutput is the result of a single agent invocation: either the
// code/summary pair, the basic QA agent's answer, or an error.
type AgentOutput struct {
	Code    string `json:"code,omitempty"`
	Summary string `json:"summary,omitempty"`
	Answer  string `json:"answer,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsError reports whether this output represents a failed invocation.
func (o AgentOutput) IsError() bool {
	return o.Error != ""
}

// ExecutionEvent is emitted once per plan step, in plan order.
// `(agent_name, inputs_snapshot, output|error, status)` per §3.
type ExecutionEvent struct {
	AgentName string
	Inputs    map[string]string
	Output    AgentOutput
	Status    config.FrameStatus
}

// Frame is the transport-facing shape of an ExecutionEvent, matching
// §6's `{agent, content, status}` wire contract.
type Frame struct {
	Agent   string              `json:"agent"`
	Content string              `json:"content"`
	Status  config.FrameStatus  `json:"status"`
}
