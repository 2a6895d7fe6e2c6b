// Package agent contains scopa's reasoning core.
//
// It binds the Anthropic model configuration to the tool set discovered at
// startup and runs the tool-selection loop for each conversation turn. The
// session layer only sees Respond; everything the model does in between
// (tool calls included) happens here.
package agent
