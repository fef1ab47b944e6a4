// Package agent drives the conversation loop: user turn in, model
// round-trips with tool execution in between, spoken reply out.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/aria/internal/errors"
	"github.com/gmsas95/aria/internal/history"
	"github.com/gmsas95/aria/internal/llm"
	"github.com/gmsas95/aria/internal/metrics"
	"github.com/gmsas95/aria/pkg/tools"
)

// State is the controller's position in the turn lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingModel  State = "awaiting_model"
	StateExecutingTools State = "executing_tools"
	StateResponding     State = "responding"
)

// Canned replies for the two failure modes the user should never see
// raw errors for.
const (
	FallbackReply = "I'm having trouble reaching my language model right now. Please try again in a moment."
	DegradedReply = "I'm sorry, I wasn't able to finish that request. Could you try rephrasing it?"
)

// DefaultMaxToolRounds caps model round-trips within a single turn.
const DefaultMaxToolRounds = 5

// ModelClient is the slice of the LLM client the controller needs.
type ModelClient interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	GetModel() string
	MaxTokens() int
}

// TurnListener observes turns as they are appended, in order. The
// dashboard uses this to feed its websocket.
type TurnListener func(history.Turn)

// Controller owns the conversation state machine. One utterance is
// processed at a time; HandleUtterance serializes callers.
type Controller struct {
	model     ModelClient
	tools     *tools.Registry
	buffer    *history.Buffer
	logger    *zap.Logger
	maxRounds int

	mu        sync.Mutex
	state     State
	listeners []TurnListener
}

// Option tweaks controller construction.
type Option func(*Controller)

// WithMaxToolRounds overrides the round-trip cap.
func WithMaxToolRounds(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// NewController wires the loop. systemPrompt is pinned into the history
// buffer and survives window eviction.
func NewController(model ModelClient, registry *tools.Registry, buffer *history.Buffer, systemPrompt string, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		model:     model,
		tools:     registry,
		buffer:    buffer,
		logger:    logger,
		maxRounds: DefaultMaxToolRounds,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	buffer.Pin(systemPrompt)
	return c
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnTurn registers a listener for every appended turn.
func (c *Controller) OnTurn(fn TurnListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// History returns the current window, pinned system turn first.
func (c *Controller) History() []history.Turn {
	return c.buffer.Snapshot()
}

// Reset drops the conversation window, keeping the system prompt.
func (c *Controller) Reset() {
	c.buffer.Reset()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) append(turn history.Turn) {
	c.buffer.Append(turn)

	c.mu.Lock()
	listeners := make([]TurnListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(turn)
	}
}

// HandleUtterance runs one full turn: append the user's words, loop
// through model round-trips executing any requested tools in order, and
// return the assistant's final reply. Model outages and exhausted tool
// budgets come back as canned replies, not errors; only context
// cancellation and empty input surface as errors.
func (c *Controller) HandleUtterance(ctx context.Context, utterance string) (string, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return "", apperrors.New("AGENT_001", "empty utterance")
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", apperrors.New("AGENT_002", "a turn is already in progress")
	}
	c.state = StateAwaitingModel
	c.mu.Unlock()
	defer c.setState(StateIdle)

	c.append(history.NewTurn("user", utterance))

	for round := 0; round < c.maxRounds; round++ {
		c.setState(StateAwaitingModel)

		resp, err := c.roundTrip(ctx)
		if err != nil {
			if ctx.Err() != nil {
				metrics.TurnsTotal.WithLabelValues(metrics.OutcomeError).Inc()
				return "", ctx.Err()
			}
			c.logger.Warn("Model unavailable, serving fallback", zap.Error(err), zap.Int("round", round))
			return c.respond(FallbackReply, metrics.OutcomeFallback), nil
		}

		if len(resp.Choices) == 0 {
			c.logger.Warn("Model returned no choices, serving fallback")
			return c.respond(FallbackReply, metrics.OutcomeFallback), nil
		}

		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			reply := msg.Content
			if strings.TrimSpace(reply) == "" {
				reply = DegradedReply
				return c.respond(reply, metrics.OutcomeDegraded), nil
			}
			return c.respond(reply, metrics.OutcomeOK), nil
		}

		// Record the assistant's tool request so the next round-trip
		// replays it, then execute the calls strictly in order.
		assistantTurn := history.NewTurn("assistant", msg.Content)
		assistantTurn.ToolCalls = msg.ToolCalls
		c.append(assistantTurn)

		c.setState(StateExecutingTools)
		for _, call := range msg.ToolCalls {
			c.executeCall(ctx, call)
			if ctx.Err() != nil {
				metrics.TurnsTotal.WithLabelValues(metrics.OutcomeError).Inc()
				return "", ctx.Err()
			}
		}
	}

	c.logger.Warn("Tool round budget exhausted",
		zap.Int("max_rounds", c.maxRounds),
		zap.Error(apperrors.ErrToolLoopExceeded))
	return c.respond(DegradedReply, metrics.OutcomeDegraded), nil
}

func (c *Controller) roundTrip(ctx context.Context) (*llm.ChatResponse, error) {
	req := llm.ChatRequest{
		Model:     c.model.GetModel(),
		Messages:  c.buffer.Messages(),
		Tools:     c.toolDefinitions(),
		MaxTokens: c.model.MaxTokens(),
	}

	start := time.Now()
	resp, err := c.model.ChatCompletion(ctx, req)
	metrics.ModelRoundTrips.Inc()
	metrics.ModelLatency.Observe(time.Since(start).Seconds())
	return resp, err
}

// executeCall runs one tool call and appends its result as a tool turn.
// Failures become descriptive tool output for the model to read; the
// turn itself never aborts.
func (c *Controller) executeCall(ctx context.Context, call llm.ToolCall) {
	name := call.Function.Name
	c.logger.Debug("Executing tool", zap.String("tool", name), zap.String("call_id", call.ID))

	result, err := c.tools.Invoke(ctx, name, call.Function.Arguments)
	outcome := metrics.OutcomeOK
	if err != nil {
		switch apperrors.GetCode(err) {
		case "TOOL_001":
			outcome = "unknown"
			result = fmt.Sprintf("Error: no tool named %q is available.", name)
		case "TOOL_002":
			outcome = "invalid"
			result = fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
		default:
			outcome = metrics.OutcomeError
			result = fmt.Sprintf("Error: %s failed: %v", name, err)
		}
		c.logger.Warn("Tool call failed", zap.String("tool", name), zap.Error(err))
	}
	metrics.ToolCallsTotal.WithLabelValues(name, outcome).Inc()

	turn := history.NewTurn("tool", result)
	turn.ToolName = name
	turn.ToolCallID = call.ID
	c.append(turn)
}

func (c *Controller) respond(reply, outcome string) string {
	c.setState(StateResponding)
	c.append(history.NewTurn("assistant", reply))
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	return reply
}

func (c *Controller) toolDefinitions() []llm.Tool {
	defs := c.tools.Definitions()
	out := make([]llm.Tool, 0, len(defs))
	for _, def := range defs {
		fn := def["function"].(map[string]interface{})
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        fn["name"].(string),
				Description: fn["description"].(string),
				Parameters:  fn["parameters"].(map[string]interface{}),
			},
		})
	}
	return out
}
