// Package mcp exposes the pipeline over the Model Context Protocol:
// JSON-RPC 2.0 on newline-delimited stdin/stdout, so an agent session can
// start runs, preview plans, and inspect configuration natively.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/pipeline"
	"github.com/example/anvil/internal/route"
)

const protocolVersion = "2025-06-18"

// serverVersion is reported in the initialize handshake.
const serverVersion = "0.1.0"

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func success(id json.RawMessage, result any) *response {
	return &response{JSONRPC: "2.0", ID: normalizeID(id), Result: result}
}

func failure(id json.RawMessage, code int, message string) *response {
	return &response{JSONRPC: "2.0", ID: normalizeID(id), Error: &rpcError{Code: code, Message: message}}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// content is one item of a tool call result.
type content struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsError bool   `json:"isError"`
}

func toolResult(text string) []content { return []content{{Type: "text", Text: text}} }
func toolError(text string) []content  { return []content{{Type: "text", Text: text, IsError: true}} }

type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func toolDefinitions() []toolDef {
	tierSchema := map[string]any{
		"type":        "string",
		"enum":        []string{"guard", "nano", "quick", "lite", "standard", "full", "auto"},
		"description": "Pipeline tier (default: the configured tier)",
	}
	return []toolDef{
		{
			Name:        "anvil_run",
			Description: "Run the pipeline on a ticket, with phase gates and cost controls. Blocks until the run finishes.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ticket":     map[string]any{"type": "string", "description": "Ticket ID or feature description"},
					"tier":       tierSchema,
					"max_budget": map[string]any{"type": "number", "description": "Maximum pipeline cost in USD"},
				},
				"required": []string{"ticket"},
			},
		},
		{
			Name:        "anvil_plan",
			Description: "Show which phases would run for a given tier (dry run). Does not execute anything.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ticket": map[string]any{"type": "string", "description": "Ticket ID or feature description"},
					"tier":   tierSchema,
				},
				"required": []string{"ticket"},
			},
		},
		{
			Name:        "anvil_info",
			Description: "Show the current pipeline configuration: tier, cost limits, retry policy, and model assignments.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
	}
}

// Server answers MCP requests over a newline-delimited JSON-RPC stream.
// Run is injected by the caller so the server stays decoupled from run
// directory setup.
type Server struct {
	Config *config.Config

	// Run executes the pipeline for a ticket. An empty tier means the
	// configured one; maxBudget <= 0 means no override.
	Run func(ctx context.Context, ticket, tier string, maxBudget float64) error

	In  io.Reader
	Out io.Writer
	Log io.Writer
}

// Serve reads requests until EOF. Notifications get no response; malformed
// lines get a parse error with a null id, matching JSON-RPC 2.0.
func (s *Server) Serve(ctx context.Context) error {
	fmt.Fprintln(s.Log, "mcp server starting (stdio mode)")
	out := bufio.NewWriter(s.Out)
	sc := bufio.NewScanner(s.In)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var req request
		var resp *response
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			fmt.Fprintf(s.Log, "parse error: %v\n", err)
			resp = failure(nil, codeParseError, "Parse error")
		} else {
			resp = s.dispatch(ctx, &req)
		}
		if resp == nil {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if _, err := out.Write(append(data, '\n')); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(s.Log, "mcp server shutting down")
	return sc.Err()
}

// dispatch returns nil for notifications and for unknown methods that carry
// no id.
func (s *Server) dispatch(ctx context.Context, req *request) *response {
	switch req.Method {
	case "initialize":
		return success(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": "anvil", "version": serverVersion},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return success(req.ID, map[string]any{"tools": toolDefinitions()})
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params, &params)
		}
		var items []content
		switch params.Name {
		case "anvil_run":
			items = s.handleRun(ctx, params.Arguments)
		case "anvil_plan":
			items = s.handlePlan(params.Arguments)
		case "anvil_info":
			items = s.handleInfo()
		default:
			items = toolError(fmt.Sprintf("Unknown tool: %s", params.Name))
		}
		return success(req.ID, map[string]any{"content": items})
	default:
		if len(req.ID) == 0 {
			return nil
		}
		return failure(req.ID, codeMethodNotFound, "Method not found: "+req.Method)
	}
}

type runArgs struct {
	Ticket    string  `json:"ticket"`
	Tier      string  `json:"tier"`
	MaxBudget float64 `json:"max_budget"`
}

func (s *Server) handleRun(ctx context.Context, raw json.RawMessage) []content {
	var args runArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return toolError(fmt.Sprintf("Invalid arguments: %v", err))
		}
	}
	if args.Ticket == "" {
		return toolError("Missing required parameter: ticket")
	}
	err := s.Run(ctx, args.Ticket, args.Tier, args.MaxBudget)
	if err == nil {
		return toolResult(fmt.Sprintf("Pipeline completed (exit code 0) for ticket: %s", args.Ticket))
	}
	var xe *pipeline.ExitError
	if errors.As(err, &xe) {
		return toolResult(fmt.Sprintf("Pipeline %s (exit code %d) for ticket: %s", xe.Status, xe.Code, args.Ticket))
	}
	return toolError(fmt.Sprintf("Pipeline error: %v", err))
}

func (s *Server) handlePlan(raw json.RawMessage) []content {
	var args runArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return toolError(fmt.Sprintf("Invalid arguments: %v", err))
		}
	}
	if args.Ticket == "" {
		return toolError("Missing required parameter: ticket")
	}
	name := args.Tier
	if name == "" {
		name = s.Config.Tier
	}
	tier, err := route.ParseTier(name)
	if err != nil {
		return toolError(err.Error())
	}
	// Auto resolves from a live context scan; a dry run plans with the
	// configured fallback instead.
	label := tier.String()
	if !tier.Concrete() {
		fb, err := route.ParseTier(s.Config.AutoFallbackTier)
		if err != nil {
			return toolError(err.Error())
		}
		label = fmt.Sprintf("%s (planning as %s)", tier, fb)
		tier = fb
	}
	skip := route.Skips(tier, s.Config.TierSkips)

	var b strings.Builder
	fmt.Fprintf(&b, "Plan for: %s\nTier: %s\n\n", args.Ticket, label)
	for _, phase := range s.Config.PhaseOrder() {
		marker := "run "
		if skip[phase] {
			marker = "skip"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", marker, phase)
	}
	return toolResult(b.String())
}

func (s *Server) handleInfo() []content {
	cfg := s.Config
	validator := cfg.ReviewValidatorCommand
	if validator == "" {
		validator = "none"
	}
	text := fmt.Sprintf(
		"Pipeline: %s\nTier: %s\nMax pipeline cost: $%.2f\nMax retries: %d\nMax no-progress phases: %d\nStagnation threshold: %d%% changed lines\nDoc workers: %d\nModels: default=%s review-alt=%s\nValidator: %s",
		cfg.Name, cfg.Tier, cfg.MaxPipelineCostUSD, cfg.MaxRetries, cfg.MaxNoProgress,
		cfg.StagnationPct, cfg.DocWorkers, cfg.Models.Default, cfg.Models.Overrides["review-alt"], validator,
	)
	return toolResult(text)
}
