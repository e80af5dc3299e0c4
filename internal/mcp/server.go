package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandeepkv93/taskplan/internal/model"
	"github.com/sandeepkv93/taskplan/internal/planner"
)

// ReportDoc is the JSON form of a stored plan run.
type ReportDoc struct {
	RunID     string        `json:"run_id"`
	Owner     string        `json:"owner"`
	Model     string        `json:"model,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
	Plan      model.PlanDoc `json:"plan"`
}

// NewServer creates the MCP server. p answers stateless requests, svc the
// stored per-owner ones; defaultOwner is used when a call names no owner.
func NewServer(p *planner.Planner, svc *planner.Service, defaultOwner string) *server.MCPServer {
	s := server.NewMCPServer("taskplan", "0.1.0")

	s.AddTool(mcp.NewTool("generate_plan",
		mcp.WithDescription("Schedule the tasks in a planning input document without storing anything. Returns blocks, failures and the path that produced them."),
		mcp.WithString("input", mcp.Description("Planning input as JSON: tasks, existing_events, availability, window_start, window_end"), mcp.Required()),
		mcp.WithBoolean("local", mcp.Description("Skip the external estimator and use the local scheduler only")),
	), generatePlanHandler(p))

	s.AddTool(mcp.NewTool("plan_owner",
		mcp.WithDescription("Replan an owner's stored tasks. The previous plan is discarded."),
		mcp.WithString("owner", mcp.Description("Owner id (defaults to the configured owner)")),
		mcp.WithBoolean("local", mcp.Description("Skip the external estimator and use the local scheduler only")),
	), planOwnerHandler(svc, defaultOwner))

	s.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("Get the latest stored plan for an owner."),
		mcp.WithString("owner", mcp.Description("Owner id (defaults to the configured owner)")),
	), listBlocksHandler(svc, defaultOwner))

	s.AddTool(mcp.NewTool("apply_plan",
		mcp.WithDescription("Commit the owner's scheduled blocks as calendar events."),
		mcp.WithString("owner", mcp.Description("Owner id (defaults to the configured owner)")),
	), applyPlanHandler(svc, defaultOwner))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func generatePlanHandler(p *planner.Planner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw := mcp.ParseString(request, "input", "")
		if strings.TrimSpace(raw) == "" {
			return mcp.NewToolResultError("input is required"), nil
		}
		in, err := model.DecodeInput(strings.NewReader(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		run := p
		if mcp.ParseBoolean(request, "local", false) {
			run = p.Local()
		}
		out, err := run.Plan(ctx, in)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		loc, err := in.Availability.Location()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var buf bytes.Buffer
		if err := model.EncodePlan(&buf, out.Plan, loc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

func planOwnerHandler(svc *planner.Service, defaultOwner string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner := mcp.ParseString(request, "owner", defaultOwner)
		generate := svc.Generate
		if mcp.ParseBoolean(request, "local", false) {
			generate = svc.GenerateLocal
		}
		report, err := generate(ctx, owner)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return reportResult(report)
	}
}

func listBlocksHandler(svc *planner.Service, defaultOwner string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner := mcp.ParseString(request, "owner", defaultOwner)
		report, err := svc.Latest(ctx, owner)
		if errors.Is(err, planner.ErrNoRun) {
			return mcp.NewToolResultText(fmt.Sprintf("Owner '%s' has no plan yet. Call 'plan_owner' first.", owner)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return reportResult(report)
	}
}

func applyPlanHandler(svc *planner.Service, defaultOwner string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner := mcp.ParseString(request, "owner", defaultOwner)
		n, err := svc.Apply(ctx, owner)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Applied %d block(s) for owner '%s'.", n, owner)), nil
	}
}

func reportResult(r planner.Report) (*mcp.CallToolResult, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	doc := ReportDoc{
		RunID: r.RunID,
		Owner: r.Owner,
		Model: r.Model,
		Plan:  model.PlanDocFrom(r.Plan, loc),
	}
	if !r.CreatedAt.IsZero() {
		doc.CreatedAt = model.FormatTimestamp(r.CreatedAt, loc)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
