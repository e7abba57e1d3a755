package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/tracker"
)

// Server exposes the issue tracker as MCP tools. Mutations are recorded
// under a fixed author; the tool runs locally with filesystem access and is
// not gated by a login.
type Server struct {
	tracker *tracker.Tracker
	author  string
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(t *tracker.Tracker, author, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{tracker: t, author: author, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("tracker", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.updateStateTool())
	srv.AddTool(s.importIssuesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError turns a tracker error into a tool-level error result.
func toolError(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, tracker.ErrInvalid):
		return mcp.NewToolResultError(fmt.Sprintf("invalid input: %v", err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
	}
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// tracker_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_list_issues",
		mcp.WithDescription("List issues, most recent first. Returns a JSON array; each issue has id, date, category, subject, description, state, author, comments and attachment."),
		mcp.WithString("state", mcp.Description("State filter: new, in_process, review, done")),
		mcp.WithString("category", mcp.Description("Category filter: bug, feature, support, improvement")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := tracker.Filter{
		State:    models.State(request.GetString("state", "")),
		Category: models.Category(request.GetString("category", "")),
	}
	if f.State != "" && !f.State.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown state: %s", f.State)), nil
	}
	if f.Category != "" && !f.Category.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category: %s", f.Category)), nil
	}

	issues, err := s.tracker.ListIssues(ctx, f)
	if err != nil {
		return toolError("list issues", err), nil
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	return jsonResult(issues)
}

// tracker_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_get_issue",
		mcp.WithDescription("Get one issue with its comments as JSON."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	issue, err := s.tracker.GetIssue(ctx, id)
	if err != nil {
		return toolError("get issue", err), nil
	}
	return jsonResult(issue)
}

// tracker_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_create_issue",
		mcp.WithDescription("Create a new issue in state \"new\". Returns the created issue as JSON."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category: bug, feature, support, improvement")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Short subject line")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Full description")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: category"), nil
	}
	subject, err := request.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: subject"), nil
	}
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}

	issue, err := s.tracker.CreateIssue(ctx, tracker.NewIssue{
		Category:    models.Category(category),
		Subject:     subject,
		Description: description,
		Author:      s.author,
	})
	if err != nil {
		return toolError("create issue", err), nil
	}
	return jsonResult(issue)
}

// tracker_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_add_comment",
		mcp.WithDescription("Append a comment to an issue. Returns the new comment as JSON."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("comment", mcp.Required(), mcp.Description("Comment text")),
	)
	return tool, s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	body, err := request.RequireString("comment")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: comment"), nil
	}

	comment, err := s.tracker.AddComment(ctx, id, tracker.NewComment{Body: body, Author: s.author})
	if err != nil {
		return toolError("add comment", err), nil
	}
	return jsonResult(comment)
}

// tracker_update_state
func (s *Server) updateStateTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_update_state",
		mcp.WithDescription("Set the state of an issue. Any state may follow any other. Returns the updated issue as JSON."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("state", mcp.Required(), mcp.Description("New state: new, in_process, review, done")),
	)
	return tool, s.handleUpdateState
}

func (s *Server) handleUpdateState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	state, err := request.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: state"), nil
	}

	if err := s.tracker.UpdateState(ctx, id, models.State(state)); err != nil {
		return toolError("update state", err), nil
	}
	issue, err := s.tracker.GetIssue(ctx, id)
	if err != nil {
		return toolError("get issue", err), nil
	}
	return jsonResult(issue)
}

// tracker_import_issues
func (s *Server) importIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_import_issues",
		mcp.WithDescription("Bulk-create issues from text, one per line as \"subject;description\". Lines with an empty subject are reported and skipped. Returns the number imported, the new ids and per-line errors."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Lines of subject;description")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category for every imported issue: bug, feature, support, improvement")),
	)
	return tool, s.handleImportIssues
}

func (s *Server) handleImportIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}
	category, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: category"), nil
	}

	res, err := s.tracker.ImportIssues(ctx, text, models.Category(category), s.author)
	if err != nil {
		return toolError("import issues", err), nil
	}

	ids := make([]int, len(res.Imported))
	for i, issue := range res.Imported {
		ids[i] = issue.ID
	}
	errs := res.Errors
	if errs == nil {
		errs = []tracker.LineError{}
	}
	return jsonResult(map[string]any{
		"imported": res.Count(),
		"ids":      ids,
		"errors":   errs,
	})
}
