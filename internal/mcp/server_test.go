package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *tracker.Tracker) {
	t.Helper()
	s, err := store.NewJSONStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	tr := tracker.New(s)
	return NewServer(tr, "admin", "test"), tr
}

func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func seedIssue(t *testing.T, tr *tracker.Tracker, subject string, c models.Category) *models.Issue {
	t.Helper()
	issue, err := tr.CreateIssue(context.Background(), tracker.NewIssue{
		Category:    c,
		Subject:     subject,
		Description: subject + " description",
		Author:      "seed",
	})
	require.NoError(t, err)
	return issue
}

// ---------------------------------------------------------------------------
// Tests: tracker_list_issues
// ---------------------------------------------------------------------------

func TestHandleListIssues_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListIssues(context.Background(), callToolReq("tracker_list_issues", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleListIssues_Filters(t *testing.T) {
	srv, tr := newTestServer(t)
	ctx := context.Background()
	seedIssue(t, tr, "crash", models.CategoryBug)
	seedIssue(t, tr, "dark mode", models.CategoryFeature)
	require.NoError(t, tr.UpdateState(ctx, 1, models.StateDone))

	var all []models.Issue
	result, err := srv.handleListIssues(ctx, callToolReq("tracker_list_issues", nil))
	require.NoError(t, err)
	resultJSON(t, result, &all)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].ID, "most recent first")

	var done []models.Issue
	result, err = srv.handleListIssues(ctx, callToolReq("tracker_list_issues", map[string]any{"state": "done"}))
	require.NoError(t, err)
	resultJSON(t, result, &done)
	require.Len(t, done, 1)
	assert.Equal(t, "crash", done[0].Subject)

	var features []models.Issue
	result, err = srv.handleListIssues(ctx, callToolReq("tracker_list_issues", map[string]any{"category": "feature"}))
	require.NoError(t, err)
	resultJSON(t, result, &features)
	require.Len(t, features, 1)
	assert.Equal(t, "dark mode", features[0].Subject)
}

func TestHandleListIssues_BadFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	result, err := srv.handleListIssues(context.Background(), callToolReq("tracker_list_issues", map[string]any{"state": "closed"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown state")
}

// ---------------------------------------------------------------------------
// Tests: tracker_get_issue
// ---------------------------------------------------------------------------

func TestHandleGetIssue(t *testing.T) {
	srv, tr := newTestServer(t)
	seedIssue(t, tr, "login broken", models.CategoryBug)

	result, err := srv.handleGetIssue(context.Background(), callToolReq("tracker_get_issue", map[string]any{"id": float64(1)}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var issue models.Issue
	resultJSON(t, result, &issue)
	assert.Equal(t, "login broken", issue.Subject)
	assert.Equal(t, models.StateNew, issue.State)
}

func TestHandleGetIssue_NotFoundAndMissingArg(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleGetIssue(ctx, callToolReq("tracker_get_issue", map[string]any{"id": float64(9)}))
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")

	result, err = srv.handleGetIssue(ctx, callToolReq("tracker_get_issue", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required parameter: id")
}

// ---------------------------------------------------------------------------
// Tests: tracker_create_issue
// ---------------------------------------------------------------------------

func TestHandleCreateIssue(t *testing.T) {
	srv, tr := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleCreateIssue(ctx, callToolReq("tracker_create_issue", map[string]any{
		"category":    "support",
		"subject":     "  VPN access  ",
		"description": "need access for new hire",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var created models.Issue
	resultJSON(t, result, &created)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "VPN access", created.Subject)
	assert.Equal(t, "admin", created.Author, "mutations use the configured author")

	got, err := tr.GetIssue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySupport, got.Category)
}

func TestHandleCreateIssue_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing subject", map[string]any{"category": "bug", "description": "d"}, "missing required parameter: subject"},
		{"bad category", map[string]any{"category": "chore", "subject": "s", "description": "d"}, "invalid input"},
		{"blank description", map[string]any{"category": "bug", "subject": "s", "description": "  "}, "description is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleCreateIssue(ctx, callToolReq("tracker_create_issue", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Tests: tracker_add_comment and tracker_update_state
// ---------------------------------------------------------------------------

func TestHandleAddComment(t *testing.T) {
	srv, tr := newTestServer(t)
	ctx := context.Background()
	seedIssue(t, tr, "slow page", models.CategoryImprovement)

	result, err := srv.handleAddComment(ctx, callToolReq("tracker_add_comment", map[string]any{"id": float64(1), "comment": "profiled it"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	issue, err := tr.GetIssue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, issue.Comments, 1)
	assert.Equal(t, "profiled it", issue.Comments[0].Body)
	assert.Equal(t, "admin", issue.Comments[0].Author)

	result, err = srv.handleAddComment(ctx, callToolReq("tracker_add_comment", map[string]any{"id": float64(5), "comment": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleUpdateState(t *testing.T) {
	srv, tr := newTestServer(t)
	ctx := context.Background()
	seedIssue(t, tr, "deploy", models.CategoryFeature)

	result, err := srv.handleUpdateState(ctx, callToolReq("tracker_update_state", map[string]any{"id": float64(1), "state": "review"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	var issue models.Issue
	resultJSON(t, result, &issue)
	assert.Equal(t, models.StateReview, issue.State)

	result, err = srv.handleUpdateState(ctx, callToolReq("tracker_update_state", map[string]any{"id": float64(1), "state": "closed"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleUpdateState(ctx, callToolReq("tracker_update_state", map[string]any{"id": float64(2), "state": "done"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

// ---------------------------------------------------------------------------
// Tests: tracker_import_issues
// ---------------------------------------------------------------------------

func TestHandleImportIssues(t *testing.T) {
	srv, tr := newTestServer(t)
	ctx := context.Background()
	seedIssue(t, tr, "existing", models.CategoryBug)

	result, err := srv.handleImportIssues(ctx, callToolReq("tracker_import_issues", map[string]any{
		"text":     "Fix bug;desc\nNo semicolon line\n;empty subject\n",
		"category": "bug",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out struct {
		Imported int                 `json:"imported"`
		IDs      []int               `json:"ids"`
		Errors   []tracker.LineError `json:"errors"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, 2, out.Imported)
	assert.Equal(t, []int{2, 3}, out.IDs)
	assert.Equal(t, []tracker.LineError{{Line: 3, Reason: "empty subject"}}, out.Errors)
}

func TestHandleImportIssues_BadCategory(t *testing.T) {
	srv, _ := newTestServer(t)
	result, err := srv.handleImportIssues(context.Background(), callToolReq("tracker_import_issues", map[string]any{
		"text": "a", "category": "chore",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// ---------------------------------------------------------------------------
// Tests: Integration -- verify all tools are registered via HandleMessage
// ---------------------------------------------------------------------------

func TestMCPIntegration_ListTools(t *testing.T) {
	srv, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv)

	ctx := context.Background()
	reqJSON := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	respMsg := mcpSrv.HandleMessage(ctx, reqJSON)
	require.NotNil(t, respMsg)

	respBytes, err := json.Marshal(respMsg)
	require.NoError(t, err)

	var rpcResp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpcResp))

	toolNames := make(map[string]bool)
	for _, tool := range rpcResp.Result.Tools {
		toolNames[tool.Name] = true
	}
	for _, name := range []string{
		"tracker_list_issues",
		"tracker_get_issue",
		"tracker_create_issue",
		"tracker_add_comment",
		"tracker_update_state",
		"tracker_import_issues",
	} {
		assert.True(t, toolNames[name], "expected tool %q to be registered", name)
	}
}

func TestMCPIntegration_CallTool(t *testing.T) {
	srv, tr := newTestServer(t)
	seedIssue(t, tr, "via rpc", models.CategoryBug)
	mcpSrv := srv.MCPServer()

	reqJSON := []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"tracker_get_issue","arguments":{"id":1}}}`)
	respMsg := mcpSrv.HandleMessage(context.Background(), reqJSON)
	respBytes, err := json.Marshal(respMsg)
	require.NoError(t, err)
	assert.Contains(t, string(respBytes), "via rpc")
}
