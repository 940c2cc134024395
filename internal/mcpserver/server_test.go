package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/filterservice"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/testutil"
	"github.com/starford/ansuz/internal/vault"
)

func testServer(t *testing.T) (*Server, string, *vault.Snapshot) {
	t.Helper()

	vaultDir, prov := testutil.TestVault(t)
	snap := vault.NewSnapshot(prov)
	if _, err := snap.Reload(); err != nil {
		t.Fatal(err)
	}

	reg := registry.NewDefault()
	svc := filterservice.NewService(testutil.TestStore(t), reg)
	return New(svc, reg, snap), vaultDir, snap
}

// callTool invokes a tool handler directly; mcp-go has no in-process call
// helper.
func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "list_filter_types":
		result, err = srv.listFilterTypes(ctx, req)
	case "validate_filter":
		result, err = srv.validateFilter(ctx, req)
	case "save_filter":
		result, err = srv.saveFilter(ctx, req)
	case "list_filters":
		result, err = srv.listFilters(ctx, req)
	case "evaluate_filter":
		result, err = srv.evaluateFilter(ctx, req)
	case "get_filter_contract":
		result, err = srv.getFilterContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListFilterTypes(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "list_filter_types", map[string]interface{}{})
	text := resultText(r)
	for _, typ := range []string{"TAG", "DATE_RANGE", "CONTENT", "COMPOSITE"} {
		if !strings.Contains(text, typ) {
			t.Errorf("missing %s in %q", typ, text)
		}
	}
}

func TestValidateFilterTool(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "validate_filter", map[string]interface{}{
		"config": `{"type":"TAG","tags":["work"]}`,
	})
	if !strings.Contains(resultText(r), `"isValid": true`) {
		t.Errorf("valid config result = %q", resultText(r))
	}

	r = callTool(t, srv, "validate_filter", map[string]interface{}{
		"config": `{"type":"TAG"}`,
	})
	if !strings.Contains(resultText(r), `"isValid": false`) {
		t.Errorf("invalid config result = %q", resultText(r))
	}

	r = callTool(t, srv, "validate_filter", map[string]interface{}{
		"config": `not json`,
	})
	if !r.IsError {
		t.Error("malformed JSON should be a tool error")
	}
}

func TestSaveAndListFilters(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "save_filter", map[string]interface{}{
		"name":   "work stuff",
		"config": `{"type":"TAG","tags":["work"]}`,
	})
	if r.IsError || !strings.Contains(resultText(r), "saved: work stuff") {
		t.Fatalf("save result = %q", resultText(r))
	}

	r = callTool(t, srv, "list_filters", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "work stuff") {
		t.Errorf("list missing saved filter: %q", text)
	}
	if !strings.Contains(text, "(preset)") {
		t.Errorf("list missing presets: %q", text)
	}
}

func TestSaveFilter_InvalidConfig(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "save_filter", map[string]interface{}{
		"name":   "bad",
		"config": `{"type":"TAG"}`,
	})
	if !r.IsError {
		t.Error("invalid config should be a tool error")
	}
}

func TestEvaluateFilterTool(t *testing.T) {
	srv, vaultDir, snap := testServer(t)
	testutil.WriteNote(t, vaultDir, "a.md", "---\ntitle: Plan\ntags:\n  - work\n---\nbody")
	testutil.WriteNote(t, vaultDir, "b.md", "---\ntitle: Other\ntags:\n  - home\n---\nbody")
	if _, err := snap.Reload(); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "evaluate_filter", map[string]interface{}{
		"config": `{"type":"TAG","tags":["work"]}`,
	})
	text := resultText(r)
	if !strings.Contains(text, "a.md") || strings.Contains(text, "b.md") {
		t.Errorf("evaluate result = %q, want only a.md", text)
	}

	// Selecting by both id and config is rejected.
	r = callTool(t, srv, "evaluate_filter", map[string]interface{}{
		"id":     "x",
		"config": `{"type":"TAG","tags":["work"]}`,
	})
	if !r.IsError {
		t.Error("both selectors should be a tool error")
	}
}

func TestEvaluateFilter_PresetID(t *testing.T) {
	srv, vaultDir, snap := testServer(t)
	testutil.WriteNote(t, vaultDir, "now.md", "# Fresh\nbody")
	if _, err := snap.Reload(); err != nil {
		t.Fatal(err)
	}

	// The file was just created, so its mtime falls in the last 7 days.
	r := callTool(t, srv, "evaluate_filter", map[string]interface{}{
		"id": filterservice.PresetPrefix + "recent",
	})
	if r.IsError || !strings.Contains(resultText(r), "now.md") {
		t.Errorf("preset evaluate result = %q", resultText(r))
	}
}

func TestGetFilterContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_filter_contract", map[string]interface{}{})
	text := resultText(r)
	for _, want := range []string{"TAG", "COMPOSITE", "MATCHES_REGEX"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}
