// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz filter tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/filter"
	"github.com/starford/ansuz/internal/filterservice"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/vault"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp  *server.MCPServer
	svc  *filterservice.Service
	reg  *registry.Registry
	snap *vault.Snapshot
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *filterservice.Service, reg *registry.Registry, snap *vault.Snapshot) *Server {
	s := &Server{svc: svc, reg: reg, snap: snap}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_filter_types",
		mcp.WithDescription("List the registered filter types with their metadata and example configs."),
	), s.listFilterTypes)

	s.mcp.AddTool(mcp.NewTool("validate_filter",
		mcp.WithDescription("Validate a filter config JSON object without saving it. "+
			"Returns errors and nesting-depth warnings. Read the config format first via "+
			"the get_filter_contract tool or the ansuz://filter-format resource."),
		mcp.WithString("config", mcp.Required(), mcp.Description("Filter config as a JSON object string")),
	), s.validateFilter)

	s.mcp.AddTool(mcp.NewTool("save_filter",
		mcp.WithDescription("Validate and save a named filter config. "+
			"Config MUST follow the canonical filter format; see get_filter_contract."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name for the saved filter")),
		mcp.WithString("description", mcp.Description("Optional description")),
		mcp.WithString("config", mcp.Required(), mcp.Description("Filter config as a JSON object string")),
	), s.saveFilter)

	s.mcp.AddTool(mcp.NewTool("list_filters",
		mcp.WithDescription("List all saved filters, built-in presets included."),
	), s.listFilters)

	s.mcp.AddTool(mcp.NewTool("evaluate_filter",
		mcp.WithDescription("Evaluate a filter over the current note vault and return the matching notes. "+
			"Give either the id of a saved filter (preset: ids work) or an inline config JSON object."),
		mcp.WithString("id", mcp.Description("Id of a saved filter to evaluate")),
		mcp.WithString("config", mcp.Description("Inline filter config as a JSON object string")),
	), s.evaluateFilter)

	s.mcp.AddTool(mcp.NewTool("get_filter_contract",
		mcp.WithDescription("Returns the canonical Ansuz filter config format contract. "+
			"Call this before building or saving filter configs."),
	), s.getFilterContract)

	// Resource: filter config format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://filter-format", "Filter Config Contract",
			mcp.WithResourceDescription("Canonical filter config JSON format that all filters must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFilterFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func parseConfigArg(raw string) (filter.Config, error) {
	var cfg filter.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("config is not a JSON object: %w", err)
	}
	return cfg, nil
}

func (s *Server) listFilterTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type typeInfo struct {
		Type        string        `json:"type"`
		DisplayName string        `json:"displayName,omitempty"`
		Description string        `json:"description,omitempty"`
		Category    string        `json:"category,omitempty"`
		Example     filter.Config `json:"example,omitempty"`
	}
	var infos []typeInfo
	for _, typ := range s.reg.Types() {
		info := typeInfo{Type: typ}
		if meta, ok := s.reg.MetadataFor(typ); ok {
			info.DisplayName = meta.DisplayName
			info.Description = meta.Description
			info.Category = meta.Category
			info.Example = meta.Example
		}
		infos = append(infos, info)
	}
	out, _ := json.MarshalIndent(infos, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateFilter(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, err := parseConfigArg(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.ValidateFilterConfig(cfg)
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveFilter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := ""
	if d, err := req.RequireString("description"); err == nil {
		description = d
	}
	cfg, err := parseConfigArg(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	saved, err := s.svc.SaveFilter(ctx, name, description, cfg, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%s)", saved.Metadata.Name, saved.Metadata.ID)), nil
}

func (s *Server) listFilters(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, err := s.svc.ListFilters(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, f := range filters {
		line := fmt.Sprintf("%s\t%s", f.Metadata.ID, f.Metadata.Name)
		if f.Metadata.IsPreset {
			line += "\t(preset)"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no saved filters"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) evaluateFilter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, idErr := req.RequireString("id")
	raw, cfgErr := req.RequireString("config")
	if (idErr == nil) == (cfgErr == nil) {
		return mcp.NewToolResultError("give exactly one of id or config"), nil
	}

	var cfg filter.Config
	if idErr == nil {
		saved, err := s.svc.GetFilter(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg = saved.Config
	} else {
		var err error
		cfg, err = parseConfigArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	matched, err := s.svc.EvaluateConfig(cfg, s.snap.Notes())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(matched) == 0 {
		return mcp.NewToolResultText("no matching notes"), nil
	}
	var lines []string
	for _, n := range matched {
		lines = append(lines, fmt.Sprintf("%s\t%s", n.ID, n.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getFilterContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FilterFormatContract), nil
}

func (s *Server) readFilterFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://filter-format",
			MIMEType: "text/markdown",
			Text:     FilterFormatContract,
		},
	}, nil
}
