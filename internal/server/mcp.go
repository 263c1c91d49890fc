package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverInstructions = `GitSmart exposes git operations on registered repositories.
Every repository tool takes repo_name, the registered name or alias of the repository.
Stage files before calling generate_commit_and_commit.`

// NewMCPServer registers the remote tools on an MCP server
func NewMCPServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"GitSmart",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	repoName := mcp.WithString("repo_name",
		mcp.Required(),
		mcp.Description("Registered name or alias of the git repository"),
	)
	files := func(desc string) mcp.ToolOption {
		return mcp.WithArray("files",
			mcp.Required(),
			mcp.Description(desc),
			mcp.WithStringItems(),
		)
	}

	s.AddTool(mcp.NewTool("stage_file",
		mcp.WithDescription("Stage one or more files for commit in a repository"),
		files("File paths to stage, relative to the repository root"),
		repoName,
	), h.stageTool)

	s.AddTool(mcp.NewTool("unstage_file",
		mcp.WithDescription("Remove one or more files from the staging area of a repository"),
		files("File paths to unstage, relative to the repository root"),
		repoName,
	), h.unstageTool)

	s.AddTool(mcp.NewTool("generate_commit_and_commit",
		mcp.WithDescription("Generate an AI commit message for the staged changes and commit them"),
		repoName,
		mcp.WithString("custom_message",
			mcp.Description("Commit message to use instead of a generated one"),
		),
	), h.commitTool)

	s.AddTool(mcp.NewTool("add_files",
		mcp.WithDescription("Add untracked files to a repository"),
		files("Untracked file paths to add, relative to the repository root"),
		repoName,
	), h.addTool)

	s.AddTool(mcp.NewTool("list_repositories",
		mcp.WithDescription("List all registered repositories"),
	), h.listTool)

	s.AddTool(mcp.NewTool("switch_repository",
		mcp.WithDescription("Make a registered repository the current one"),
		repoName,
	), h.switchTool)

	s.AddTool(mcp.NewTool("get_repository_status",
		mcp.WithDescription("Get branch and staged/unstaged changes of a repository"),
		repoName,
	), h.statusTool)

	return s
}

func (h *Handlers) stageTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.Stage(ctx, req.GetString("repo_name", ""), req.GetStringSlice("files", nil)))
}

func (h *Handlers) unstageTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.Unstage(ctx, req.GetString("repo_name", ""), req.GetStringSlice("files", nil)))
}

func (h *Handlers) commitTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.Commit(ctx, req.GetString("repo_name", ""), req.GetString("custom_message", "")))
}

func (h *Handlers) addTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.Add(ctx, req.GetString("repo_name", ""), req.GetStringSlice("files", nil)))
}

func (h *Handlers) listTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.Repositories(ctx)
	if err != nil {
		return jsonResult(failure(err))
	}
	return jsonResult(map[string][]string{"repositories": names})
}

func (h *Handlers) switchTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.Switch(ctx, req.GetString("repo_name", "")))
}

func (h *Handlers) statusTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.Status(ctx, req.GetString("repo_name", ""))
	if err != nil {
		return jsonResult(failure(err))
	}
	return jsonResult(status)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
