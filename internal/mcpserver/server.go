// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz post tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/keywords"
	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp       *server.MCPServer
	store     storage.Provider
	db        *index.DB
	svc       *postservice.Service
	suggester *keywords.Suggester
	loc       *time.Location
}

// New creates a new MCP server with all Ansuz tools registered. loc is the
// timezone applied to posts generated without an explicit date; nil means
// time.Local.
func New(store storage.Provider, db *index.DB, svc *postservice.Service, suggester *keywords.Suggester, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{store: store, db: db, svc: svc, suggester: suggester, loc: loc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_post",
		mcp.WithDescription("Generate a new Jekyll post from front matter fields. "+
			"The filename is derived from the date and title; the body starts empty. "+
			"Read the contract first via the get_post_contract tool or the "+
			"ansuz://post-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title (drives the filename slug)")),
		mcp.WithString("date", mcp.Description("Post date (e.g. 2024-3-2 09:00:00 +0800); empty means now")),
		mcp.WithString("main_category", mcp.Description("Main category")),
		mcp.WithString("sub_category", mcp.Description("Sub category")),
		mcp.WithString("tags", mcp.Description("Space-separated tags")),
		mcp.WithString("author", mcp.Description("Author id from _data/authors.yml")),
		mcp.WithString("description", mcp.Description("Short post description")),
	), s.generatePost)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the full content of a Markdown post."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the post (e.g. _posts/2024-01-15-hello.md)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts, optionally filtered by category or tag."),
		mcp.WithString("category", mcp.Description("Optional category filter")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles, bodies, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("suggest_tags",
		mcp.WithDescription("Suggest tag keywords for post body text via the keyword extraction API."),
		mcp.WithString("body", mcp.Required(), mcp.Description("Post body text to analyze")),
	), s.suggestTags)

	s.mcp.AddTool(mcp.NewTool("get_post_contract",
		mcp.WithDescription("Returns the canonical Ansuz post format contract. "+
			"Call this before generating or updating posts to ensure correct structure."),
	), s.getPostContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Upload an image asset from an HTTP(S) URL or base64 data URI "+
			"into assets/img. Returns a markdownImage field ready to paste into a post body."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: post format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://post-format", "Post Format Contract",
			mcp.WithResourceDescription("Canonical Jekyll post format that all posts must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
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

func (s *Server) generatePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	optional := func(key string) string {
		if v, vErr := req.RequireString(key); vErr == nil {
			return v
		}
		return ""
	}

	f := frontmatter.Fields{
		Title:        title,
		MainCategory: optional("main_category"),
		SubCategory:  optional("sub_category"),
		Tags:         frontmatter.SplitTags(optional("tags")),
		Author:       optional("author"),
		Description:  optional("description"),
	}
	if raw := optional("date"); raw != "" {
		t, ok := frontmatter.ParseDate(raw)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unrecognized date: %s", raw)), nil
		}
		f.Date = t
	} else {
		f.Date = time.Now().In(s.loc)
	}

	detail, err := s.svc.Generate(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", detail.Path)), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	optional := func(key string) string {
		if v, err := req.RequireString(key); err == nil {
			return v
		}
		return ""
	}

	items, _, err := s.svc.List(ctx, 0, 0, optional("category"), optional("tag"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) suggestTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kws, err := s.suggester.Suggest(ctx, body, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(kws)
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPostContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://post-format",
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}
