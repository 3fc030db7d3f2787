// Ceterach MCP Server - A Model Context Protocol server exposing a
// MediaWiki wiki through lazy page, category, user, and revision tools.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Riamse/ceterach/mediawiki"
	"github.com/Riamse/ceterach/tracing"
)

const (
	ServerName    = "ceterach-mcp"
	ServerVersion = "1.0.0"
)

// recoverPanic wraps a handler with panic recovery so a bad response shape
// cannot take the whole server down
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

func main() {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	config, err := mediawiki.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdown, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	client := mediawiki.NewClient(config, logger)
	if config.HasCredentials() {
		ok, err := client.Login(ctx, config.Username, config.Password)
		if err != nil || !ok {
			logger.Warn("Login failed, continuing anonymously", "error", err)
		}
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger: logger,
		Instructions: `Ceterach MCP Server provides tools for interacting with a MediaWiki wiki.

Available tools:
- wiki_get_page: Get a page's wikitext and metadata
- wiki_edit_page: Create or edit a page (requires authentication)
- wiki_category_members: Get pages and subcategories in a category
- wiki_user_info: Get information about a user
- wiki_revision: Get one revision of a page
- wiki_expand_templates: Expand templates in wikitext

Configure via environment variables:
- MEDIAWIKI_URL: Wiki API URL (e.g., https://wiki.example.com/api.php)
- MEDIAWIKI_USERNAME: Bot username (for editing)
- MEDIAWIKI_PASSWORD: Bot password (for editing)`,
	})

	registerTools(server, client, logger)

	logger.Info("Starting Ceterach MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"wiki_url", config.BaseURL,
	)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

type GetPageArgs struct {
	Title           string `json:"title" jsonschema:"required,description=Page title to retrieve"`
	FollowRedirects bool   `json:"follow_redirects,omitempty" jsonschema:"description=Follow a redirect to its target page"`
}

type PageResult struct {
	Title      string `json:"title"`
	PageID     int    `json:"page_id"`
	Exists     bool   `json:"exists"`
	Content    string `json:"content,omitempty"`
	RevisionID int    `json:"revision_id,omitempty"`
	Namespace  int    `json:"namespace"`
	IsRedirect bool   `json:"is_redirect"`
	LastEditor string `json:"last_editor,omitempty"`
}

type EditPageArgs struct {
	Title   string `json:"title" jsonschema:"required,description=Page title to edit"`
	Content string `json:"content" jsonschema:"required,description=New wikitext content"`
	Summary string `json:"summary,omitempty" jsonschema:"description=Edit summary"`
	Minor   bool   `json:"minor,omitempty" jsonschema:"description=Mark the edit as minor"`
	Bot     bool   `json:"bot,omitempty" jsonschema:"description=Mark the edit as a bot edit"`
	Create  bool   `json:"create,omitempty" jsonschema:"description=Create the page; fails if it already exists"`
}

type EditResult struct {
	Title      string `json:"title"`
	RevisionID int    `json:"revision_id,omitempty"`
	Success    bool   `json:"success"`
}

type CategoryMembersArgs struct {
	Category string `json:"category" jsonschema:"required,description=Category name with or without the Category: prefix"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Maximum members to return (default all)"`
}

type CategoryMembersResult struct {
	Category      string   `json:"category"`
	Members       []string `json:"members"`
	Subcategories []string `json:"subcategories"`
}

type UserInfoArgs struct {
	Name string `json:"name" jsonschema:"required,description=User name or IP address"`
}

type UserInfoResult struct {
	Name         string   `json:"name"`
	Exists       bool     `json:"exists"`
	IsIP         bool     `json:"is_ip"`
	UserID       int      `json:"user_id,omitempty"`
	EditCount    int      `json:"edit_count,omitempty"`
	Groups       []string `json:"groups,omitempty"`
	Registration string   `json:"registration,omitempty"`
	Blocked      bool     `json:"blocked"`
	BlockReason  string   `json:"block_reason,omitempty"`
}

type RevisionArgs struct {
	RevisionID int `json:"revision_id" jsonschema:"required,description=Revision id to retrieve"`
}

type RevisionResult struct {
	RevisionID int    `json:"revision_id"`
	Summary    string `json:"summary"`
	Timestamp  string `json:"timestamp"`
	Editor     string `json:"editor,omitempty"`
	Minor      bool   `json:"minor"`
	Content    string `json:"content,omitempty"`
	Deleted    bool   `json:"deleted"`
}

type ExpandTemplatesArgs struct {
	Text  string `json:"text" jsonschema:"required,description=Wikitext to expand"`
	Title string `json:"title,omitempty" jsonschema:"description=Title used for page-relative magic words"`
}

type ExpandTemplatesResult struct {
	Expanded string `json:"expanded"`
}

func registerTools(server *mcp.Server, client *mediawiki.Client, logger *slog.Logger) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_get_page",
		Description: "Retrieve a wiki page's wikitext content and metadata. Missing pages come back with exists=false.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Get Page",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetPageArgs) (*mcp.CallToolResult, PageResult, error) {
		defer recoverPanic(logger, "get_page")
		page, err := client.Page(mediawiki.PageRef{Title: args.Title, FollowRedirects: args.FollowRedirects})
		if err != nil {
			return nil, PageResult{}, err
		}
		exists, err := page.Exists(ctx)
		if err != nil {
			return nil, PageResult{}, fmt.Errorf("failed to get page: %w", err)
		}
		result := PageResult{Title: page.Title(), PageID: page.ID(), Exists: exists}
		if exists {
			result.Content, _ = page.Content(ctx)
			result.RevisionID, _ = page.RevID(ctx)
			result.Namespace, _ = page.Namespace(ctx)
			result.IsRedirect, _ = page.IsRedirect(ctx)
			if editor, err := page.LastEditor(ctx); err == nil && editor != nil {
				result.LastEditor = editor.Name()
			}
		}
		logger.Info("Tool executed",
			"tool", "wiki_get_page",
			"title", args.Title,
			"exists", exists,
			"output_chars", len(result.Content),
		)
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_edit_page",
		Description: "Create or update wiki page content. WARNING: Overwrites existing content. Requires MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD environment variables.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Edit Page",
			ReadOnlyHint:    false,
			DestructiveHint: ptr(true),
			IdempotentHint:  false,
			OpenWorldHint:   ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args EditPageArgs) (*mcp.CallToolResult, EditResult, error) {
		defer recoverPanic(logger, "edit_page")
		page, err := client.Page(mediawiki.PageRef{Title: args.Title})
		if err != nil {
			return nil, EditResult{}, err
		}
		opts := mediawiki.EditOptions{Summary: args.Summary, Minor: args.Minor, Bot: args.Bot}
		if args.Create {
			err = page.Create(ctx, args.Content, opts)
		} else {
			err = page.Edit(ctx, args.Content, opts)
		}
		if err != nil {
			return nil, EditResult{}, fmt.Errorf("failed to edit page: %w", err)
		}
		revID, _ := page.RevID(ctx)
		logger.Info("Tool executed",
			"tool", "wiki_edit_page",
			"title", args.Title,
			"input_chars", len(args.Content),
			"revision_id", revID,
		)
		return nil, EditResult{Title: page.Title(), RevisionID: revID, Success: true}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_category_members",
		Description: "Get the pages and subcategories that belong to a category.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Get Category Members",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CategoryMembersArgs) (*mcp.CallToolResult, CategoryMembersResult, error) {
		defer recoverPanic(logger, "category_members")
		cat, err := client.Category(mediawiki.PageRef{Title: args.Category})
		if err != nil {
			return nil, CategoryMembersResult{}, err
		}
		if err := cat.Populate(ctx, args.Limit); err != nil {
			return nil, CategoryMembersResult{}, fmt.Errorf("failed to get category members: %w", err)
		}
		members, _ := cat.Members(ctx)
		subcats, _ := cat.Subcategories(ctx)
		result := CategoryMembersResult{Category: cat.Title()}
		for _, m := range members {
			result.Members = append(result.Members, m.Title())
		}
		for _, s := range subcats {
			result.Subcategories = append(result.Subcategories, s.Title())
		}
		logger.Info("Tool executed",
			"tool", "wiki_category_members",
			"category", args.Category,
			"members_returned", len(result.Members),
			"subcategories_returned", len(result.Subcategories),
		)
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_user_info",
		Description: "Get information about a wiki user: groups, edit count, registration, and any active block.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Get User Info",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args UserInfoArgs) (*mcp.CallToolResult, UserInfoResult, error) {
		defer recoverPanic(logger, "user_info")
		user := client.User(args.Name)
		exists, err := user.Exists(ctx)
		if err != nil {
			return nil, UserInfoResult{}, fmt.Errorf("failed to get user info: %w", err)
		}
		result := UserInfoResult{Name: user.Name(), Exists: exists, IsIP: user.IsIP()}
		if exists {
			result.UserID, _ = user.ID(ctx)
			result.EditCount, _ = user.EditCount(ctx)
			result.Groups, _ = user.Groups(ctx)
			if reg, err := user.Registration(ctx); err == nil && !reg.IsZero() {
				result.Registration = reg.Format(time.RFC3339)
			}
			if block, err := user.Block(ctx); err == nil && block != nil {
				result.Blocked = true
				result.BlockReason = block.Reason
			}
		}
		logger.Info("Tool executed",
			"tool", "wiki_user_info",
			"user", args.Name,
			"exists", exists,
		)
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_revision",
		Description: "Get one revision of a page by revision id, including its content unless it was admin-deleted.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Get Revision",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RevisionArgs) (*mcp.CallToolResult, RevisionResult, error) {
		defer recoverPanic(logger, "revision")
		rev := client.Revision(args.RevisionID)
		summary, err := rev.Summary(ctx)
		if err != nil {
			return nil, RevisionResult{}, fmt.Errorf("failed to get revision: %w", err)
		}
		result := RevisionResult{RevisionID: rev.ID(), Summary: summary}
		if ts, err := rev.Timestamp(ctx); err == nil {
			result.Timestamp = ts.Format(time.RFC3339)
		}
		if editor, err := rev.Editor(ctx); err == nil && editor != nil {
			result.Editor = editor.Name()
		}
		result.Minor, _ = rev.IsMinor(ctx)
		result.Content, _ = rev.Content(ctx)
		result.Deleted, _ = rev.IsDeleted(ctx)
		logger.Info("Tool executed",
			"tool", "wiki_revision",
			"revision_id", args.RevisionID,
			"deleted", result.Deleted,
		)
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_expand_templates",
		Description: "Expand templates and magic words in wikitext without saving anything.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Expand Templates",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExpandTemplatesArgs) (*mcp.CallToolResult, ExpandTemplatesResult, error) {
		defer recoverPanic(logger, "expand_templates")
		expanded, err := client.ExpandTemplates(ctx, args.Title, args.Text, false)
		if err != nil {
			return nil, ExpandTemplatesResult{}, fmt.Errorf("failed to expand templates: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "wiki_expand_templates",
			"input_chars", len(args.Text),
			"output_chars", len(expanded),
		)
		return nil, ExpandTemplatesResult{Expanded: expanded}, nil
	})
}

func ptr[T any](v T) *T {
	return &v
}
