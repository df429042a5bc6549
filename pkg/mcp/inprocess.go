package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/njvoter/gateway/pkg/campaigndispatch"
	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/docsvc"
	"github.com/njvoter/gateway/pkg/geocode"
	"github.com/njvoter/gateway/pkg/masking"
	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/services"
	"github.com/njvoter/gateway/pkg/warehouse"
	"github.com/njvoter/gateway/pkg/websearch"
)

// toolArguments extracts a tool call's arguments as a map.
//
// The go-sdk version pinned in go.mod constructs CallToolParams.Arguments
// from a map[string]any on the client side (pkg/mcp/client.go's CallTool).
// Nothing in this repo's prior MCP usage reads CallToolRequest.Params.Arguments
// on the server side to confirm its static type, so this helper accepts it
// as `any` and recognizes the two shapes an SDK request parameter of this
// kind plausibly takes (already a map, or JSON bytes/string to decode)
// rather than asserting one exact type.
func toolArguments(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case json.RawMessage:
		var m map[string]any
		_ = json.Unmarshal(v, &m)
		return m
	case []byte:
		var m map[string]any
		_ = json.Unmarshal(v, &m)
		return m
	case string:
		var m map[string]any
		_ = json.Unmarshal([]byte(v), &m)
		return m
	default:
		return map[string]any{}
	}
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}}}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func jsonResult(v any) *mcpsdk.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Errorf("failed to encode tool result: %w", err))
	}
	return textResult(string(b))
}

func callerUserID(args map[string]any) string {
	id, _ := args["_caller_user_id"].(string)
	return id
}

// InProcessDeps wires the concrete backends the five built-in tool servers
// (§4.G, §6) call into. Any field left nil disables that server's tools:
// CreateToolExecutor still succeeds, but a serverID with no matching deps
// contributes no sessions to the resulting Client.
type InProcessDeps struct {
	Warehouse         *warehouse.Executor
	SavedQuery        *services.SavedQueryService
	Geocode           *geocode.Client
	WebSearch         *websearch.Client
	Enrichment        *services.EnrichmentService
	Docs              *docsvc.Client
	CampaignDispatch  *campaigndispatch.Client // unused by tools directly, present so the Campaign Engine's SES client is constructed alongside the rest of the in-process wiring
}

var rawSchema = func(props string) json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{` + props + `}}`)
}

// NewInProcessClientFactory builds a ClientFactory whose Client.CreateClient
// boots one in-memory MCP server per requested serverID, backed by deps,
// instead of spawning the stdio subprocesses named in the server registry
// (grounded on pkg/mcp/testing.go's NewTestClientFactory /
// test/e2e/mcp_helpers.go's SetupInMemoryMCP pattern, with real handlers in
// place of scripted test ones).
func NewInProcessClientFactory(registry *config.MCPServerRegistry, maskingService *masking.MaskingService, deps InProcessDeps) *ClientFactory {
	builders := map[string]func() *mcpsdk.Server{
		"warehouse": func() *mcpsdk.Server { return buildWarehouseServer(deps) },
		"geocode":   func() *mcpsdk.Server { return buildGeocodeServer(deps) },
		"websearch": func() *mcpsdk.Server { return buildWebSearchServer(deps) },
		"enrichment": func() *mcpsdk.Server { return buildEnrichmentServer(deps) },
		"documents": func() *mcpsdk.Server { return buildDocumentsServer(deps) },
	}

	f := &ClientFactory{registry: registry, maskingService: maskingService}
	f.createClientFn = func(ctx context.Context, serverIDs []string) (*Client, error) {
		c := newClient(registry)
		for _, serverID := range serverIDs {
			build, ok := builders[serverID]
			if !ok {
				continue
			}
			server := build()

			clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
			serverCtx, cancel := context.WithCancel(context.Background())
			go func() {
				defer cancel()
				_ = server.Run(serverCtx, serverTransport)
			}()

			sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "gateway", Version: "1.0.0"}, nil)
			session, err := sdkClient.Connect(ctx, clientTransport, nil)
			if err != nil {
				cancel()
				return nil, fmt.Errorf("failed to connect in-process MCP server %q: %w", serverID, err)
			}
			c.InjectSession(serverID, sdkClient, session)
		}
		return c, nil
	}
	return f
}

func buildWarehouseServer(deps InProcessDeps) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "warehouse", Version: "1.0.0"}, nil)
	if deps.Warehouse == nil {
		return server
	}

	server.AddTool(&mcpsdk.Tool{
		Name:        "warehouse_select",
		Description: "Run a read-only SELECT against voter, address, and donation data. Subject to the query guard and field remapper.",
		InputSchema: rawSchema(`"sql":{"type":"string"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		sql, _ := args["sql"].(string)
		if sql == "" {
			return errorResult(fmt.Errorf("sql is required")), nil
		}
		result, errResult := deps.Warehouse.Execute(ctx, sql, warehouse.CallerContext{
			UserID:  callerUserID(args),
			Purpose: "chat_tool_call",
		})
		if errResult != nil {
			return errorResult(fmt.Errorf("%s: %s", errResult.Kind, errResult.Detail)), nil
		}
		return jsonResult(result), nil
	})

	if deps.SavedQuery != nil {
		server.AddTool(&mcpsdk.Tool{
			Name:        "save_list",
			Description: "Save a SELECT as a reusable, re-executable named list owned by the caller.",
			InputSchema: rawSchema(`"name":{"type":"string"},"sql_text":{"type":"string"},"description":{"type":"string"},"natural_language_prompt":{"type":"string"}`),
		}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args := toolArguments(req.Params.Arguments)
			name, _ := args["name"].(string)
			sqlText, _ := args["sql_text"].(string)
			description, _ := args["description"].(string)
			prompt, _ := args["natural_language_prompt"].(string)
			sq, err := deps.SavedQuery.Save(ctx, models.CreateSavedQueryRequest{
				OwnerUserID:            callerUserID(args),
				Name:                   name,
				SQLText:                sqlText,
				Description:            description,
				NaturalLanguagePrompt:  prompt,
			})
			if err != nil {
				return errorResult(err), nil
			}
			return jsonResult(sq), nil
		})
	}

	return server
}

func buildGeocodeServer(deps InProcessDeps) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "geocode", Version: "1.0.0"}, nil)
	if deps.Geocode == nil {
		return server
	}
	server.AddTool(&mcpsdk.Tool{
		Name:        "geocode",
		Description: "Resolve a street address to a latitude/longitude point and county.",
		InputSchema: rawSchema(`"address":{"type":"string"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		address, _ := args["address"].(string)
		if address == "" {
			return errorResult(fmt.Errorf("address is required")), nil
		}
		result, err := deps.Geocode.Geocode(ctx, address)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(result), nil
	})
	return server
}

func buildWebSearchServer(deps InProcessDeps) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "websearch", Version: "1.0.0"}, nil)
	if deps.WebSearch == nil {
		return server
	}
	server.AddTool(&mcpsdk.Tool{
		Name:        "web_search",
		Description: "Search the open web for information unrelated to warehouse data, such as candidate biography or election dates.",
		InputSchema: rawSchema(`"query":{"type":"string"},"n":{"type":"integer"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		query, _ := args["query"].(string)
		if query == "" {
			return errorResult(fmt.Errorf("query is required")), nil
		}
		n := 5
		if nf, ok := args["n"].(float64); ok && nf > 0 {
			n = int(nf)
		}
		hits, err := deps.WebSearch.Search(ctx, query, n)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(hits), nil
	})
	return server
}

func buildEnrichmentServer(deps InProcessDeps) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "enrichment", Version: "1.0.0"}, nil)
	if deps.Enrichment == nil {
		return server
	}

	server.AddTool(&mcpsdk.Tool{
		Name:        "enrich_one",
		Description: "Fetch or purchase a single person's third-party profile match. Returns confirmation_required if the call would exceed the session's spend threshold.",
		InputSchema: rawSchema(`"person_id":{"type":"string"},"min_likelihood":{"type":"integer"},"force":{"type":"boolean"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		personID, _ := args["person_id"].(string)
		minLikelihood, _ := args["min_likelihood"].(float64)
		force, _ := args["force"].(bool)
		sessionID := callerUserID(args)

		rec, confirm, err := deps.Enrichment.EnrichOne(ctx, sessionID, models.EnrichOneRequest{
			PersonID:      personID,
			MinLikelihood: int(minLikelihood),
			Force:         force,
		})
		if err != nil {
			return errorResult(err), nil
		}
		if confirm != nil {
			return jsonResult(confirm), nil
		}
		return jsonResult(rec), nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "enrich_batch",
		Description: "Fetch or purchase third-party profile matches for multiple people in one call. Preferred for three or more subjects.",
		InputSchema: rawSchema(`"person_ids":{"type":"array","items":{"type":"string"}},"min_likelihood":{"type":"integer"},"skip_existing":{"type":"boolean"},"force":{"type":"boolean"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		personIDs := stringSlice(args["person_ids"])
		minLikelihood, _ := args["min_likelihood"].(float64)
		skipExisting, _ := args["skip_existing"].(bool)
		force, _ := args["force"].(bool)
		sessionID := callerUserID(args)

		result, confirm, err := deps.Enrichment.EnrichBatch(ctx, sessionID, models.EnrichBatchRequest{
			PersonIDs:     personIDs,
			MinLikelihood: int(minLikelihood),
			SkipExisting:  skipExisting,
			Force:         force,
		})
		if err != nil {
			return errorResult(err), nil
		}
		if confirm != nil {
			return jsonResult(confirm), nil
		}
		return jsonResult(result), nil
	})

	return server
}

func buildDocumentsServer(deps InProcessDeps) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "documents", Version: "1.0.0"}, nil)
	if deps.Docs == nil {
		return server
	}

	server.AddTool(&mcpsdk.Tool{
		Name:        "doc_create",
		Description: "Create a new document owned by the caller, e.g. a campaign email draft.",
		InputSchema: rawSchema(`"title":{"type":"string"},"body":{"type":"string"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		title, _ := args["title"].(string)
		body, _ := args["body"].(string)
		doc, err := deps.Docs.Create(ctx, callerUserID(args), title, body)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(doc), nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "doc_read",
		Description: "Read a document by id.",
		InputSchema: rawSchema(`"doc_id":{"type":"string"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		docID, _ := args["doc_id"].(string)
		doc, err := deps.Docs.Read(ctx, callerUserID(args), docID)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(doc), nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "doc_list",
		Description: "List the caller's documents.",
		InputSchema: rawSchema(``),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		docs, err := deps.Docs.List(ctx, callerUserID(args))
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(docs), nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "doc_update",
		Description: "Replace a document's body.",
		InputSchema: rawSchema(`"doc_id":{"type":"string"},"body":{"type":"string"}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := toolArguments(req.Params.Arguments)
		docID, _ := args["doc_id"].(string)
		body, _ := args["body"].(string)
		doc, err := deps.Docs.Update(ctx, callerUserID(args), docID, body)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(doc), nil
	})

	return server
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
