package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"social_media_analyzer/extract"
	"social_media_analyzer/failure"
)

// MCPServer returns an MCP server exposing the analyzer tools.
func (s *Server) MCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "social-media-analyzer", Version: version}, nil)
	s.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers the analyzer tools on srv.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerAnalyzeTool(srv)
	s.registerClassifyTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// documentArgs names a document either by path or by inline content.
type documentArgs struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	MIMEType      string `json:"mime_type"`
	ContentBase64 string `json:"content_base64"`
}

var documentProperties = map[string]any{
	"path":           map[string]any{"type": "string", "description": "Local file path of the document"},
	"name":           map[string]any{"type": "string", "description": "File name, used when content is inline"},
	"mime_type":      map[string]any{"type": "string", "description": "Declared MIME type of the inline content"},
	"content_base64": map[string]any{"type": "string", "description": "Base64-encoded document bytes"},
}

func (s *Server) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "analyze_document",
		Description: "Extract text from a PDF or text document and return five engagement tips as JSON.",
		InputSchema: inputSchema(documentProperties, nil),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args documentArgs
		if err := decodeArgs(req, &args); err != nil {
			return toolError(err), nil
		}
		doc, err := s.loadDocument(ctx, args)
		if err != nil {
			return toolError(err), nil
		}
		rn, err := s.analyze(ctx, doc, false)
		if err != nil {
			return toolError(err), nil
		}
		res, _ := rn.orch.Result()
		return toolJSON(res)
	})
}

func (s *Server) registerClassifyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "classify_document",
		Description: "Report which extractor would handle a document: pdf, image, plain_text or unsupported.",
		InputSchema: inputSchema(map[string]any{
			"path":      documentProperties["path"],
			"name":      documentProperties["name"],
			"mime_type": documentProperties["mime_type"],
		}, nil),
	}
	srv.AddTool(tool, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args documentArgs
		if err := decodeArgs(req, &args); err != nil {
			return toolError(err), nil
		}
		doc := extract.SourceDocument{Name: args.Name, MIMEType: args.MIMEType}
		if args.Path != "" {
			doc.Name = filepath.Base(args.Path)
			doc.MIMEType = mime.TypeByExtension(filepath.Ext(args.Path))
		}
		return toolJSON(map[string]string{
			"name": doc.Name,
			"kind": string(extract.Classify(doc)),
		})
	})
}

func (s *Server) loadDocument(ctx context.Context, args documentArgs) (extract.SourceDocument, error) {
	if args.Path != "" {
		return s.cfg.Loader.LoadFile(ctx, args.Path)
	}
	if args.ContentBase64 == "" {
		return extract.SourceDocument{}, fmt.Errorf("either path or content_base64 is required")
	}
	data, err := base64.StdEncoding.DecodeString(args.ContentBase64)
	if err != nil {
		return extract.SourceDocument{}, fmt.Errorf("content_base64: %w", err)
	}
	return s.cfg.Loader.Load(ctx, args.Name, args.MIMEType, bytes.NewReader(data))
}

func decodeArgs(req *mcp.CallToolRequest, v any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

// toolError reports err to the model as a tool failure rather than a
// protocol error.
func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if kind := failure.KindOf(err); kind != "" {
		msg = string(kind) + ": " + msg
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
