package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName = "screen-capture-mcp"
	version    = "1.0.0"

	toolName        = "take_screenshot"
	toolDescription = "Captures a screenshot of the primary display or a specific window. " +
		"Returns the image as a PNG. If window_title is provided, captures only that window " +
		"(partial title match). Otherwise captures the full screen."

	mimeTypePNG = "image/png"
)

// ToolResult is the outcome of one capture as the protocol sees it: either
// an image or an error message.
type ToolResult struct {
	Kind      string `json:"kind"`
	MIMEType  string `json:"mimeType,omitempty"`
	Data      []byte `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// NewToolResult converts a capture outcome into a ToolResult.
func NewToolResult(img NormalizedImage, err error) ToolResult {
	if err != nil {
		return ToolResult{
			Kind:      "error",
			Message:   err.Error(),
			ErrorKind: KindOf(err).String(),
		}
	}
	return ToolResult{Kind: "image", MIMEType: mimeTypePNG, Data: img.PNG}
}

// IsError reports whether r describes a failure.
func (r ToolResult) IsError() bool { return r.Kind == "error" }

// CallToolResult renders r in MCP form.
func (r ToolResult) CallToolResult() *mcp.CallToolResult {
	if r.IsError() {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "Screenshot failed: " + r.Message}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.ImageContent{Data: r.Data, MIMEType: r.MIMEType}},
	}
}

// newMCPServer builds an MCP server exposing svc.
func newMCPServer(svc *Service) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	RegisterMCP(srv, svc)
	return srv
}

// RegisterMCP registers the take_screenshot tool on srv.
func RegisterMCP(srv *mcp.Server, svc *Service) {
	tool := &mcp.Tool{
		Name:        toolName,
		Description: toolDescription,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"window_title": map[string]any{
					"type":        "string",
					"description": "Optional window title to capture (partial match). If omitted, captures the full primary screen.",
				},
			},
		},
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := decodeTarget(req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		return svc.Result(ctx, target).CallToolResult(), nil
	})
}

type screenshotArgs struct {
	WindowTitle *string `json:"window_title"`
}

// decodeTarget maps tool arguments to a CaptureTarget. A missing, null or
// blank window_title selects the full screen.
func decodeTarget(raw json.RawMessage) (CaptureTarget, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return FullScreen(), nil
	}

	var args screenshotArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return CaptureTarget{}, err
	}
	if args.WindowTitle == nil {
		return FullScreen(), nil
	}
	return targetFromTitle(*args.WindowTitle), nil
}
