// Package mcp exposes catalog browsing to MCP clients as JSON-RPC 2.0 over stdio.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/johnrirwin/devicedesk/internal/logging"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "devicedesk-catalog"
	serverVersion   = "1.0.0"

	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

const instructions = "Browse the device catalog. filter_products takes facet selections " +
	"(category, brand, os, color, storage, carrier, lockStatus, grade), minPrice/maxPrice and stock; " +
	"get_facets returns the option counts for the same arguments."

// Server answers MCP requests for one catalog
type Server struct {
	handler *Handler
	logger  *logging.Logger
}

func NewServer(handler *Handler, logger *logging.Logger) *Server {
	return &Server{handler: handler, logger: logger}
}

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ServerInfo `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
	Instructions    string       `json:"instructions,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *struct {
		ListChanged bool `json:"listChanged"`
	} `json:"tools,omitempty"`
}

type ToolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func result(id, v interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

func failure(id interface{}, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// textResult wraps v as the single JSON text item of a tool result
func textResult(v interface{}, isError bool) CallToolResult {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		text = []byte(`{"error":"unencodable result"}`)
		isError = true
	}
	return CallToolResult{Content: []ContentItem{{Type: "text", Text: string(text)}}, IsError: isError}
}

// Run serves stdin/stdout until EOF or ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve answers newline-delimited requests read from in. A final line without a
// trailing newline is still handled; notifications get no response.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	enc := json.NewEncoder(out)

	s.logger.Info("MCP server ready", logging.WithField("server", serverName))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read request: %w", readErr)
		}

		if len(bytes.TrimSpace(line)) > 0 {
			if resp := s.handleRequest(ctx, line); resp != nil {
				if err := enc.Encode(resp); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return failure(nil, codeParseError, "Parse error")
	}

	s.logger.Debug("MCP request", logging.WithFields(map[string]interface{}{
		"method": req.Method,
		"id":     req.ID,
	}))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		return nil
	case "ping":
		return result(req.ID, struct{}{})
	case "tools/list":
		return result(req.ID, ToolsListResult{Tools: s.handler.GetTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return failure(req.ID, codeMethodNotFound, "Method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	var params initializeParams
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}
	s.logger.Info("MCP client connected", logging.WithFields(map[string]interface{}{
		"client":   params.ClientInfo.Name,
		"protocol": params.ProtocolVersion,
	}))

	res := InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      ServerInfo{Name: serverName, Version: serverVersion},
		Instructions:    instructions,
	}
	res.Capabilities.Tools = &struct {
		ListChanged bool `json:"listChanged"`
	}{}
	return result(req.ID, res)
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, codeInvalidParams, "Invalid params: "+err.Error())
	}

	out, err := s.handler.HandleToolCall(ctx, params.Name, params.Arguments)
	if err != nil {
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			s.logger.Error("Tool call failed", logging.WithFields(map[string]interface{}{
				"tool":  params.Name,
				"error": err.Error(),
			}))
		}
		return result(req.ID, textResult(map[string]string{"error": err.Error()}, true))
	}
	return result(req.ID, textResult(out, false))
}
