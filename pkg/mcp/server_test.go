package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler implements ToolHandler for testing.
type echoHandler struct {
	tools []Tool
	fail  bool
}

func (m *echoHandler) GetTools() []Tool {
	return m.tools
}

func (m *echoHandler) HandleTool(ctx context.Context, name string, args map[string]interface{}) (*CallToolResult, error) {
	if m.fail {
		return nil, fmt.Errorf("handler exploded")
	}
	return &CallToolResult{
		Content: []ContentBlock{TextContent("result for " + name)},
	}, nil
}

// resourceEchoHandler adds ResourceHandler on top of echoHandler.
type resourceEchoHandler struct {
	echoHandler
}

func (m *resourceEchoHandler) GetResources() []Resource {
	return []Resource{{URI: "test://thing", Name: "Thing"}}
}

func (m *resourceEchoHandler) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	if uri != "test://thing" {
		return nil, fmt.Errorf("no such resource")
	}
	return []ResourceContent{{URI: uri, Text: "thing content"}}, nil
}

// runServer feeds newline-delimited requests through a server and
// returns the decoded responses.
func runServer(t *testing.T, handler ToolHandler, requests ...string) []Response {
	t.Helper()

	input := strings.NewReader(strings.Join(requests, "\n") + "\n")
	output := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := NewServer(input, output, handler, logger)
	err := server.Run(context.Background())
	require.NoError(t, err)

	var responses []Response
	dec := json.NewDecoder(output)
	for {
		var resp Response
		if err := dec.Decode(&resp); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestServer_Initialize(t *testing.T) {
	responses := runServer(t, &echoHandler{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"1.0"}}}`,
	)

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	raw, _ := json.Marshal(responses[0].Result)
	var result InitializeResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "whatsapp-mcp-gateway", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)
	// Plain tool handlers do not advertise resources.
	assert.Nil(t, result.Capabilities.Resources)
}

func TestServer_InitializeAdvertisesResources(t *testing.T) {
	responses := runServer(t, &resourceEchoHandler{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
	)

	require.Len(t, responses, 1)
	raw, _ := json.Marshal(responses[0].Result)
	var result InitializeResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.NotNil(t, result.Capabilities.Resources)
}

func TestServer_ToolsList(t *testing.T) {
	handler := &echoHandler{tools: []Tool{{Name: "get_status", Description: "status"}}}
	responses := runServer(t, handler,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	)

	require.Len(t, responses, 1)
	raw, _ := json.Marshal(responses[0].Result)
	var result ListToolsResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "get_status", result.Tools[0].Name)
}

func TestServer_ToolsCall(t *testing.T) {
	responses := runServer(t, &echoHandler{},
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"get_status","arguments":{}}}`,
	)

	require.Len(t, responses, 1)
	raw, _ := json.Marshal(responses[0].Result)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "result for get_status", result.Content[0].Text)
}

func TestServer_ToolsCall_HandlerErrorBecomesToolResult(t *testing.T) {
	responses := runServer(t, &echoHandler{fail: true},
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"boom","arguments":{}}}`,
	)

	require.Len(t, responses, 1)
	// Protocol-level error stays nil; the failure travels in the result.
	require.Nil(t, responses[0].Error)
	raw, _ := json.Marshal(responses[0].Result)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "handler exploded")
}

func TestServer_UnknownMethod(t *testing.T) {
	responses := runServer(t, &echoHandler{},
		`{"jsonrpc":"2.0","id":2,"method":"nonsense"}`,
	)

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, MethodNotFound, responses[0].Error.Code)
}

func TestServer_InitializedNotificationHasNoResponse(t *testing.T) {
	responses := runServer(t, &echoHandler{},
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)

	// Only the ping answers.
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
}

func TestServer_Resources(t *testing.T) {
	responses := runServer(t, &resourceEchoHandler{},
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"test://thing"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"test://missing"}}`,
	)

	require.Len(t, responses, 3)

	raw, _ := json.Marshal(responses[0].Result)
	var list ListResourcesResult
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Resources, 1)
	assert.Equal(t, "test://thing", list.Resources[0].URI)

	raw, _ = json.Marshal(responses[1].Result)
	var read ReadResourceResult
	require.NoError(t, json.Unmarshal(raw, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "thing content", read.Contents[0].Text)

	require.NotNil(t, responses[2].Error)
}

func TestRequestParsing(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		hasID      bool
		wantMethod string
	}{
		{name: "numeric id", input: `{"jsonrpc":"2.0","id":1,"method":"test"}`, hasID: true, wantMethod: "test"},
		{name: "string id", input: `{"jsonrpc":"2.0","id":"abc","method":"test"}`, hasID: true, wantMethod: "test"},
		{name: "notification", input: `{"jsonrpc":"2.0","method":"notify"}`, hasID: false, wantMethod: "notify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			require.NoError(t, json.Unmarshal([]byte(tt.input), &req))
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.hasID, req.ID != nil)
		})
	}
}

func TestContentBlocks(t *testing.T) {
	text := TextContent("hello")
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, "hello", text.Text)

	img := ImageContent("image/png", "aGVsbG8=")
	assert.Equal(t, "image", img.Type)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "aGVsbG8=", img.Data)
}
