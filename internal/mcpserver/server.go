package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all scanner tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("nftsentry", "1.0.0")
	client := NewScannerClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScanWallet, h.HandleScanWallet)
	s.AddTool(ToolCheckCollection, h.HandleCheckCollection)
	s.AddTool(ToolAnalyzeNFT, h.HandleAnalyzeNFT)

	return s
}
