package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the NFTSentry MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanWallet = mcp.NewTool("scan_wallet",
	mcp.WithDescription(
		"Run a full risk scan of an Ethereum wallet. "+
			"Returns the ETH balance, every ERC-20 position scored for risk, "+
			"a scored sample of held NFTs, and an overall wallet risk level. "+
			"Use this to check a wallet before interacting with it."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("The wallet address to scan (e.g. '0x1234...')")),
)

var ToolCheckCollection = mcp.NewTool("check_collection",
	mcp.WithDescription(
		"Assess an NFT collection: holder concentration, floor price, "+
			"contract verification, audit status, and trading-forensics signals. "+
			"Use this to vet a collection before buying into it."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("The collection's contract address (e.g. '0xbc4c...')")),
)

var ToolAnalyzeNFT = mcp.NewTool("analyze_nft",
	mcp.WithDescription(
		"Analyze a single NFT: on-chain owner, metadata, image hosting, "+
			"collection verification, and a per-token risk verdict. "+
			"Use this to inspect one specific token before a purchase."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("The NFT's contract address (e.g. '0xb47e...')")),
	mcp.WithString("token_id",
		mcp.Required(),
		mcp.Description("The token ID as a decimal string (e.g. '42')")),
)
