// Package server implements the MCP (Model Context Protocol) server for scan
// analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the analysis
// pipeline through the MCP protocol, so MCP-compatible clients can request
// quick scan analyses and fetch annotated artifacts.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Scan analysis:
//   - scan_analyze: Analyze one image and write its annotated copy
//   - scan_upload_analyze: Stage base64 image bytes, then analyze them
//   - scan_analyze_batch: Analyze several images in parallel
//   - scan_crop_roi: Crop the detection bounding box (or a given box)
//
// Basic Image Information:
//   - image_load: Load image and get metadata, including EXIF
//   - image_dimensions: Get width and height
//
// # Error Handling
//
// An image that cannot be decoded is not a tool error: the analysis record
// carries confidence 0 and an "Error in analysis: ..." label. Tool execution
// errors (bad arguments, failed uploads) are returned as JSON-RPC error
// responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Options{Analyzer: analyzer, UploadDir: "uploads"})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
