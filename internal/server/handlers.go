package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/imaging"
	"github.com/ironsheep/scan-annotate-mcp/internal/pipeline"
)

// DefaultScanType is echoed back when a request names no scan type.
const DefaultScanType = "breast"

// QuickAnalysisMessage accompanies every completed scan_analyze response.
const QuickAnalysisMessage = "Quick analysis completed successfully"

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "scan_analyze", "image_load").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A degraded analysis is a successful call: its result describes the failure.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithField("tool", params.Name).WithError(err).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Scan analysis
	case "scan_analyze":
		return s.handleScanAnalyze(ctx, args)
	case "scan_upload_analyze":
		return s.handleScanUploadAnalyze(ctx, args)
	case "scan_analyze_batch":
		return s.handleScanAnalyzeBatch(ctx, args)
	case "scan_crop_roi":
		return s.handleScanCropROI(ctx, args)

	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Scan Analysis Handlers ===

// QuickAnalysisResult is the scan_analyze and scan_upload_analyze response.
type QuickAnalysisResult struct {
	analysis.Result

	ScanType string `json:"scan_type"`
	Message  string `json:"message"`

	// Upload is the staged path of an uploaded image.
	Upload string `json:"upload,omitempty"`
}

type scanAnalyzeArgs struct {
	Path       string   `json:"path"`
	ScanType   string   `json:"scan_type"`
	Confidence *float64 `json:"confidence"`
}

func (s *Server) handleScanAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	if err := validateConfidence(a.Confidence); err != nil {
		return nil, err
	}

	res := s.analyze(ctx, a.Path, a.Confidence)
	return quickResult(res, a.ScanType), nil
}

type scanUploadAnalyzeArgs struct {
	Filename    string   `json:"filename"`
	ImageBase64 string   `json:"image_base64"`
	ScanType    string   `json:"scan_type"`
	Confidence  *float64 `json:"confidence"`
}

func (s *Server) handleScanUploadAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanUploadAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Filename == "" || a.ImageBase64 == "" {
		return nil, errors.New("filename and image_base64 are required")
	}
	if err := validateConfidence(a.Confidence); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(a.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid image_base64: %w", err)
	}

	staged, err := pipeline.StageUpload(s.uploadDir, a.Filename, bytes.NewReader(data), s.now(), s.maxBytes)
	if err != nil {
		return nil, err
	}
	s.log.WithField("upload", staged).Info("upload staged")

	out := quickResult(s.analyze(ctx, staged, a.Confidence), a.ScanType)
	out.Upload = staged
	return out, nil
}

func (s *Server) analyze(ctx context.Context, path string, confidence *float64) analysis.Result {
	if confidence != nil {
		return s.analyzer.AnalyzeFileWithConfidence(ctx, path, *confidence)
	}
	return s.analyzer.AnalyzeFile(ctx, path)
}

func quickResult(res analysis.Result, scanType string) *QuickAnalysisResult {
	if scanType == "" {
		scanType = DefaultScanType
	}
	return &QuickAnalysisResult{
		Result:   res,
		ScanType: scanType,
		Message:  QuickAnalysisMessage,
	}
}

func validateConfidence(c *float64) error {
	if c != nil && (*c < 0 || *c >= 1) {
		return fmt.Errorf("confidence must be in [0, 1), got %g", *c)
	}
	return nil
}

// BatchResult is the scan_analyze_batch response.
type BatchResult struct {
	Results []analysis.Result `json:"results"`
	Count   int               `json:"count"`
	Failed  int               `json:"failed"`
}

type scanAnalyzeBatchArgs struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleScanAnalyzeBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanAnalyzeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}

	results := s.analyzer.AnalyzeBatch(ctx, a.Paths)
	out := &BatchResult{Results: results, Count: len(results)}
	for _, r := range results {
		if r.IsFailed() {
			out.Failed++
		}
	}
	return out, nil
}

// CropROIResult is the scan_crop_roi response.
type CropROIResult struct {
	BoundingBox analysis.BoundingBox `json:"bounding_box"`

	// Analysis is set when the box came from a fresh analysis.
	Analysis *analysis.Result `json:"analysis,omitempty"`

	Crop *imaging.CropResult `json:"crop"`
}

type scanCropROIArgs struct {
	Path        string                `json:"path"`
	BoundingBox *analysis.BoundingBox `json:"bounding_box"`
	Scale       float64               `json:"scale"`
}

func (s *Server) handleScanCropROI(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanCropROIArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	out := &CropROIResult{}
	if b := a.BoundingBox; b != nil {
		if b.Width <= 0 || b.Height <= 0 || b.X < 0 || b.Y < 0 {
			return nil, fmt.Errorf("bounding_box %+v must have a non-negative origin and positive size", *b)
		}
		out.BoundingBox = *b
	} else {
		res := s.analyzer.AnalyzeFile(ctx, a.Path)
		if res.IsFailed() {
			return nil, errors.New(res.Label)
		}
		out.BoundingBox = res.BoundingBox
		out.Analysis = &res
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	crop, err := imaging.CropRegion(img, out.BoundingBox.Rect().Add(img.Bounds().Min), a.Scale)
	if err != nil {
		return nil, err
	}
	out.Crop = crop
	return out, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, filepath.Clean(a.Path))
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, filepath.Clean(a.Path))
}
