package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func scanTypeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Kind of scan, echoed back in the result. Default \"breast\"",
		"default":     DefaultScanType,
	}
}

func confidenceProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Optional confidence in [0, 1) to use instead of a random draw",
		"minimum":     0,
		"maximum":     1,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Scan analysis
		{
			Name:        "scan_analyze",
			Description: "Run a quick analysis of a scan image: synthesize detection points, classify them by confidence tier, and write an annotated copy of the image. Returns the analysis record with the annotated artifact name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty(),
					"scan_type":  scanTypeProperty(),
					"confidence": confidenceProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scan_upload_analyze",
			Description: "Stage an uploaded scan image (base64) in the upload directory as quick_<timestamp>_<filename> and analyze it like scan_analyze.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"filename": map[string]interface{}{
						"type":        "string",
						"description": "Original file name; its extension selects the artifact format",
					},
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image bytes",
					},
					"scan_type":  scanTypeProperty(),
					"confidence": confidenceProperty(),
				},
				"required": []string{"filename", "image_base64"},
			},
		},
		{
			Name:        "scan_analyze_batch",
			Description: "Analyze several scan images in parallel. Returns one analysis record per path, in input order; unreadable images yield error records instead of failing the call.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths to the image files",
						"items":       map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "scan_crop_roi",
			Description: "Crop the region of interest of a scan and return it as base64-encoded PNG. Without a bounding_box the image is analyzed first and its detection box is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"bounding_box": map[string]interface{}{
						"type":        "object",
						"description": "Optional region {x, y, width, height} in pixels",
						"properties": map[string]interface{}{
							"x":      map[string]interface{}{"type": "integer"},
							"y":      map[string]interface{}{"type": "integer"},
							"width":  map[string]interface{}{"type": "integer"},
							"height": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"x", "y", "width", "height"},
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, file size and EXIF orientation and capture time when present.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
