package server

import (
	"github.com/ironsheep/pixel-snap-mcp/internal/imaging"
	"github.com/ironsheep/pixel-snap-mcp/internal/pixelate"
)

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

func pointSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y"},
	}
}

// withQuad adds the shared quad arguments to a tool's properties.
func withQuad(props map[string]interface{}) map[string]interface{} {
	props["quad"] = map[string]interface{}{
		"type":        "object",
		"description": "Four corners of the source region in image pixels. Defaults to the whole image.",
		"properties": map[string]interface{}{
			"top_left":     pointSchema(),
			"top_right":    pointSchema(),
			"bottom_left":  pointSchema(),
			"bottom_right": pointSchema(),
		},
		"required": []string{"top_left", "top_right", "bottom_left", "bottom_right"},
	}
	props["rotation"] = map[string]interface{}{
		"type":        "number",
		"description": "Rotation in degrees around the quad centroid, applied before skew",
		"default":     0,
	}
	props["skew_x"] = map[string]interface{}{
		"type":        "number",
		"description": "Horizontal perspective skew",
		"default":     0,
	}
	props["skew_y"] = map[string]interface{}{
		"type":        "number",
		"description": "Vertical perspective skew",
		"default":     0,
	}
	props["isometric"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Use the isometric skew model (30 degree shear) instead of the linear one",
		"default":     false,
	}
	return props
}

func colorMethodNames() []string {
	names := make([]string, len(pixelate.ColorMethods))
	for i, m := range pixelate.ColorMethods {
		names[i] = string(m)
	}
	return names
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Management
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image stays cached for subsequent operations.",
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
		{
			Name:        "image_unload",
			Description: "Drop an image from the cache, or every cached image when no path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the image to evict. Omit to clear the cache.",
					},
				},
			},
		},

		// Color Inspection
		{
			Name:        "image_sample_color",
			Description: "Get the color at a pixel as hex, RGB, RGBA, HSL and ICtCp. Useful for checking a background before generating.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "image_sample_colors_multi",
			Description: "Sample colors at multiple points in one call, for example the four corners of a photographed sprite.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Points to sample",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Quad Operations
		{
			Name:        "quad_adjust",
			Description: "Apply rotation and perspective skew to a quad and return the resulting corners, bounding box, edge lengths and, given a pitch, a suggested output grid size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Image whose full extent is used when no quad is given",
					},
					"pitch": map[string]interface{}{
						"type":        "number",
						"description": "Cell size in source pixels used to suggest an output size",
					},
				}),
			},
		},
		{
			Name:        "quad_preview",
			Description: "Crop the bounding box of a quad (the region calibration analyses) and return it as a base64 PNG, optionally enlarged with nearest-neighbour scaling.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": pathProperty(),
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscale factor",
						"default":     1,
						"maximum":     imaging.MaxPreviewScale,
					},
				}),
				"required": []string{"path"},
			},
		},

		// Pixel Grid Recovery
		{
			Name:        "pixel_generate",
			Description: "Resample a quad region of an image into a clean pixel grid. Each cell is supersampled and reduced with the chosen color method, then the border background can be removed and the palette limited. Returns the grid as a base64 PNG with its palette.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": pathProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Output grid width in cells",
						"default":     defaultGridSize,
						"minimum":     1,
						"maximum":     maxGridSize,
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Output grid height in cells",
						"default":     defaultGridSize,
						"minimum":     1,
						"maximum":     maxGridSize,
					},
					"method": map[string]interface{}{
						"type":        "string",
						"description": "Color aggregation method for each cell",
						"enum":        colorMethodNames(),
						"default":     string(pixelate.Mean),
					},
					"color_limit": map[string]interface{}{
						"type":        "boolean",
						"description": "Quantize the output palette",
						"default":     true,
					},
					"max_colors": map[string]interface{}{
						"type":        "integer",
						"description": "Palette size when color_limit is on. Defaults to the server setting.",
					},
					"remove_background": map[string]interface{}{
						"type":        "boolean",
						"description": "Detect a uniform border color and make it transparent",
						"default":     true,
					},
					"sample_size": map[string]interface{}{
						"type":        "integer",
						"description": "Supersample lattice side per cell",
						"default":     pixelate.DefaultSampleSize,
						"minimum":     1,
						"maximum":     pixelate.MaxSampleSize,
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for palette initialisation",
					},
					"preview_scale": map[string]interface{}{
						"type":        "integer",
						"description": "Also return a nearest-neighbour enlarged preview at this scale",
						"maximum":     imaging.MaxPreviewScale,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Also write the grid as a PNG file to this path",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "pixel_calibrate",
			Description: "Search for the grid pitch and offset that best fit the pixel art inside a quad, starting from the current output size. Runs a coarse scan, a fine scan and an offset refinement; sends progress notifications when a progress token is supplied.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": pathProperty(),
					"current_width": map[string]interface{}{
						"type":        "integer",
						"description": "Current estimate of the grid width in cells",
						"default":     defaultGridSize,
					},
					"current_height": map[string]interface{}{
						"type":        "integer",
						"description": "Current estimate of the grid height in cells",
						"default":     defaultGridSize,
					},
					"method": map[string]interface{}{
						"type":        "string",
						"description": "Color method; centerSpot scores only the middle of each cell",
						"enum":        colorMethodNames(),
						"default":     string(pixelate.Mean),
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for stochastic cell sampling",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "pixel_super_calibrate",
			Description: "Find a grid without an initial estimate by trying common sprite widths and ranking them by cell flatness against contrast between cells.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": pathProperty(),
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for stochastic cell sampling",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "pixel_grid_overlay",
			Description: "Draw a grid with the given pitch and offset over the quad region so a calibration result can be checked visually. Returns a base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": pathProperty(),
					"pitch": map[string]interface{}{
						"type":        "number",
						"description": "Cell size in source pixels; pitch times scale must be at least one preview pixel",
					},
					"offset_x": map[string]interface{}{
						"type":        "number",
						"description": "Grid offset from the left of the region",
						"default":     0,
					},
					"offset_y": map[string]interface{}{
						"type":        "number",
						"description": "Grid offset from the top of the region",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscale factor applied before drawing",
						"default":     1,
						"maximum":     imaging.MaxPreviewScale,
					},
					"show_coordinates": map[string]interface{}{
						"type":        "boolean",
						"description": "Label cells with their column,row index",
						"default":     false,
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Line color as #RRGGBB or #RRGGBBAA",
						"default":     defaultOverlayColor,
					},
				}),
				"required": []string{"path", "pitch"},
			},
		},

		{
			Name:        "pixel_measure",
			Description: "Measure a run of cells between two points to get the grid pitch by hand, the grid size it implies and the rotation that levels the run.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "number",
						"description": "Start X coordinate",
					},
					"y1": map[string]interface{}{
						"type":        "number",
						"description": "Start Y coordinate",
					},
					"x2": map[string]interface{}{
						"type":        "number",
						"description": "End X coordinate",
					},
					"y2": map[string]interface{}{
						"type":        "number",
						"description": "End Y coordinate",
					},
					"cells": map[string]interface{}{
						"type":        "integer",
						"description": "Number of grid cells between the two points",
						"default":     1,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Palette
		{
			Name:        "palette_suggest",
			Description: "Suggest representative colors for a quad region, sorted dark to light, to help choose a palette size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withQuad(map[string]interface{}{
					"path": pathProperty(),
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to suggest",
						"default":     defaultSuggestCount,
					},
					"method": map[string]interface{}{
						"type":        "string",
						"description": "Extraction method",
						"enum":        []string{"dominant", "kmeans"},
						"default":     "dominant",
					},
				}),
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
