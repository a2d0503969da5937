// Package server implements the MCP (Model Context Protocol) server for
// recovering pixel art from photos and screenshots.
//
// This package provides a JSON-RPC 2.0 server that exposes the pixel grid
// recovery engine through the MCP protocol. A client loads an image, describes
// the region holding the sprite as a four-corner quad, calibrates the grid and
// renders a clean pixel grid with a limited palette.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Management:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_unload: Evict one image or clear the cache
//
// Color Inspection:
//   - image_sample_color: Color at a pixel in hex, RGB, HSL and ICtCp
//   - image_sample_colors_multi: Sample several points at once
//
// Quad Operations:
//   - quad_adjust: Apply rotation and perspective skew to a quad
//   - quad_preview: Crop the region a quad covers
//
// Pixel Grid Recovery:
//   - pixel_generate: Render the quad region as a pixel grid
//   - pixel_calibrate: Refine pitch and offset from a size estimate
//   - pixel_super_calibrate: Find a grid without an estimate
//   - pixel_grid_overlay: Draw a calibrated grid for visual checking
//   - pixel_measure: Derive the pitch from a hand-measured run of cells
//
// Palette:
//   - palette_suggest: Representative colors of a region
//
// Every tool that samples through a quad accepts the same region arguments:
// quad (defaults to the whole image), rotation, skew_x, skew_y and isometric.
//
// # Progress
//
// Calibration can take a while on large photos. When a tools/call request
// carries _meta.progressToken, the calibration tools send
// notifications/progress messages (progress out of a total of 100, with a
// label describing the current phase) before the final response.
//
// # Configuration
//
// Defaults come from Config, usually built by ConfigFromEnv from
// PIXELSNAP_LOG_LEVEL, PIXELSNAP_MAX_COLORS and PIXELSNAP_SEED. Tool arguments
// override them per call.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := server.ConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := server.NewWithConfig(cfg).Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
