package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ironsheep/pixel-snap-mcp/internal/calibrate"
	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
	"github.com/ironsheep/pixel-snap-mcp/internal/imaging"
	"github.com/ironsheep/pixel-snap-mcp/internal/palette"
	"github.com/ironsheep/pixel-snap-mcp/internal/pixelate"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// Defaults applied when a tool call omits the argument.
const (
	defaultGridSize     = 64
	defaultSuggestCount = 8
	defaultOverlayColor = "#FF000080"
)

// maxGridSize bounds each side of a generated pixel grid.
const maxGridSize = 4096

// errInvalidArgument marks tool arguments rejected before any work starts.
var errInvalidArgument = errors.New("invalid argument")

// isInvalidParams reports whether err was caused by the caller's arguments
// rather than by the tool failing, so it can be answered with -32602.
func isInvalidParams(err error) bool {
	for _, target := range []error{
		errInvalidArgument,
		pixelate.ErrInvalidDimensions,
		pixelate.ErrInvalidSampleSize,
		palette.ErrInvalidMaxColors,
		imaging.ErrInvalidGrid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "pixel_generate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	// Meta carries the optional progress token of long-running calls.
	Meta *RequestMeta `json:"_meta,omitempty"`
}

// RequestMeta is the MCP _meta object of a request.
type RequestMeta struct {
	ProgressToken interface{} `json:"progressToken,omitempty"`
}

// progressFunc forwards a percentage in [0, 100] and a label to the client.
type progressFunc func(percent float64, message string)

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// When the request carries _meta.progressToken, calibration tools send
// notifications/progress before the response. Out-of-range arguments return
// -32602; every other tool execution error returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	var progress progressFunc
	if params.Meta != nil && params.Meta.ProgressToken != nil {
		token := params.Meta.ProgressToken
		progress = func(percent float64, message string) {
			s.notify("notifications/progress", map[string]interface{}{
				"progressToken": token,
				"progress":      percent,
				"total":         100,
				"message":       message,
			})
		}
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments, progress)
	if s.cfg.Debug {
		log.Printf("tool %s finished in %v (error: %v)", params.Name, time.Since(start), err)
	}
	if err != nil {
		if isInvalidParams(err) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate geometry/pixelate/calibrate/palette function
//  5. Returns the result or error
//
// progress may be nil.
func (s *Server) executeTool(name string, args json.RawMessage, progress progressFunc) (interface{}, error) {
	switch name {
	// Image Management
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_unload":
		return s.handleImageUnload(args)

	// Color Inspection
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_sample_colors_multi":
		return s.handleImageSampleColorsMulti(args)

	// Quad Operations
	case "quad_adjust":
		return s.handleQuadAdjust(args)
	case "quad_preview":
		return s.handleQuadPreview(args)

	// Pixel Grid Recovery
	case "pixel_generate":
		return s.handlePixelGenerate(args)
	case "pixel_calibrate":
		return s.handlePixelCalibrate(args, progress)
	case "pixel_super_calibrate":
		return s.handlePixelSuperCalibrate(args, progress)
	case "pixel_grid_overlay":
		return s.handlePixelGridOverlay(args)
	case "pixel_measure":
		return s.handlePixelMeasure(args)

	// Palette
	case "palette_suggest":
		return s.handlePaletteSuggest(args)

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

// quadArgs are the region arguments shared by every tool that samples
// through a quad. Without an explicit quad the whole image is used.
type quadArgs struct {
	Quad      *geometry.Quad `json:"quad,omitempty"`
	Rotation  float64        `json:"rotation"`
	SkewX     float64        `json:"skew_x"`
	SkewY     float64        `json:"skew_y"`
	Isometric bool           `json:"isometric"`
}

func (a quadArgs) resolve(width, height int) geometry.Quad {
	q := geometry.RectQuad(0, 0, float64(width), float64(height))
	if a.Quad != nil {
		q = *a.Quad
	}
	return geometry.Adjust(q, a.Rotation, a.SkewX, a.SkewY, a.Isometric)
}

// loadRaster returns the cached raster of path and the quad resolved against
// its dimensions.
func (s *Server) loadRaster(path string, qa quadArgs) (*raster.Buffer, geometry.Quad, error) {
	buf, err := s.cache.Raster(path)
	if err != nil {
		return nil, geometry.Quad{}, err
	}
	return buf, qa.resolve(buf.Width, buf.Height), nil
}

// === Image Management Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageUnloadResult struct {
	Path    string `json:"path,omitempty"`
	Cleared bool   `json:"cleared"`
}

func (s *Server) handleImageUnload(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		s.cache.Clear()
	} else {
		s.cache.Evict(a.Path)
	}
	return &imageUnloadResult{Path: a.Path, Cleared: true}, nil
}

// === Color Inspection Handlers ===

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

type imageSampleColorsMultiArgs struct {
	Path   string `json:"path"`
	Points []struct {
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Label string `json:"label,omitempty"`
	} `json:"points"`
}

func (s *Server) handleImageSampleColorsMulti(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorsMultiArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	points := make([]imaging.LabeledPoint, len(a.Points))
	for i, p := range a.Points {
		points[i] = imaging.LabeledPoint{X: p.X, Y: p.Y, Label: p.Label}
	}
	return imaging.SampleColorsMulti(img, points)
}

// === Quad Handlers ===

type quadAdjustArgs struct {
	Path string `json:"path"`
	quadArgs
	Pitch float64 `json:"pitch"`
}

type quadBounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

type quadAdjustResult struct {
	Quad            geometry.Quad `json:"quad"`
	Bounds          quadBounds    `json:"bounds"`
	EdgeWidth       float64       `json:"edge_width"`
	EdgeHeight      float64       `json:"edge_height"`
	SuggestedWidth  int           `json:"suggested_width,omitempty"`
	SuggestedHeight int           `json:"suggested_height,omitempty"`
}

func (s *Server) handleQuadAdjust(args json.RawMessage) (interface{}, error) {
	var a quadAdjustArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var q geometry.Quad
	switch {
	case a.Path != "":
		dims, err := imaging.GetDimensions(s.cache, a.Path)
		if err != nil {
			return nil, err
		}
		q = a.resolve(dims.Width, dims.Height)
	case a.Quad != nil:
		q = a.resolve(0, 0)
	default:
		return nil, fmt.Errorf("quad or path is required")
	}

	minX, minY, maxX, maxY := geometry.Bounds(q)
	w, h := geometry.EdgeSize(q)
	res := &quadAdjustResult{
		Quad:       q,
		Bounds:     quadBounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY},
		EdgeWidth:  w,
		EdgeHeight: h,
	}
	if a.Pitch > 0 {
		res.SuggestedWidth, res.SuggestedHeight = geometry.SuggestOutputSize(q, a.Pitch)
	}
	return res, nil
}

type quadPreviewArgs struct {
	Path string `json:"path"`
	quadArgs
	Scale int `json:"scale"`
}

func (s *Server) handleQuadPreview(args json.RawMessage) (interface{}, error) {
	var a quadPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return imaging.CropQuad(img, a.resolve(b.Dx(), b.Dy()), a.Scale)
}

// === Pixel Grid Recovery Handlers ===

type pixelGenerateArgs struct {
	Path string `json:"path"`
	quadArgs
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Method           string  `json:"method"`
	ColorLimit       *bool   `json:"color_limit"`
	MaxColors        int     `json:"max_colors"`
	RemoveBackground *bool   `json:"remove_background"`
	SampleSize       int     `json:"sample_size"`
	Seed             *uint64 `json:"seed"`
	PreviewScale     int     `json:"preview_scale"`
	OutputPath       string  `json:"output_path"`
}

type backgroundReport struct {
	pixelate.BackgroundResult
	Hex string `json:"hex,omitempty"`
}

type pixelGenerateResult struct {
	imaging.EncodedImage
	Method     string                `json:"method"`
	Quad       geometry.Quad         `json:"quad"`
	Palette    []string              `json:"palette,omitempty"`
	Background backgroundReport      `json:"background"`
	Preview    *imaging.EncodedImage `json:"preview,omitempty"`
	OutputPath string                `json:"output_path,omitempty"`
}

func (s *Server) handlePixelGenerate(args json.RawMessage) (interface{}, error) {
	var a pixelGenerateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = defaultGridSize
	}
	if a.Height == 0 {
		a.Height = defaultGridSize
	}
	if a.MaxColors == 0 {
		a.MaxColors = s.cfg.MaxColors
	}
	if a.Width < 0 || a.Width > maxGridSize || a.Height < 0 || a.Height > maxGridSize {
		return nil, fmt.Errorf("%w: width and height must be between 1 and %d, got %dx%d", errInvalidArgument, maxGridSize, a.Width, a.Height)
	}
	if a.SampleSize < 0 || a.SampleSize > pixelate.MaxSampleSize {
		return nil, fmt.Errorf("%w: sample_size must be between 1 and %d, got %d", errInvalidArgument, pixelate.MaxSampleSize, a.SampleSize)
	}
	method, err := pixelate.ParseColorMethod(a.Method)
	if err != nil {
		return nil, err
	}

	src, q, err := s.loadRaster(a.Path, a.quadArgs)
	if err != nil {
		return nil, err
	}

	opts := pixelate.DefaultOptions()
	opts.MaxColors = a.MaxColors
	if a.ColorLimit != nil {
		opts.EnableColorLimit = *a.ColorLimit
	}
	if a.RemoveBackground != nil {
		opts.EnableBackgroundDetection = *a.RemoveBackground
	}
	if a.SampleSize > 0 {
		opts.SampleSize = a.SampleSize
	}
	opts.Rand = s.cfg.newRand(a.Seed)

	out, err := pixelate.Generate(src, q, a.Width, a.Height, method, opts)
	if err != nil {
		return nil, err
	}
	img := out.Image.ToImage()

	enc, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	res := &pixelGenerateResult{
		EncodedImage: *enc,
		Method:       string(method),
		Quad:         q,
		Palette:      imaging.PaletteHex(out.Palette),
		Background:   backgroundReport{BackgroundResult: out.Background},
	}
	if out.Background.Detected {
		res.Background.Hex = imaging.HexString(out.Background.Color)
	}

	if a.PreviewScale > 1 {
		scaled, err := imaging.Upscale(img, a.PreviewScale)
		if err != nil {
			return nil, err
		}
		if res.Preview, err = imaging.EncodePNG(scaled); err != nil {
			return nil, err
		}
	}

	if a.OutputPath != "" {
		if err := imaging.SavePNG(a.OutputPath, img); err != nil {
			return nil, err
		}
		res.OutputPath = a.OutputPath
	}

	return res, nil
}

type pixelCalibrateArgs struct {
	Path string `json:"path"`
	quadArgs
	CurrentWidth  int     `json:"current_width"`
	CurrentHeight int     `json:"current_height"`
	Method        string  `json:"method"`
	Seed          *uint64 `json:"seed"`
}

type calibrateResult struct {
	calibrate.Result
	Method    string        `json:"method,omitempty"`
	Quad      geometry.Quad `json:"quad"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// calibrationOptions builds the options of one calibration run, forwarding
// progress to the client and logging phase changes in debug mode.
func (s *Server) calibrationOptions(tool string, seed *uint64, progress progressFunc) calibrate.Options {
	last := calibrate.Phase(-1)
	return calibrate.Options{
		Rand: s.cfg.newRand(seed),
		OnProgress: func(p calibrate.Progress) {
			if s.cfg.Debug && p.Phase != last {
				log.Printf("%s: phase %s at %.0f%% (best %dx%d)", tool, p.Phase, p.Percent, p.Best.Width, p.Best.Height)
				last = p.Phase
			}
			if progress != nil {
				progress(p.Percent, p.Label)
			}
		},
	}
}

func (s *Server) handlePixelCalibrate(args json.RawMessage, progress progressFunc) (interface{}, error) {
	var a pixelCalibrateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.CurrentWidth == 0 {
		a.CurrentWidth = defaultGridSize
	}
	if a.CurrentHeight == 0 {
		a.CurrentHeight = defaultGridSize
	}
	method, err := pixelate.ParseColorMethod(a.Method)
	if err != nil {
		return nil, err
	}

	src, q, err := s.loadRaster(a.Path, a.quadArgs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opts := s.calibrationOptions("pixel_calibrate", a.Seed, progress)
	res, err := calibrate.Calibrate(context.Background(), src, q, a.CurrentWidth, a.CurrentHeight, method, opts)
	if err != nil {
		return nil, err
	}
	return &calibrateResult{
		Result:    res,
		Method:    string(method),
		Quad:      q,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

type pixelSuperCalibrateArgs struct {
	Path string `json:"path"`
	quadArgs
	Seed *uint64 `json:"seed"`
}

func (s *Server) handlePixelSuperCalibrate(args json.RawMessage, progress progressFunc) (interface{}, error) {
	var a pixelSuperCalibrateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	src, q, err := s.loadRaster(a.Path, a.quadArgs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opts := s.calibrationOptions("pixel_super_calibrate", a.Seed, progress)
	res, err := calibrate.SuperCalibrate(context.Background(), src, q, opts)
	if err != nil {
		return nil, err
	}
	return &calibrateResult{
		Result:    res,
		Quad:      q,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

type pixelGridOverlayArgs struct {
	Path string `json:"path"`
	quadArgs
	Pitch           float64 `json:"pitch"`
	OffsetX         float64 `json:"offset_x"`
	OffsetY         float64 `json:"offset_y"`
	Scale           int     `json:"scale"`
	ShowCoordinates bool    `json:"show_coordinates"`
	GridColor       string  `json:"grid_color"`
}

func (s *Server) handlePixelGridOverlay(args json.RawMessage) (interface{}, error) {
	var a pixelGridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.GridColor == "" {
		a.GridColor = defaultOverlayColor
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	q := a.resolve(b.Dx(), b.Dy())
	return imaging.GridOverlay(img, q, a.Pitch, a.OffsetX, a.OffsetY, a.Scale, a.ShowCoordinates, a.GridColor)
}

type pixelMeasureArgs struct {
	Path  string  `json:"path"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Cells int     `json:"cells"`
}

func (s *Server) handlePixelMeasure(args json.RawMessage) (interface{}, error) {
	var a pixelMeasureArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Cells == 0 {
		a.Cells = 1
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.MeasurePitch(img, a.X1, a.Y1, a.X2, a.Y2, a.Cells)
}

// === Palette Handlers ===

type paletteSuggestArgs struct {
	Path string `json:"path"`
	quadArgs
	Count  int    `json:"count"`
	Method string `json:"method"`
}

type paletteSuggestResult struct {
	Method string                `json:"method"`
	Count  int                   `json:"count"`
	Colors []imaging.ColorResult `json:"colors"`
}

func (s *Server) handlePaletteSuggest(args json.RawMessage) (interface{}, error) {
	var a paletteSuggestArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = defaultSuggestCount
	}
	if a.Count < 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", errInvalidArgument, a.Count)
	}
	method, err := palette.ParseSuggestMethod(a.Method)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	region, err := imaging.QuadRegion(img, a.resolve(b.Dx(), b.Dy()))
	if err != nil {
		return nil, err
	}

	pal, used := palette.Suggest(region, a.Count, method)
	if used != method {
		log.Printf("palette_suggest: %s produced no colors for %s, fell back to %s", method, a.Path, used)
	}
	palette.SortByIntensity(pal)

	colors := make([]imaging.ColorResult, len(pal))
	for i, c := range pal {
		colors[i] = imaging.Describe(c)
	}
	return &paletteSuggestResult{
		Method: used.String(),
		Count:  len(colors),
		Colors: colors,
	}, nil
}
