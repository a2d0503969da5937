package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"image_unload",
		"image_sample_color",
		"image_sample_colors_multi",
		"quad_adjust",
		"quad_preview",
		"pixel_generate",
		"pixel_calibrate",
		"pixel_super_calibrate",
		"pixel_grid_overlay",
		"pixel_measure",
		"palette_suggest",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name is empty")
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("Tool InputSchema is nil")
			}

			if schemaType := tool.InputSchema["type"]; schemaType != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", schemaType)
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || props == nil {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required argument must be declared.
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					if _, ok := props[r]; !ok {
						t.Errorf("required argument %q has no property", r)
					}
				}
			}
		})
	}
}

func toolByName(t *testing.T, name string) Tool {
	t.Helper()
	for _, tool := range GetToolDefinitions() {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("%s tool not found", name)
	return Tool{}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	toolsRequiringPath := []string{
		"image_load",
		"image_dimensions",
		"image_sample_color",
		"image_sample_colors_multi",
		"quad_preview",
		"pixel_generate",
		"pixel_calibrate",
		"pixel_super_calibrate",
		"pixel_grid_overlay",
		"pixel_measure",
		"palette_suggest",
	}

	for _, name := range toolsRequiringPath {
		t.Run(name, func(t *testing.T) {
			tool := toolByName(t, name)
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}

			hasPath := false
			for _, r := range required {
				if r == "path" {
					hasPath = true
					break
				}
			}
			if !hasPath {
				t.Error("Tool should require 'path' parameter")
			}
		})
	}
}

func TestToolDefinitions_QuadArguments(t *testing.T) {
	quadTools := []string{
		"quad_adjust",
		"quad_preview",
		"pixel_generate",
		"pixel_calibrate",
		"pixel_super_calibrate",
		"pixel_grid_overlay",
		"palette_suggest",
	}

	for _, name := range quadTools {
		t.Run(name, func(t *testing.T) {
			props := toolByName(t, name).InputSchema["properties"].(map[string]interface{})
			for _, arg := range []string{"quad", "rotation", "skew_x", "skew_y", "isometric"} {
				if _, ok := props[arg]; !ok {
					t.Errorf("missing quad argument %q", arg)
				}
			}
		})
	}
}

func TestToolDefinitions_MethodEnum(t *testing.T) {
	want := []string{"mean", "median", "mode", "kernelMedian", "centerWeighted", "centerSpot"}

	for _, name := range []string{"pixel_generate", "pixel_calibrate"} {
		t.Run(name, func(t *testing.T) {
			props := toolByName(t, name).InputSchema["properties"].(map[string]interface{})
			method, ok := props["method"].(map[string]interface{})
			if !ok {
				t.Fatal("method property should exist and be a map")
			}
			enum, ok := method["enum"].([]string)
			if !ok {
				t.Fatal("method should have enum")
			}
			if len(enum) != len(want) {
				t.Fatalf("enum: got %v, want %v", enum, want)
			}
			for i := range want {
				if enum[i] != want[i] {
					t.Errorf("enum[%d]: got %s, want %s", i, enum[i], want[i])
				}
			}
		})
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"quad_preview":       {"scale": 1, "rotation": 0, "isometric": false},
		"pixel_generate":     {"width": 64, "height": 64, "method": "mean", "color_limit": true, "remove_background": true, "sample_size": 5},
		"pixel_calibrate":    {"current_width": 64, "current_height": 64, "method": "mean"},
		"pixel_grid_overlay": {"scale": 1, "show_coordinates": false, "grid_color": "#FF000080"},
		"palette_suggest":    {"count": 8, "method": "dominant"},
	}

	for toolName, expectedDefaults := range toolDefaults {
		props, ok := toolByName(t, toolName).InputSchema["properties"].(map[string]interface{})
		if !ok {
			t.Errorf("%s: properties should be a map", toolName)
			continue
		}

		for paramName, expectedDefault := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s.%s: parameter not found or not a map", toolName, paramName)
				continue
			}

			actualDefault, ok := param["default"]
			if !ok {
				t.Errorf("%s.%s: missing default value", toolName, paramName)
				continue
			}

			switch expected := expectedDefault.(type) {
			case int:
				actual, ok := actualDefault.(int)
				if !ok || actual != expected {
					t.Errorf("%s.%s: default got %v, want %v", toolName, paramName, actualDefault, expected)
				}
			case string:
				actual, ok := actualDefault.(string)
				if !ok || actual != expected {
					t.Errorf("%s.%s: default got %v, want %v", toolName, paramName, actualDefault, expected)
				}
			case bool:
				actual, ok := actualDefault.(bool)
				if !ok || actual != expected {
					t.Errorf("%s.%s: default got %v, want %v", toolName, paramName, actualDefault, expected)
				}
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}

	expected := GetToolDefinitions()
	if len(toolsList) != len(expected) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(expected))
	}
}
