package compare

import (
	"fmt"
	"sort"
)

// Method selects the difference-detection strategy of the extractor.
type Method string

const (
	// MethodEdges diffs dilated edge maps. Robust against global
	// brightness shifts, preferred for technical line drawings.
	MethodEdges Method = "edges"
	// MethodIntensity diffs blurred intensities. Simpler and more
	// sensitive.
	MethodIntensity Method = "intensity"
)

// Params is the immutable configuration bundle governing every numeric
// decision in the pipeline. It is constructed once per comparison run,
// usually from a named preset, and passed by value into every function
// that needs it.
type Params struct {
	DPI              int     `json:"dpi"`
	Method           Method  `json:"method"`
	AbsDiffThreshold int     `json:"absdiff_threshold"`
	SSIMThreshold    float64 `json:"ssim_threshold"`
	MorphKernelPx    int     `json:"morph_kernel_px"`
	DilateIterations int     `json:"dilate_iterations"`
	MinAreaPx        int     `json:"min_area_px"`
	PaddingPx        int     `json:"padding_px"`
	MergeIoU         float64 `json:"merge_iou_threshold"`
	TouchGapPx       float64 `json:"touch_gap_px"`
	ContainmentEpsPx float64 `json:"containment_eps_px"`
	AddedThreshold   int     `json:"added_threshold"`
	RemovedThreshold int     `json:"removed_threshold"`

	// Vector path settings.
	MatchIoU        float64 `json:"match_iou"`
	Adaptive        bool    `json:"adaptive"`
	PosTolerancePts float64 `json:"pos_tolerance_pts"`
	SizeEpsPts      float64 `json:"size_eps_pts"`
}

// RGB is a color with components in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// ColorScheme is the overlay palette used for annotated outputs.
type ColorScheme struct {
	Added   RGB `json:"added"`
	Removed RGB `json:"removed"`
}

// Style describes how diff rectangles are drawn onto an output PDF.
type Style struct {
	StrokeColor RGB     `json:"stroke_color"`
	FillColor   RGB     `json:"fill_color"`
	FillOpacity float64 `json:"fill_opacity"`
	StrokeWidth float64 `json:"stroke_width"`
}

// Preset bundles parameters with overlay styling under a name.
type Preset struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      Params      `json:"params"`
	Colors      ColorScheme `json:"colors"`
	FillOpacity float64     `json:"fill_opacity"`
	StrokeWidth float64     `json:"stroke_width"`
}

// StyleFor returns the drawing style for one change type.
func (p Preset) StyleFor(ct ChangeType) Style {
	col := p.Colors.Added
	if ct == Removed {
		col = p.Colors.Removed
	}
	return Style{
		StrokeColor: col,
		FillColor:   col,
		FillOpacity: p.FillOpacity,
		StrokeWidth: p.StrokeWidth,
	}
}

var defaultColors = ColorScheme{
	Added:   RGB{R: 0.0, G: 0.73, B: 0.0},
	Removed: RGB{R: 0.84, G: 0.0, B: 0.0},
}

var presets = map[string]Preset{
	"strict": {
		Name:        "strict",
		Description: "High confidence changes only; smallest tolerance.",
		Params: Params{
			DPI:              360,
			Method:           MethodEdges,
			AbsDiffThreshold: 35,
			SSIMThreshold:    0.22,
			MorphKernelPx:    3,
			DilateIterations: 1,
			MinAreaPx:        256,
			PaddingPx:        4,
			MergeIoU:         0.2,
			TouchGapPx:       2,
			ContainmentEpsPx: 1,
			AddedThreshold:   30,
			RemovedThreshold: 30,
			MatchIoU:         0.95,
			PosTolerancePts:  2,
			SizeEpsPts:       0.5,
		},
		Colors:      defaultColors,
		FillOpacity: 0.25,
		StrokeWidth: 1.1,
	},
	"balanced": {
		Name:        "balanced",
		Description: "Default mix of sensitivity and noise rejection.",
		Params: Params{
			DPI:              300,
			Method:           MethodEdges,
			AbsDiffThreshold: 25,
			SSIMThreshold:    0.15,
			MorphKernelPx:    5,
			DilateIterations: 1,
			MinAreaPx:        196,
			PaddingPx:        6,
			MergeIoU:         0.25,
			TouchGapPx:       4,
			ContainmentEpsPx: 2,
			AddedThreshold:   20,
			RemovedThreshold: 20,
			MatchIoU:         0.9,
			PosTolerancePts:  3,
			SizeEpsPts:       0.5,
		},
		Colors:      defaultColors,
		FillOpacity: 0.22,
		StrokeWidth: 1.0,
	},
	"loose": {
		Name:        "loose",
		Description: "Tolerates reprints and scanner noise; merges aggressively.",
		Params: Params{
			DPI:              240,
			Method:           MethodIntensity,
			AbsDiffThreshold: 18,
			SSIMThreshold:    0.1,
			MorphKernelPx:    7,
			DilateIterations: 2,
			MinAreaPx:        96,
			PaddingPx:        8,
			MergeIoU:         0.3,
			TouchGapPx:       8,
			ContainmentEpsPx: 3,
			AddedThreshold:   12,
			RemovedThreshold: 12,
			MatchIoU:         0.8,
			Adaptive:         true,
			PosTolerancePts:  4,
			SizeEpsPts:       1.0,
		},
		Colors:      defaultColors,
		FillOpacity: 0.2,
		StrokeWidth: 0.9,
	},
}

// DefaultParams returns the parameters of the balanced preset.
func DefaultParams() Params {
	return presets["balanced"].Params
}

// PresetByName looks up a named preset.
func PresetByName(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return p, nil
}

// PresetNames returns the available preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
