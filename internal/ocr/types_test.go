package ocr

import (
	"image"
	"math"
	"strings"
	"testing"
)

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()
	if len(profiles) != 4 {
		t.Fatalf("expected 4 profiles, got %d", len(profiles))
	}

	wantSeg := []Segmentation{SegmentSingleWord, SegmentSingleLine, SegmentSparseText, SegmentSingleBlock}
	names := make(map[string]bool)
	for i, p := range profiles {
		if p.Segmentation != wantSeg[i] {
			t.Errorf("profile %d: segmentation %v, want %v", i, p.Segmentation, wantSeg[i])
		}
		if !strings.HasPrefix(p.Whitelist, PlateAlphabet) {
			t.Errorf("profile %s whitelist %q should start with the plate alphabet", p.Name, p.Whitelist)
		}
		if names[p.Name] {
			t.Errorf("duplicate profile name %s", p.Name)
		}
		names[p.Name] = true
	}
	if profiles[2].Engine != EngineLSTM {
		t.Errorf("sparse profile should use the LSTM engine, got %v", profiles[2].Engine)
	}
}

func TestToken_Score(t *testing.T) {
	tests := []struct {
		name string
		tok  Token
		want float64
	}{
		{"percent", Token{Confidence: 87, Scale: ScalePercent}, 0.87},
		{"percent sentinel", Token{Confidence: -1, Scale: ScalePercent}, 0},
		{"percent tiny stays tiny", Token{Confidence: 0.9, Scale: ScalePercent}, 0.009},
		{"percent over range", Token{Confidence: 130, Scale: ScalePercent}, 1},
		{"fraction", Token{Confidence: 0.42, Scale: ScaleFraction}, 0.42},
		{"fraction negative", Token{Confidence: -0.1, Scale: ScaleFraction}, 0},
		{"unknown fraction", Token{Confidence: 0.8}, 0.8},
		{"unknown percent", Token{Confidence: 80}, 0.8},
		{"nan", Token{Confidence: math.NaN(), Scale: ScalePercent}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tok.Score(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundsFromRect(t *testing.T) {
	b := BoundsFromRect(image.Rect(3, 4, 10, 20))
	if b != (Bounds{X1: 3, Y1: 4, X2: 10, Y2: 20}) {
		t.Errorf("unexpected bounds %+v", b)
	}
}

func TestSegmentationString(t *testing.T) {
	if SegmentSparseText.String() != "sparse_text" {
		t.Errorf("got %s", SegmentSparseText)
	}
	if Segmentation(99).String() != "unknown" {
		t.Errorf("got %s", Segmentation(99))
	}
	if EngineLegacy.String() != "legacy" {
		t.Errorf("got %s", EngineLegacy)
	}
}
