package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// AnnotateResult contains an image with candidate regions outlined.
type AnnotateResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Regions     int    `json:"regions"`
}

// DefaultAnnotateColor is used when the requested outline colour is empty
// or cannot be parsed.
const DefaultAnnotateColor = "#00FF00"

// Annotate draws a 2 pixel outline around every region and labels it with
// its index (0-based, in slice order). Regions are clamped to the image.
func Annotate(img image.Image, regions []Region, outlineHex string) (*AnnotateResult, error) {
	bounds := img.Bounds()

	outline, err := parseHexColor(outlineHex)
	if err != nil {
		outline, _ = parseHexColor(DefaultAnnotateColor)
	}

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	labelColor := color.RGBA{0, 0, 0, 255}
	for i, r := range regions {
		c := r.Clamp(bounds)
		if c.Empty() {
			continue
		}
		drawRect(result, c, outline, 2)
		drawLabel(result, c.X1+2, c.Y1+3, strconv.Itoa(i), labelColor, outline)
	}

	encoded, err := EncodePNGBase64(result)
	if err != nil {
		return nil, err
	}

	return &AnnotateResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Regions:     len(regions),
	}, nil
}

// parseHexColor parses "#RRGGBB" or "#RGB" into an opaque colour.
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) > 0 && hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func drawRect(img *image.RGBA, r Region, c color.RGBA, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := r.X1; x < r.X2; x++ {
			setIn(img, x, r.Y1+t, c)
			setIn(img, x, r.Y2-1-t, c)
		}
		for y := r.Y1; y < r.Y2; y++ {
			setIn(img, r.X1+t, y, c)
			setIn(img, r.X2-1-t, y, c)
		}
	}
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel font that covers digits only.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setIn(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setIn(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
