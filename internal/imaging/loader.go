package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultCacheSize is the number of decoded images an ImageCache keeps.
const DefaultCacheSize = 32

// Decode reads an image from r, applying the EXIF orientation tag so that
// phone photos of plates arrive upright. PNG, JPEG, GIF, BMP and TIFF are
// supported.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, fmt.Errorf("decoded image is empty (%dx%d)", b.Dx(), b.Dy())
	}
	return img, nil
}

// DecodeBytes is Decode over an in-memory upload.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode image: no data")
	}
	return Decode(bytes.NewReader(data))
}

// SniffFormat names the image format of data from its contents ("png",
// "jpeg", "tiff", ...). It returns "unknown" for anything that is not an
// image, whatever the file is called.
func SniffFormat(data []byte) string {
	mime := mimetype.Detect(data).String()
	if !strings.HasPrefix(mime, "image/") {
		return "unknown"
	}
	return strings.TrimPrefix(mime, "image/")
}

// ImageCache holds decoded, upright images keyed by path, so the MCP tools
// can run detect, locate and region reads on one photo without decoding
// it each time.
//
// An entry is reused only while the file's size and modification time are
// unchanged; a camera overwriting the same snapshot path is decoded again.
// Once the cache holds its limit, the entry loaded first is dropped.
// ImageCache is safe for concurrent use.
type ImageCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*cachedImage
	order   []string
}

type cachedImage struct {
	img     image.Image
	format  string
	size    int64
	modTime time.Time
}

// NewImageCache returns a cache holding at most limit images. A
// non-positive limit means DefaultCacheSize.
func NewImageCache(limit int) *ImageCache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &ImageCache{
		limit:   limit,
		entries: make(map[string]*cachedImage),
	}
}

// Load returns the decoded, auto-oriented image at path.
func (c *ImageCache) Load(path string) (image.Image, error) {
	e, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return e.img, nil
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ImageCache) load(path string) (*cachedImage, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("failed to open image: %s is a directory", path)
	}

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.size == st.Size() && e.modTime.Equal(st.ModTime()) {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := DecodeBytes(data)
	if err != nil {
		return nil, err
	}

	e := &cachedImage{
		img:     img,
		format:  SniffFormat(data),
		size:    st.Size(),
		modTime: st.ModTime(),
	}

	c.mu.Lock()
	c.put(path, e)
	c.mu.Unlock()
	return e, nil
}

// put stores e under path and trims the oldest entries. c.mu must be held.
func (c *ImageCache) put(path string, e *cachedImage) {
	if _, ok := c.entries[path]; !ok {
		c.order = append(c.order, path)
	}
	c.entries[path] = e
	for len(c.order) > c.limit {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// ImageInfo describes a photo as the plate tools will see it. Width and
// Height are after EXIF orientation, so a portrait phone shot reports its
// upright size.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`

	// Downscaled is true when plate locating runs on a copy reduced to
	// the detector's maximum width.
	Downscaled bool `json:"downscaled"`
}

// LoadImageInfo loads path through cache and describes it. maxWidth is the
// detector's locating width; zero means images are never reduced.
func LoadImageInfo(cache *ImageCache, path string, maxWidth int) (*ImageInfo, error) {
	e, err := cache.load(path)
	if err != nil {
		return nil, err
	}
	b := e.img.Bounds()
	return &ImageInfo{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Format:     e.format,
		Downscaled: maxWidth > 0 && b.Dx() > maxWidth,
	}, nil
}

// Size is an upright image size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LoadSize loads path through cache and returns its upright size.
func LoadSize(cache *ImageCache, path string) (*Size, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Size{Width: b.Dx(), Height: b.Dy()}, nil
}
