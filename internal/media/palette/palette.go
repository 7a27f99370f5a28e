// Package palette derives a six-swatch color palette and a BlurHash
// placeholder from cover artwork.
package palette

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"sort"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// paletteSize is the longest side of the image the palette is computed from.
	paletteSize = 100

	// blurHashSize is the target size for BlurHash computation.
	blurHashSize = 64

	// Pixels more transparent than this, or near-white, are ignored.
	minAlpha   = 125
	whiteLevel = 250
)

// ErrNoPixels is returned when an image has no usable pixels.
var ErrNoPixels = errors.New("palette: no usable pixels")

// Palette holds the six swatches as #rrggbb. A swatch with no suitable
// color is empty.
type Palette struct {
	Vibrant      string
	DarkVibrant  string
	LightVibrant string
	Muted        string
	DarkMuted    string
	LightMuted   string
}

// Empty reports whether no swatch was found.
func (p *Palette) Empty() bool {
	return *p == Palette{}
}

// maxPixels bounds the decoded size of artwork (6000x6000).
const maxPixels = 36_000_000

// ErrTooLarge is returned for images whose header declares more than
// maxPixels pixels.
var ErrTooLarge = errors.New("palette: image too large")

// Decode decodes JPEG, PNG, GIF or WebP image bytes. The header is checked
// before any pixel data is allocated.
func Decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// BlurHashFromImage computes a 4x3 BlurHash on a small thumbnail of img.
func BlurHashFromImage(img image.Image) (string, error) {
	hash, err := blurhash.Encode(4, 3, downscale(img, blurHashSize))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// FromImage computes the palette of img.
func FromImage(img image.Image) (*Palette, error) {
	swatches := quantize(downscale(img, paletteSize))
	if len(swatches) == 0 {
		return nil, ErrNoPixels
	}
	return pick(swatches), nil
}

// downscale fits img within size x size, keeping the aspect ratio.
func downscale(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}

	dw, dh := size, size
	if w > h {
		dh = max(1, h*size/w)
	} else {
		dw = max(1, w*size/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// swatch is one quantized color bucket.
type swatch struct {
	r, g, b    uint8
	population int
	h, s, l    float64
}

func (s swatch) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", s.r, s.g, s.b)
}

// quantize buckets pixels at 5 bits per channel and averages each bucket.
func quantize(img image.Image) []swatch {
	type acc struct {
		r, g, b, n int
	}
	buckets := make(map[uint16]*acc)

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16>>8 < minAlpha {
				continue
			}
			// RGBA is alpha-premultiplied; undo it for partially transparent pixels.
			if a16 != 0xffff && a16 != 0 {
				r16 = r16 * 0xffff / a16
				g16 = g16 * 0xffff / a16
				b16 = b16 * 0xffff / a16
			}
			r, g, b := int(r16>>8), int(g16>>8), int(b16>>8)
			if r > whiteLevel && g > whiteLevel && b > whiteLevel {
				continue
			}

			key := uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3)
			a, ok := buckets[key]
			if !ok {
				a = &acc{}
				buckets[key] = a
			}
			a.r += r
			a.g += g
			a.b += b
			a.n++
		}
	}

	out := make([]swatch, 0, len(buckets))
	for _, a := range buckets {
		s := swatch{
			r:          uint8(a.r / a.n),
			g:          uint8(a.g / a.n),
			b:          uint8(a.b / a.n),
			population: a.n,
		}
		s.h, s.s, s.l = rgbToHSL(s.r, s.g, s.b)
		out = append(out, s)
	}

	// Map iteration order is random; scoring ties must not be.
	sort.Slice(out, func(i, j int) bool {
		if out[i].population != out[j].population {
			return out[i].population > out[j].population
		}
		return out[i].hex() < out[j].hex()
	})
	return out
}

type target struct {
	minLuma, targetLuma, maxLuma float64
	minSat, targetSat, maxSat    float64
}

var (
	targetVibrant      = target{0.3, 0.5, 0.7, 0.35, 1, 1}
	targetDarkVibrant  = target{0, 0.26, 0.45, 0.35, 1, 1}
	targetLightVibrant = target{0.55, 0.74, 1, 0.35, 1, 1}
	targetMuted        = target{0.3, 0.5, 0.7, 0, 0.3, 0.4}
	targetDarkMuted    = target{0, 0.26, 0.45, 0, 0.3, 0.4}
	targetLightMuted   = target{0.55, 0.74, 1, 0, 0.3, 0.4}
)

const (
	weightSaturation = 3
	weightLuma       = 6
	weightPopulation = 1
)

// pick chooses the best swatch for each target. A swatch is used at most once.
func pick(swatches []swatch) *Palette {
	maxPop := swatches[0].population
	used := make(map[int]bool)

	find := func(t target) *swatch {
		best, bestScore := -1, -1.0
		for i, s := range swatches {
			if used[i] {
				continue
			}
			if s.s < t.minSat || s.s > t.maxSat || s.l < t.minLuma || s.l > t.maxLuma {
				continue
			}
			score := weightSaturation*invertDiff(s.s, t.targetSat) +
				weightLuma*invertDiff(s.l, t.targetLuma) +
				weightPopulation*float64(s.population)/float64(maxPop)
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			return nil
		}
		used[best] = true
		return &swatches[best]
	}

	vibrant := find(targetVibrant)
	darkVibrant := find(targetDarkVibrant)
	lightVibrant := find(targetLightVibrant)
	muted := find(targetMuted)
	darkMuted := find(targetDarkMuted)
	lightMuted := find(targetLightMuted)

	// Derive a missing vibrant swatch from its dark sibling and vice versa.
	if vibrant == nil && darkVibrant != nil {
		vibrant = withLuma(*darkVibrant, targetVibrant.targetLuma)
	}
	if darkVibrant == nil && vibrant != nil {
		darkVibrant = withLuma(*vibrant, targetDarkVibrant.targetLuma)
	}

	return &Palette{
		Vibrant:      hexOf(vibrant),
		DarkVibrant:  hexOf(darkVibrant),
		LightVibrant: hexOf(lightVibrant),
		Muted:        hexOf(muted),
		DarkMuted:    hexOf(darkMuted),
		LightMuted:   hexOf(lightMuted),
	}
}

func withLuma(s swatch, l float64) *swatch {
	r, g, b := hslToRGB(s.h, s.s, l)
	return &swatch{r: r, g: g, b: b, h: s.h, s: s.s, l: l}
}

func hexOf(s *swatch) string {
	if s == nil {
		return ""
	}
	return s.hex()
}

func invertDiff(value, targetValue float64) float64 {
	return 1 - math.Abs(value-targetValue)
}
