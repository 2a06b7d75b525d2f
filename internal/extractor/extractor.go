// Package extractor computes the per-frame scalar samples: the pulse signal from a skin
// region and the eye redness from the eye regions.
package extractor

import (
	"fmt"
	"image"
	"strings"
)

// Method is the chrominance formula used to turn a region into one pulse sample.
type Method int

const (
	// Chrominance is 3·R − 2·G − B over the region channel means.
	Chrominance Method = iota
	// GreenDominance is G − (R + B)/2 over the region channel means.
	GreenDominance
)

// ParseMethod accepts "chrom"/"chrominance" and "green"/"green-dominance".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chrom", "chrominance":
		return Chrominance, nil
	case "green", "green-dominance":
		return GreenDominance, nil
	default:
		return 0, fmt.Errorf("unknown extraction method %q", s)
	}
}

func (m Method) String() string {
	switch m {
	case Chrominance:
		return "chrom"
	case GreenDominance:
		return "green"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Combine applies the formula to channel means.
func (m Method) Combine(r, g, b float64) float64 {
	if m == GreenDominance {
		return g - (r+b)/2
	}
	return 3*r - 2*g - b
}

// Extract returns the sample for region. ok is false for a nil or zero-area region,
// which callers treat as "no sample this frame".
func (m Method) Extract(region image.Image) (value float64, ok bool) {
	r, g, b, ok := ChannelMeans(region)
	if !ok {
		return 0, false
	}
	return m.Combine(r, g, b), true
}

// ChannelMeans returns the spatial mean of each 8-bit channel over region.
func ChannelMeans(region image.Image) (r, g, b float64, ok bool) {
	if region == nil {
		return 0, 0, 0, false
	}
	bounds := region.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n <= 0 {
		return 0, 0, 0, false
	}

	var sr, sg, sb uint64
	switch img := region.(type) {
	case *image.RGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
			for i := 0; i+2 < len(row); i += 4 {
				sr += uint64(row[i])
				sg += uint64(row[i+1])
				sb += uint64(row[i+2])
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				cr, cg, cb, _ := region.At(x, y).RGBA()
				sr += uint64(cr >> 8)
				sg += uint64(cg >> 8)
				sb += uint64(cb >> 8)
			}
		}
	}

	fn := float64(n)
	return float64(sr) / fn, float64(sg) / fn, float64(sb) / fn, true
}
