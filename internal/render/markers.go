package render

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// markerSVG is a 64x64 unit token: a ringed disc with a chevron pointing
// toward the enemy edge.
const markerSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64" width="64" height="64">
<circle cx="32" cy="32" r="29" fill="{{ring}}"/>
<circle cx="32" cy="32" r="24" fill="{{fill}}"/>
<path d="{{chevron}}" fill="{{ring}}"/>
</svg>`

const (
	chevronUp   = "M32 14 L48 38 L40 38 L32 26 L24 38 L16 38 Z"
	chevronDown = "M32 50 L48 26 L40 26 L32 38 L24 26 L16 26 Z"
)

type markerStyle struct {
	fill string
	ring string
	up   bool
}

var (
	player1Marker = markerStyle{fill: "#2f6fd6", ring: "#dbe7ff", up: true}
	player2Marker = markerStyle{fill: "#c9423a", ring: "#ffe1dc", up: false}
)

func (s markerStyle) svg() string {
	chevron := chevronDown
	if s.up {
		chevron = chevronUp
	}
	return strings.NewReplacer("{{fill}}", s.fill, "{{ring}}", s.ring, "{{chevron}}", chevron).Replace(markerSVG)
}

type markerKey struct {
	style   markerStyle
	size    int
	opacity float64
}

var (
	markerCache   = map[markerKey]*image.RGBA{}
	markerCacheMu sync.RWMutex
)

// markerImage rasterises a marker once per style, size and opacity.
func markerImage(style markerStyle, size int, opacity float64) (*image.RGBA, error) {
	key := markerKey{style: style, size: size, opacity: opacity}

	markerCacheMu.RLock()
	img, ok := markerCache[key]
	markerCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(style.svg()))
	if err != nil {
		return nil, fmt.Errorf("parse marker svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img = image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), opacity)

	markerCacheMu.Lock()
	markerCache[key] = img
	markerCacheMu.Unlock()
	return img, nil
}
