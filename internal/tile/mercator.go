package tile

import (
	"image"
	"math"
)

const (
	// Size is the edge length of a Slippy-Map tile in pixels.
	Size = 256

	// MaxLatitude is the northern limit of the Web Mercator projection.
	// Beyond it tan/sec blow up and tile indices leave the grid.
	MaxLatitude = 85.05112878
)

// LatLngToTile returns the indices of the tile containing (lat, lng) at zoom.
// lat must stay within ±MaxLatitude; polar input is undefined.
func LatLngToTile(lat, lng float64, zoom int) (x, y int) {
	n := math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180.0

	x = int(math.Floor((lng + 180.0) / 360.0 * n))
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))
	return x, y
}

// TileToLatLng returns the north-west corner of tile (x, y) at zoom.
func TileToLatLng(x, y, zoom int) (lat, lng float64) {
	n := math.Exp2(float64(zoom))

	lng = float64(x)/n*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*float64(y)/n))) * 180.0 / math.Pi
	return lat, lng
}

// LatLngToPixel returns the continuous position of (lat, lng) in the
// 256·2^zoom pixel canvas covering the whole world at zoom.
func LatLngToPixel(lat, lng float64, zoom int) (px, py float64) {
	n := math.Exp2(float64(zoom)) * Size
	latRad := lat * math.Pi / 180.0

	px = (lng + 180.0) / 360.0 * n
	py = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	return px, py
}

// RoundPx rounds a fractional pixel position half-up. Every pixel
// snap in the tiler goes through here so edges agree between zoom levels.
func RoundPx(v float64) int {
	return int(math.Floor(v + 0.5))
}

// TilePixelRect returns the pixel rectangle of tile (x, y) at zoom, derived
// from its NW and SE corners.
func TilePixelRect(x, y, zoom int) image.Rectangle {
	nwLat, nwLng := TileToLatLng(x, y, zoom)
	seLat, seLng := TileToLatLng(x+1, y+1, zoom)

	minX, minY := LatLngToPixel(nwLat, nwLng, zoom)
	maxX, maxY := LatLngToPixel(seLat, seLng, zoom)

	return image.Rect(RoundPx(minX), RoundPx(minY), RoundPx(maxX), RoundPx(maxY))
}
