package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// SunDirection converts longitude/latitude angles in degrees to a unit
// vector pointing towards the sun. Longitude rotates around Y; latitude is
// the elevation above the horizon.
func SunDirection(longitude, latitude float32) mgl32.Vec3 {
	lon := mgl32.DegToRad(longitude)
	lat := mgl32.DegToRad(latitude)
	sinLat, cosLat := math32.Sincos(lat)
	sinLon, cosLon := math32.Sincos(lon)
	return mgl32.Vec3{cosLat * sinLon, sinLat, cosLat * cosLon}
}

// DefaultSun is the white directional light used when a scene has none.
func DefaultSun() gpu.LightRecord {
	return gpu.LightRecord{
		Type:      gpu.LightDirectional,
		Direction: SunDirection(45, 50).Mul(-1),
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Range:     math32.Inf(1),
	}
}
