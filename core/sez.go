package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SEZ is a topocentric South-East-Zenith vector in kilometres.
type SEZ struct {
	S, E, Z float64
}

// LookAngles holds azimuth, elevation, and range of an SEZ vector.
type LookAngles struct {
	AzimuthRad   float64 // 0 = North, clockwise
	ElevationRad float64 // 0 = horizon, pi/2 = zenith
	RangeKm      float64
}

// RotateToSEZ rotates an ECEF displacement vector (km) into the SEZ frame of
// an observer at the given geodetic latitude and longitude (radians).
//
// Non-finite input propagates to the output.
func RotateToSEZ(d Vec3, latRad, lonRad float64) SEZ {
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinLon, cosLon := math.Sin(lonRad), math.Cos(lonRad)

	return SEZ{
		S: (sinLat*cosLon)*d.X + (sinLat*sinLon)*d.Y - cosLat*d.Z,
		E: -sinLon*d.X + cosLon*d.Y,
		Z: (cosLat*cosLon)*d.X + (cosLat*sinLon)*d.Y + sinLat*d.Z,
	}
}

// SEZRotation returns the ECEF->SEZ rotation matrix. Rows are the South,
// East and Zenith unit vectors expressed in ECEF.
func SEZRotation(latRad, lonRad float64) *mat.Dense {
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinLon, cosLon := math.Sin(lonRad), math.Cos(lonRad)

	return mat.NewDense(3, 3, []float64{
		sinLat * cosLon, sinLat * sinLon, -cosLat,
		-sinLon, cosLon, 0,
		cosLat * cosLon, cosLat * sinLon, sinLat,
	})
}

// ECEFFromSEZ maps an SEZ vector back to an ECEF displacement by applying the
// transpose of SEZRotation.
func ECEFFromSEZ(s SEZ, latRad, lonRad float64) Vec3 {
	r := SEZRotation(latRad, lonRad)

	var out mat.VecDense
	out.MulVec(r.T(), mat.NewVecDense(3, s.slice()))
	return Vec3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Range returns the length of the vector.
func (s SEZ) Range() float64 {
	return math.Sqrt(s.S*s.S + s.E*s.E + s.Z*s.Z)
}

// LookAngles converts the vector to azimuth, elevation and range. A zero
// vector yields zero angles.
func (s SEZ) LookAngles() LookAngles {
	rng := s.Range()
	if rng == 0 {
		return LookAngles{}
	}

	// North is -S. Straight up or down has no azimuth; report 0.
	var az float64
	if s.S != 0 || s.E != 0 {
		az = math.Atan2(s.E, -s.S)
		if az < 0 {
			az += 2 * math.Pi
		}
	}

	return LookAngles{
		AzimuthRad:   az,
		ElevationRad: math.Asin(s.Z / rng),
		RangeKm:      rng,
	}
}

// AzimuthDeg returns the azimuth in degrees.
func (l LookAngles) AzimuthDeg() float64 { return l.AzimuthRad * 180.0 / math.Pi }

// ElevationDeg returns the elevation in degrees.
func (l LookAngles) ElevationDeg() float64 { return l.ElevationRad * 180.0 / math.Pi }

func (s SEZ) slice() []float64 {
	return []float64{s.S, s.E, s.Z}
}
