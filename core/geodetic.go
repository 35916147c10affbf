package core

import (
	"errors"
	"fmt"
	"math"
)

// Reference ellipsoid.
const (
	RadiusEquatorialKm = 6378.137       // equatorial radius (km)
	Eccentricity       = 0.081819221456 // first eccentricity

	eccentricitySq = Eccentricity * Eccentricity
)

const (
	// MaxGeodeticIterations bounds the latitude fixed-point loop.
	MaxGeodeticIterations = 5
	// LatitudeTolerance is the step size (radians) below which the
	// latitude loop stops early.
	LatitudeTolerance = 1e-7
)

var (
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrAtOrigin           = fmt.Errorf("%w: position is at the Earth's centre", ErrDegenerateGeometry)
	ErrOnPolarAxis        = fmt.Errorf("%w: position lies on the polar axis", ErrDegenerateGeometry)
)

// Geodetic is a position on the reference ellipsoid.
//
// Iterations and Converged describe the latitude loop that produced LatRad:
// when the loop runs out of passes the position is still returned, with
// Converged set to false.
type Geodetic struct {
	LatRad   float64
	LonRad   float64
	HeightKm float64

	Iterations int
	Converged  bool
}

// LatDeg returns the latitude in degrees.
func (g Geodetic) LatDeg() float64 { return g.LatRad * 180.0 / math.Pi }

// LonDeg returns the longitude in degrees.
func (g Geodetic) LonDeg() float64 { return g.LonRad * 180.0 / math.Pi }

// GeodeticFromECEF converts an ECEF position (km) to geodetic latitude,
// longitude and height above the reference ellipsoid.
//
// Latitude starts from the spherical estimate asin(z/|p|) and is refined by
// fixed-point iteration on the prime-vertical radius of curvature, stopping
// once a step is no larger than LatitudeTolerance or after
// MaxGeodeticIterations passes. Points at the origin or on the polar axis are
// rejected with ErrAtOrigin or ErrOnPolarAxis. Non-finite input is not
// rejected and yields non-finite output.
func GeodeticFromECEF(p Vec3) (Geodetic, error) {
	norm := p.Norm()
	if norm == 0 {
		return Geodetic{}, ErrAtOrigin
	}
	rLon := p.HorizontalNorm()
	if rLon == 0 {
		return Geodetic{}, ErrOnPolarAxis
	}

	g := Geodetic{LonRad: math.Atan2(p.Y, p.X)}

	lat := math.Asin(p.Z / norm)
	var cE float64
	for g.Iterations < MaxGeodeticIterations {
		sinLat := math.Sin(lat)
		cE = RadiusEquatorialKm / math.Sqrt(1-eccentricitySq*sinLat*sinLat)
		prev := lat
		lat = math.Atan((p.Z + cE*eccentricitySq*sinLat) / rLon)
		g.Iterations++
		if math.Abs(lat-prev) <= LatitudeTolerance {
			g.Converged = true
			break
		}
	}

	g.LatRad = lat
	g.HeightKm = rLon/math.Cos(lat) - cE
	return g, nil
}

// ECEFFromGeodetic converts a geodetic position (radians, km above the
// reference ellipsoid) to ECEF kilometres.
func ECEFFromGeodetic(latRad, lonRad, heightKm float64) Vec3 {
	sinLat, cosLat := math.Sincos(latRad)
	sinLon, cosLon := math.Sincos(lonRad)

	// Radius of curvature in the prime vertical.
	n := RadiusEquatorialKm / math.Sqrt(1-eccentricitySq*sinLat*sinLat)

	return Vec3{
		X: (n + heightKm) * cosLat * cosLon,
		Y: (n + heightKm) * cosLat * sinLon,
		Z: (n*(1-eccentricitySq) + heightKm) * sinLat,
	}
}
