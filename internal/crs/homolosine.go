package crs

import (
	"fmt"
	"math"
)

const (
	// WGS84 semi-major axis; igh is evaluated on a sphere of this radius.
	wgs84Radius = 6378137.0

	mollMaxIter = 10
	mollTol     = 1e-7
	zoneSlack   = 1e-10
)

const deg = math.Pi / 180

var (
	// latitude where the sinusoidal and Mollweide lobes have equal width
	phiJoin = (40 + 44.0/60 + 11.8/3600) * deg

	sqrt2   = math.Sqrt2
	mollCx  = 2 * math.Sqrt2 / math.Pi
	mollCy  = math.Sqrt2
	mollCp  = math.Pi
	mollDy0 = phiJoin - mollY(phiJoin)
)

type ighZone struct {
	moll   bool
	lam0   float64
	x0, y0 float64
	lo, hi float64 // valid longitude range, radians
}

// zones follow the PROJ igh numbering: 1-2 Mollweide north, 3-4 sinusoidal
// north, 5-8 sinusoidal south, 9-12 Mollweide south.
var ighZones = [12]ighZone{
	{moll: true, lam0: -100 * deg, x0: -100 * deg, y0: mollDy0, lo: -180 * deg, hi: -40 * deg},
	{moll: true, lam0: 30 * deg, x0: 30 * deg, y0: mollDy0, lo: -40 * deg, hi: 180 * deg},
	{lam0: -100 * deg, x0: -100 * deg, lo: -180 * deg, hi: -40 * deg},
	{lam0: 30 * deg, x0: 30 * deg, lo: -40 * deg, hi: 180 * deg},
	{lam0: -160 * deg, x0: -160 * deg, lo: -180 * deg, hi: -100 * deg},
	{lam0: -60 * deg, x0: -60 * deg, lo: -100 * deg, hi: -20 * deg},
	{lam0: 20 * deg, x0: 20 * deg, lo: -20 * deg, hi: 80 * deg},
	{lam0: 140 * deg, x0: 140 * deg, lo: 80 * deg, hi: 180 * deg},
	{moll: true, lam0: -160 * deg, x0: -160 * deg, y0: -mollDy0, lo: -180 * deg, hi: -100 * deg},
	{moll: true, lam0: -60 * deg, x0: -60 * deg, y0: -mollDy0, lo: -100 * deg, hi: -20 * deg},
	{moll: true, lam0: 20 * deg, x0: 20 * deg, y0: -mollDy0, lo: -20 * deg, hi: 80 * deg},
	{moll: true, lam0: 140 * deg, x0: 140 * deg, y0: -mollDy0, lo: 80 * deg, hi: 180 * deg},
}

// Homolosine is the spherical Interrupted Goode Homolosine projection used
// natively by SoilGrids rasters.
type Homolosine struct {
	Radius float64
}

func NewHomolosine() Homolosine {
	return Homolosine{Radius: wgs84Radius}
}

func (h Homolosine) Name() string { return "Interrupted_Goode_Homolosine" }

func (h Homolosine) radius() float64 {
	if h.Radius <= 0 {
		return wgs84Radius
	}
	return h.Radius
}

func (h Homolosine) Forward(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	lam, phi := lon*deg, lat*deg

	z := forwardZone(lam, phi)
	zone := ighZones[z-1]
	lam -= zone.lam0

	var x, y float64
	if zone.moll {
		x, y = mollForward(lam, phi)
	} else {
		x, y = lam*math.Cos(phi), phi
	}
	r := h.radius()
	return r * (x + zone.x0), r * (y + zone.y0), nil
}

func (h Homolosine) Inverse(x, y float64) (float64, float64, error) {
	r := h.radius()
	ux, uy := x/r, y/r

	z := inverseZone(ux, uy)
	if z == 0 {
		return 0, 0, fmt.Errorf("point (%v, %v) outside the homolosine domain", x, y)
	}
	zone := ighZones[z-1]
	ux -= zone.x0
	uy -= zone.y0

	var lam, phi float64
	if zone.moll {
		var ok bool
		lam, phi, ok = mollInverse(ux, uy)
		if !ok {
			return 0, 0, fmt.Errorf("point (%v, %v) outside the homolosine domain", x, y)
		}
	} else {
		phi = uy
		if c := math.Cos(phi); c > 1e-12 {
			lam = ux / c
		}
	}
	lam += zone.lam0

	if lam < zone.lo-zoneSlack || lam > zone.hi+zoneSlack {
		return 0, 0, fmt.Errorf("point (%v, %v) falls in an interruption", x, y)
	}
	return lam / deg, phi / deg, nil
}

func forwardZone(lam, phi float64) int {
	switch {
	case phi >= phiJoin:
		if lam <= -40*deg {
			return 1
		}
		return 2
	case phi >= 0:
		if lam <= -40*deg {
			return 3
		}
		return 4
	case phi >= -phiJoin:
		return southZone(lam, 5)
	default:
		return southZone(lam, 9)
	}
}

func southZone(lam float64, first int) int {
	switch {
	case lam <= -100*deg:
		return first
	case lam <= -20*deg:
		return first + 1
	case lam <= 80*deg:
		return first + 2
	default:
		return first + 3
	}
}

func inverseZone(x, y float64) int {
	y90 := mollDy0 + sqrt2
	switch {
	case y > y90+zoneSlack || y < -y90-zoneSlack:
		return 0
	case y >= phiJoin:
		if x <= -40*deg {
			return 1
		}
		return 2
	case y >= 0:
		if x <= -40*deg {
			return 3
		}
		return 4
	case y >= -phiJoin:
		return southZone(x, 5)
	default:
		return southZone(x, 9)
	}
}

// mollY is the unit-sphere Mollweide ordinate of latitude phi.
func mollY(phi float64) float64 {
	_, y := mollForward(0, phi)
	return y
}

func mollForward(lam, phi float64) (float64, float64) {
	k := mollCp * math.Sin(phi)
	theta := phi
	converged := false
	for range mollMaxIter {
		v := (theta + math.Sin(theta) - k) / (1 + math.Cos(theta))
		theta -= v
		if math.Abs(v) < mollTol {
			converged = true
			break
		}
	}
	if converged {
		theta *= 0.5
	} else if theta < 0 {
		theta = -math.Pi / 2
	} else {
		theta = math.Pi / 2
	}
	return mollCx * lam * math.Cos(theta), mollCy * math.Sin(theta)
}

func mollInverse(x, y float64) (lam, phi float64, ok bool) {
	s := y / mollCy
	if math.Abs(s) > 1+zoneSlack {
		return 0, 0, false
	}
	theta := math.Asin(clampUnit(s))
	c := math.Cos(theta)
	if c > 1e-12 {
		lam = x / (mollCx * c)
	}
	if math.Abs(lam) >= math.Pi {
		return 0, 0, false
	}
	theta += theta
	phi = math.Asin(clampUnit((theta + math.Sin(theta)) / mollCp))
	return lam, phi, true
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
