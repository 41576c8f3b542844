package cube

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/channelfit/internal/monitoring"
	"github.com/banshee-data/channelfit/internal/units"
)

// Raw is a cube image as read from a file: (channel, row, column) values
// in file order with NaN blanks, and the keyword header.
type Raw struct {
	NV, NY, NX int
	Data       []float64
	Header     Header
}

// LoadOptions control the preprocessing applied by Load. Nil bounds leave
// the axis uncropped.
type LoadOptions struct {
	// CenterRA and CenterDec (degrees) recentre the sky axes on the
	// target. When nil the reference pixel is the origin.
	CenterRA, CenterDec *float64
	DistancePC          float64
	VSys                float64

	XMin, XMax *float64
	YMin, YMax *float64
	VMin, VMax *float64

	XSkip, YSkip int

	// Sigma overrides the noise estimate.
	Sigma *float64

	// CenteringVelocity resamples the spectra so that one channel sits at
	// exactly zero velocity.
	CenteringVelocity bool
}

type axis struct {
	crpix, cdelt, crval float64
}

func readAxis(h *Header, n int) (axis, error) {
	cdelt, ok := h.Float(fmt.Sprintf("CDELT%d", n))
	if !ok || cdelt == 0 {
		return axis{}, fmt.Errorf("header has no usable CDELT%d", n)
	}
	return axis{
		crpix: h.FloatOr(fmt.Sprintf("CRPIX%d", n), 1),
		cdelt: cdelt,
		crval: h.FloatOr(fmt.Sprintf("CRVAL%d", n), 0),
	}, nil
}

// Load turns a raw file image into an Observation: noise estimate, pixel
// decimation, conversion of the sky axes to au and the spectral axis to
// km/s relative to the systemic velocity, cropping, optional velocity
// recentring, and beam conversion.
func Load(raw *Raw, opts LoadOptions) (*Observation, error) {
	if raw == nil {
		return nil, errors.New("nil raw cube")
	}
	if raw.NV < 2 || raw.NY < 2 || raw.NX < 2 {
		return nil, fmt.Errorf("cube must have at least 2 pixels per axis, got (%d, %d, %d)", raw.NV, raw.NY, raw.NX)
	}
	if len(raw.Data) != raw.NV*raw.NY*raw.NX {
		return nil, fmt.Errorf("cube data has %d values, shape needs %d", len(raw.Data), raw.NV*raw.NY*raw.NX)
	}
	dist := opts.DistancePC
	if dist == 0 {
		dist = 1
	}
	if dist < 0 {
		return nil, fmt.Errorf("distance must be positive, got %g", dist)
	}
	xskip, yskip := max(opts.XSkip, 1), max(opts.YSkip, 1)

	h := raw.Header.Clone()
	ax1, err := readAxis(&h, 1)
	if err != nil {
		return nil, err
	}
	ax2, err := readAxis(&h, 2)
	if err != nil {
		return nil, err
	}
	ax3, err := readAxis(&h, 3)
	if err != nil {
		return nil, err
	}

	spectral := units.SpectralAxis(h.String("CTYPE3"))
	restFreq, hasRest := h.Float("RESTFRQ")
	if !hasRest {
		restFreq, hasRest = h.Float("RESTFREQ")
	}
	switch {
	case spectral == "" && h.String("CTYPE3") == "" && hasRest:
		spectral = units.Freq
	case spectral == "":
		return nil, fmt.Errorf("unsupported spectral axis %q (want one of %s)", h.String("CTYPE3"), units.GetValidSpectralAxesString())
	case spectral == units.Freq && !hasRest:
		return nil, errors.New("frequency axis needs RESTFRQ")
	}

	var sigma float64
	if opts.Sigma != nil {
		sigma = *opts.Sigma
	} else {
		sigma = edgeSigma(raw)
		if !(sigma > 0) {
			return nil, errors.New("cannot estimate sigma from the edge channels")
		}
		monitoring.Logf("sigma = %.3e", sigma)
	}

	// Sky offsets of the target from the reference pixel, in degrees on
	// the sky.
	var cx, cy float64
	if opts.CenterRA != nil && opts.CenterDec != nil {
		cx = (*opts.CenterRA - ax1.crval) * math.Cos(*opts.CenterDec*math.Pi/180)
		cy = *opts.CenterDec - ax2.crval
	}

	xi, ax1 := decimate(raw.NX, ax1, xskip)
	yi, ax2 := decimate(raw.NY, ax2, yskip)
	h.Set("CRPIX1", ax1.crpix)
	h.Set("CDELT1", ax1.cdelt)
	h.Set("CRPIX2", ax2.crpix)
	h.Set("CDELT2", ax2.cdelt)

	x := make([]float64, len(xi))
	for n := range xi {
		x[n] = units.DegToAU((float64(n)+1-ax1.crpix)*ax1.cdelt-cx, dist)
	}
	y := make([]float64, len(yi))
	for n := range yi {
		y[n] = units.DegToAU((float64(n)+1-ax2.crpix)*ax2.cdelt-cy, dist)
	}
	toVelocity := func(w float64) float64 {
		if spectral == units.Freq {
			return units.FreqToVelocity(w, restFreq) - opts.VSys
		}
		return units.ToKMPS(w, h.String("CUNIT3")) - opts.VSys
	}
	v := make([]float64, raw.NV)
	for k := range v {
		v[k] = toVelocity((float64(k)+1-ax3.crpix)*ax3.cdelt + ax3.crval)
	}

	i0, i1 := cropRange(x, opts.XMin, opts.XMax)
	j0, j1 := cropRange(y, opts.YMin, opts.YMax)
	x, xi = x[i0:i1+1], xi[i0:i1+1]
	y, yi = y[j0:j1+1], yi[j0:j1+1]
	h.Set("CRPIX1", ax1.crpix-float64(i0))
	h.Set("CRPIX2", ax2.crpix-float64(j0))

	// File channel of each ascending-velocity channel.
	ki := make([]int, raw.NV)
	for k := range ki {
		ki[k] = k
	}
	flipped := v[len(v)-1] < v[0]
	if flipped {
		reverse(v)
		reverse(ki)
	}

	nx, ny := len(x), len(y)
	data := make([]float64, raw.NV*ny*nx)
	for k, fk := range ki {
		for j, fj := range yi {
			for i, fi := range xi {
				data[(k*ny+j)*nx+i] = raw.Data[(fk*raw.NY+fj)*raw.NX+fi]
			}
		}
	}

	if opts.CenteringVelocity {
		shift := v[argminAbs(v, 0)]
		if shift != 0 {
			data, err = recentre(data, v, shift, ny*nx)
			if err != nil {
				return nil, err
			}
			for k := range v {
				v[k] -= shift
			}
			if spectral == units.Freq {
				h.Set("CRVAL3", ax3.crval+restFreq*shift*1e3/units.C)
			} else {
				h.Set("CRVAL3", ax3.crval-shift*unitPerKMPS(h.String("CUNIT3")))
			}
		}
	}

	k0, k1 := cropRange(v, opts.VMin, opts.VMax)
	v = v[k0 : k1+1]
	data = data[k0*ny*nx : (k1+1)*ny*nx]
	kept := ki[k0 : k1+1]
	h.Set("CRPIX3", ax3.crpix-float64(min(kept[0], kept[len(kept)-1])))

	if len(x) < 2 || len(y) < 2 || len(v) < 2 {
		return nil, fmt.Errorf("cropped cube too small: (%d, %d, %d)", len(v), len(y), len(x))
	}
	h.Set("NAXIS", 3)
	h.Set("NAXIS1", nx)
	h.Set("NAXIS2", ny)
	h.Set("NAXIS3", len(v))

	c, err := FromNaN(len(v), ny, nx, data)
	if err != nil {
		return nil, err
	}
	obs := &Observation{
		X: x, Y: y, V: v,
		Dx: x[1] - x[0], Dy: y[1] - y[0], Dv: v[1] - v[0],
		Data:    c,
		Sigma:   sigma,
		Header:  h,
		Flipped: flipped,
	}

	bmaj, okMaj := h.Float("BMAJ")
	bmin, okMin := h.Float("BMIN")
	if okMaj && okMin && bmaj > 0 && bmin > 0 {
		obs.Beam = Beam{
			Major: units.DegToAU(bmaj, dist),
			Minor: units.DegToAU(bmin, dist),
			PA:    h.FloatOr("BPA", 0),
		}
	} else {
		obs.Beam = Beam{Major: math.Abs(obs.Dy), Minor: math.Abs(obs.Dx)}
		obs.SyntheticBeam = true
		monitoring.Warnf("no valid beam in the cube header; using a one-pixel beam (%.2f x %.2f au)", obs.Beam.Major, obs.Beam.Minor)
	}

	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return obs, nil
}

// unitPerKMPS is the number of CUNIT3 units in one km/s.
func unitPerKMPS(unit string) float64 {
	return 1 / units.ToKMPS(1, unit)
}

// edgeSigma estimates the noise as the mean of the population standard
// deviations of the first two and the last two channels.
func edgeSigma(raw *Raw) float64 {
	p := raw.NY * raw.NX
	collect := func(k0, k1 int) []float64 {
		var vals []float64
		for _, v := range raw.Data[k0*p : k1*p] {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
		return vals
	}
	first := collect(0, 2)
	last := collect(raw.NV-2, raw.NV)
	if len(first) == 0 || len(last) == 0 {
		return math.NaN()
	}
	return (stat.PopStdDev(first, nil) + stat.PopStdDev(last, nil)) / 2
}

// decimate keeps every skip-th pixel aligned on the reference pixel and
// returns the kept file indices with the adjusted axis.
func decimate(n int, a axis, skip int) ([]int, axis) {
	ref := int(a.crpix) - 1
	start := ((ref % skip) + skip) % skip
	var idx []int
	for i := start; i < n; i += skip {
		idx = append(idx, i)
	}
	a.crpix = 1 + (a.crpix-1-float64(start))/float64(skip)
	a.cdelt *= float64(skip)
	return idx, a
}

// cropRange returns the inclusive index range between the pixels nearest
// to lo and hi.
func cropRange(vals []float64, lo, hi *float64) (int, int) {
	a, b := 0, len(vals)-1
	if lo != nil {
		a = argminAbs(vals, *lo)
	}
	if hi != nil {
		b = argminAbs(vals, *hi)
	}
	// Descending axes put hi before lo.
	descending := vals[len(vals)-1] < vals[0]
	if descending && lo != nil && hi == nil {
		a, b = 0, a
	}
	if descending && hi != nil && lo == nil {
		a, b = b, len(vals)-1
	}
	if a > b {
		a, b = b, a
	}
	return a, b
}

func argminAbs(vals []float64, target float64) int {
	best, bestD := 0, math.Inf(1)
	for i, v := range vals {
		if d := math.Abs(v - target); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// recentre resamples every spectrum of data (channel-major, plane pixels
// per channel) from velocities v onto v - shift with a not-a-knot cubic
// spline. Samples outside the original axis are zero. Spectra with a
// blank channel stay blank.
func recentre(data, v []float64, shift float64, plane int) ([]float64, error) {
	nv := len(v)
	if nv < 3 {
		return nil, fmt.Errorf("velocity recentring needs at least 3 channels, got %d", nv)
	}
	out := make([]float64, len(data))
	spec := make([]float64, nv)
	var spline interp.NotAKnotCubic
	for p := 0; p < plane; p++ {
		blank := false
		for k := 0; k < nv; k++ {
			spec[k] = data[k*plane+p]
			if math.IsNaN(spec[k]) {
				blank = true
			}
		}
		if blank {
			for k := 0; k < nv; k++ {
				out[k*plane+p] = math.NaN()
			}
			continue
		}
		if err := spline.Fit(v, spec); err != nil {
			return nil, fmt.Errorf("velocity recentring: %w", err)
		}
		for k := 0; k < nv; k++ {
			// Channel k now holds velocity v[k]-shift, the original
			// spectrum at that velocity.
			q := v[k] - shift
			if q < v[0] || q > v[nv-1] {
				continue
			}
			out[k*plane+p] = spline.Predict(q)
		}
	}
	return out, nil
}
