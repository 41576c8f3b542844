package model

import "fmt"

// Parameter names in canonical order.
const (
	NameMstar    = "Mstar"
	NameRc       = "Rc"
	NameCs       = "cs"
	NameH1       = "h1"
	NameH2       = "h2"
	NamePI       = "pI"
	NameRin      = "Rin"
	NameOffMajor = "offmajor"
	NameOffMinor = "offminor"
	NameOffVsys  = "offvsys"
	NameIncl     = "incl"
)

// Names lists every model parameter in the canonical order used by
// vectors, tables and stored runs.
var Names = []string{
	NameMstar, NameRc, NameCs, NameH1, NameH2, NamePI, NameRin,
	NameOffMajor, NameOffMinor, NameOffVsys, NameIncl,
}

// NumParams is the length of a parameter vector.
const NumParams = 11

// Params is one point in parameter space.
type Params struct {
	Mstar    float64 // central mass (M_sun)
	Rc       float64 // centrifugal radius (au)
	Cs       float64 // line width sigma (km/s)
	H1, H2   float64 // flare ratios z/r of the two surfaces, negative disables
	PI       float64 // radial intensity index
	Rin      float64 // inner radius (au)
	OffMajor float64 // centre offset along the major axis (au)
	OffMinor float64 // centre offset along the minor axis (au)
	OffVsys  float64 // systemic velocity offset (km/s)
	Incl     float64 // inclination offset from the configured value (deg)
}

func (p *Params) field(name string) (*float64, error) {
	switch name {
	case NameMstar:
		return &p.Mstar, nil
	case NameRc:
		return &p.Rc, nil
	case NameCs:
		return &p.Cs, nil
	case NameH1:
		return &p.H1, nil
	case NameH2:
		return &p.H2, nil
	case NamePI:
		return &p.PI, nil
	case NameRin:
		return &p.Rin, nil
	case NameOffMajor:
		return &p.OffMajor, nil
	case NameOffMinor:
		return &p.OffMinor, nil
	case NameOffVsys:
		return &p.OffVsys, nil
	case NameIncl:
		return &p.Incl, nil
	}
	return nil, fmt.Errorf("unknown parameter %q", name)
}

// Get returns the named parameter.
func (p Params) Get(name string) (float64, error) {
	f, err := p.field(name)
	if err != nil {
		return 0, err
	}
	return *f, nil
}

// Set assigns the named parameter.
func (p *Params) Set(name string, v float64) error {
	f, err := p.field(name)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Vector returns the parameters in Names order.
func (p Params) Vector() []float64 {
	return []float64{
		p.Mstar, p.Rc, p.Cs, p.H1, p.H2, p.PI, p.Rin,
		p.OffMajor, p.OffMinor, p.OffVsys, p.Incl,
	}
}

// FromVector is the inverse of Vector.
func FromVector(v []float64) (Params, error) {
	if len(v) != NumParams {
		return Params{}, fmt.Errorf("parameter vector has %d values, want %d", len(v), NumParams)
	}
	return Params{
		Mstar: v[0], Rc: v[1], Cs: v[2], H1: v[3], H2: v[4], PI: v[5], Rin: v[6],
		OffMajor: v[7], OffMinor: v[8], OffVsys: v[9], Incl: v[10],
	}, nil
}

// IsName reports whether name is a model parameter.
func IsName(name string) bool {
	var p Params
	_, err := p.field(name)
	return err == nil
}
