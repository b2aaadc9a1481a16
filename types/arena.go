package types

import "fmt"

/*
Arena holds every buffer a solver needs, allocated once for a fixed grid
size and handed out as named views. Views never reallocate; writing past
the grid length panics.
*/
type Arena struct {
	N       int
	real    map[string]RealField
	complex map[string]Spectrum
}

func NewArena(N int) *Arena {
	if N <= 0 {
		panic(fmt.Errorf("arena size must be positive, have %d", N))
	}
	return &Arena{
		N:       N,
		real:    make(map[string]RealField),
		complex: make(map[string]Spectrum),
	}
}

// Real returns the named real buffer, allocating it on first use
func (a *Arena) Real(name string) RealField {
	if f, present := a.real[name]; present {
		return f
	}
	f := RealField{data: make([]float64, a.N)}
	a.real[name] = f
	return f
}

// Complex returns the named complex buffer, allocating it on first use
func (a *Arena) Complex(name string) Spectrum {
	if s, present := a.complex[name]; present {
		return s
	}
	s := Spectrum{data: make([]complex128, a.N)}
	a.complex[name] = s
	return s
}

// Footprint reports the number of bytes held by the arena
func (a *Arena) Footprint() (bytes int) {
	bytes = 8*a.N*len(a.real) + 16*a.N*len(a.complex)
	return
}

type RealField struct {
	data []float64
}

func (f RealField) Len() int { return len(f.data) }

func (f RealField) At(i int) float64 {
	f.check(i)
	return f.data[i]
}

func (f RealField) Set(i int, v float64) {
	f.check(i)
	f.data[i] = v
}

// Data exposes the backing slice for tight loops and transforms
func (f RealField) Data() []float64 { return f.data }

func (f RealField) Fill(v float64) {
	for i := range f.data {
		f.data[i] = v
	}
}

func (f RealField) CopyFrom(src RealField) {
	if len(src.data) != len(f.data) {
		panic(fmt.Errorf("mismatched field lengths %d and %d", len(f.data), len(src.data)))
	}
	copy(f.data, src.data)
}

func (f RealField) check(i int) {
	if i < 0 || i >= len(f.data) {
		panic(fmt.Errorf("index %d out of range [0,%d)", i, len(f.data)))
	}
}

type Spectrum struct {
	data []complex128
}

func (s Spectrum) Len() int { return len(s.data) }

func (s Spectrum) At(i int) complex128 {
	s.check(i)
	return s.data[i]
}

func (s Spectrum) Set(i int, v complex128) {
	s.check(i)
	s.data[i] = v
}

func (s Spectrum) Data() []complex128 { return s.data }

func (s Spectrum) Zero() {
	for i := range s.data {
		s.data[i] = 0
	}
}

func (s Spectrum) CopyFrom(src Spectrum) {
	if len(src.data) != len(s.data) {
		panic(fmt.Errorf("mismatched spectrum lengths %d and %d", len(s.data), len(src.data)))
	}
	copy(s.data, src.data)
}

// LoadReal sets the spectrum to the real values of f
func (s Spectrum) LoadReal(f RealField) {
	if len(f.data) != len(s.data) {
		panic(fmt.Errorf("mismatched lengths %d and %d", len(s.data), len(f.data)))
	}
	for i, v := range f.data {
		s.data[i] = complex(v, 0)
	}
}

// StoreReal writes the real part of the spectrum buffer into f
func (s Spectrum) StoreReal(f RealField) {
	if len(f.data) != len(s.data) {
		panic(fmt.Errorf("mismatched lengths %d and %d", len(s.data), len(f.data)))
	}
	for i, v := range s.data {
		f.data[i] = real(v)
	}
}

func (s Spectrum) check(i int) {
	if i < 0 || i >= len(s.data) {
		panic(fmt.Errorf("index %d out of range [0,%d)", i, len(s.data)))
	}
}
