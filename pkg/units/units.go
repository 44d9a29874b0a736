// Package units provides typed physical quantities so that masses, velocities
// and forces cannot be mixed up by accident.
package units

import "fmt"

// Mass is a mass in kilograms
type Mass float64

// Velocity is a velocity in meters per second
type Velocity float64

// Force is a force in newtons
type Force float64

// Isp is a specific impulse in seconds
type Isp float64

// Time is a duration in seconds
type Time float64

// Ratio is a dimensionless ratio
type Ratio float64

// Kilograms returns a Mass of kg kilograms
func Kilograms(kg float64) Mass { return Mass(kg) }

// Tonnes returns a Mass of t metric tonnes
func Tonnes(t float64) Mass { return Mass(t * 1000) }

// Kg returns the mass in kilograms
func (m Mass) Kg() float64 { return float64(m) }

// Tonnes returns the mass in metric tonnes
func (m Mass) Tonnes() float64 { return float64(m) / 1000 }

// Add returns m + o
func (m Mass) Add(o Mass) Mass { return m + o }

// Sub returns m - o
func (m Mass) Sub(o Mass) Mass { return m - o }

// Scale returns m multiplied by k
func (m Mass) Scale(k float64) Mass { return Mass(float64(m) * k) }

// Div divides two masses and yields a ratio
func (m Mass) Div(o Mass) Ratio { return Ratio(float64(m) / float64(o)) }

func (m Mass) String() string {
	if m >= 10_000 {
		return fmt.Sprintf("%s t", FormatThousands(m.Tonnes()))
	}
	return fmt.Sprintf("%s kg", FormatThousands(m.Kg()))
}

// MetersPerSecond returns a Velocity of mps m/s
func MetersPerSecond(mps float64) Velocity { return Velocity(mps) }

// KilometersPerSecond returns a Velocity of kps km/s
func KilometersPerSecond(kps float64) Velocity { return Velocity(kps * 1000) }

// Mps returns the velocity in m/s
func (v Velocity) Mps() float64 { return float64(v) }

// Add returns v + o
func (v Velocity) Add(o Velocity) Velocity { return v + o }

// Sub returns v - o
func (v Velocity) Sub(o Velocity) Velocity { return v - o }

// Scale returns v multiplied by k
func (v Velocity) Scale(k float64) Velocity { return Velocity(float64(v) * k) }

func (v Velocity) String() string {
	return fmt.Sprintf("%s m/s", FormatThousands(float64(v)))
}

// Newtons returns a Force of n newtons
func Newtons(n float64) Force { return Force(n) }

// Kilonewtons returns a Force of kn kilonewtons
func Kilonewtons(kn float64) Force { return Force(kn * 1000) }

// N returns the force in newtons
func (f Force) N() float64 { return float64(f) }

// KN returns the force in kilonewtons
func (f Force) KN() float64 { return float64(f) / 1000 }

// Add returns f + o
func (f Force) Add(o Force) Force { return f + o }

// Scale returns f multiplied by k
func (f Force) Scale(k float64) Force { return Force(float64(f) * k) }

func (f Force) String() string {
	return fmt.Sprintf("%s kN", FormatThousands(f.KN()))
}

// Seconds returns an Isp of s seconds
func Seconds(s float64) Isp { return Isp(s) }

// S returns the specific impulse in seconds
func (i Isp) S() float64 { return float64(i) }

// Scale returns i multiplied by k
func (i Isp) Scale(k float64) Isp { return Isp(float64(i) * k) }

func (i Isp) String() string { return fmt.Sprintf("%.0f s", float64(i)) }

// Duration returns a Time of s seconds
func Duration(s float64) Time { return Time(s) }

// S returns the time in seconds
func (t Time) S() float64 { return float64(t) }

// Add returns t + o
func (t Time) Add(o Time) Time { return t + o }

func (t Time) String() string { return fmt.Sprintf("%.1f s", float64(t)) }

// F returns the ratio as a plain float64
func (r Ratio) F() float64 { return float64(r) }

func (r Ratio) String() string { return fmt.Sprintf("%.2f", float64(r)) }
