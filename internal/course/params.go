package course

import (
	"fmt"
	"math"
)

// Default UAV parameters used when a caller does not override them.
const (
	DefaultSpeed    = 2.0
	DefaultWaitTime = 10.0
)

// Params are the UAV characteristics that hold for a whole course.
type Params struct {
	Speed    float64 `json:"speed" yaml:"speed"`       // distance units per second
	WaitTime float64 `json:"waitTime" yaml:"waitTime"` // seconds charged at every visited point
}

// DefaultParams returns the stock UAV parameters.
func DefaultParams() Params {
	return Params{Speed: DefaultSpeed, WaitTime: DefaultWaitTime}
}

// Validate rejects parameters the optimizer cannot use. Values are never
// clamped or replaced.
func (p Params) Validate() error {
	if math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) || p.Speed <= 0 {
		return fmt.Errorf("%w: speed must be > 0, got %v", ErrInvalidParameter, p.Speed)
	}
	if math.IsNaN(p.WaitTime) || math.IsInf(p.WaitTime, 0) || p.WaitTime < 0 {
		return fmt.Errorf("%w: wait time must be >= 0, got %v", ErrInvalidParameter, p.WaitTime)
	}
	return nil
}
