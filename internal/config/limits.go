package config

import "fmt"

// BuildLimits is the height range a hooked dimension reports.
type BuildLimits struct {
	Max int16 `json:"max" yaml:"max" jsonschema:"title=Max,description=Exclusive upper build limit"`
	Min int16 `json:"min" yaml:"min" jsonschema:"title=Min,description=Lower build limit"`
}

// DefaultLimits is the stock overworld range.
var DefaultLimits = BuildLimits{Max: 320, Min: -64}

// Pack combines the pair into one 32-bit value: Max in the high half, Min
// in the low half.
func (l BuildLimits) Pack() int32 {
	return int32(l.Max)<<16 | int32(uint16(l.Min))
}

// Split is the inverse of Pack.
func Split(packed int32) BuildLimits {
	return BuildLimits{Max: int16(packed >> 16), Min: int16(packed & 0xFFFF)}
}

func (l BuildLimits) String() string {
	return fmt.Sprintf("%d..%d", l.Min, l.Max)
}
