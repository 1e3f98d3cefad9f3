package model

// WebVitals carries the performance samples a probe may report. Every field
// is individually optional; a missing sample stays nil rather than zero so
// downstream rating can skip it.
type WebVitals struct {
	// LCP is largest contentful paint, in milliseconds.
	LCP *float64 `json:"lcp,omitempty"`

	// CLS is cumulative layout shift, unitless.
	CLS *float64 `json:"cls,omitempty"`

	// TTFB is time to first byte, in milliseconds.
	TTFB *float64 `json:"ttfb,omitempty"`

	// FCP is first contentful paint, in milliseconds.
	FCP *float64 `json:"fcp,omitempty"`

	// TTI is time to interactive, in milliseconds.
	TTI *float64 `json:"tti,omitempty"`
}

// VitalName identifies one of the web vitals metrics.
type VitalName string

const (
	VitalLCP  VitalName = "lcp"
	VitalCLS  VitalName = "cls"
	VitalTTFB VitalName = "ttfb"
	VitalFCP  VitalName = "fcp"
	VitalTTI  VitalName = "tti"
)

// VitalNames lists the metrics in display order.
var VitalNames = []VitalName{VitalLCP, VitalCLS, VitalTTFB, VitalFCP, VitalTTI}

// Value returns the sample for the named vital, or nil when absent.
func (v *WebVitals) Value(name VitalName) *float64 {
	if v == nil {
		return nil
	}
	switch name {
	case VitalLCP:
		return v.LCP
	case VitalCLS:
		return v.CLS
	case VitalTTFB:
		return v.TTFB
	case VitalFCP:
		return v.FCP
	case VitalTTI:
		return v.TTI
	}
	return nil
}
