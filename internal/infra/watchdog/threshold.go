package watchdog

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Threshold is either an absolute amount of memory or a percentage of the pod limit.
type Threshold struct {
	quantity *resource.Quantity
	percent  float64
}

// ParseThreshold accepts a quantity ("512Mi", "1G") or a percentage of the limit ("90%").
func ParseThreshold(s string) (Threshold, error) {
	s = strings.TrimSpace(s)

	if pct, ok := strings.CutSuffix(s, "%"); ok {
		value, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return Threshold{}, fmt.Errorf("parse threshold %q: %w", s, err)
		}

		if value <= 0 || value > 100 {
			return Threshold{}, fmt.Errorf("parse threshold %q: %w", s, ErrInvalidThreshold)
		}

		return Threshold{percent: value}, nil
	}

	quantity, err := resource.ParseQuantity(s)
	if err != nil {
		return Threshold{}, fmt.Errorf("parse threshold %q: %w", s, err)
	}

	if quantity.Sign() <= 0 {
		return Threshold{}, fmt.Errorf("parse threshold %q: %w", s, ErrInvalidThreshold)
	}

	return Threshold{quantity: &quantity}, nil
}

// IsRelative reports whether the threshold depends on the pod memory limit.
func (t Threshold) IsRelative() bool {
	return t.quantity == nil
}

// Bytes resolves the threshold against limit; limit is ignored for absolute thresholds.
func (t Threshold) Bytes(limit *resource.Quantity) int64 {
	if t.quantity != nil {
		return t.quantity.Value()
	}

	if limit == nil {
		return 0
	}

	return int64(float64(limit.Value()) * t.percent / 100)
}

func (t Threshold) String() string {
	if t.quantity != nil {
		return t.quantity.String()
	}

	return strconv.FormatFloat(t.percent, 'f', -1, 64) + "%"
}
