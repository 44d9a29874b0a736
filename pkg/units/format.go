package units

import (
	"math"
	"strconv"
	"strings"
)

// FormatThousands rounds n to the nearest integer and renders it with comma
// thousands separators, e.g. 1234567.4 -> "1,234,567".
func FormatThousands(n float64) string {
	v := int64(math.Round(n))
	if v == 0 {
		return "0"
	}

	negative := v < 0
	if negative {
		v = -v
	}

	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
