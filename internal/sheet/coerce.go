package sheet

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	numericPrefix  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	nonNumericChar = regexp.MustCompile(`[^0-9.\-]`)
)

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// Text renders a cell as a string without trimming.
func Text(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Decimal reads a monetary cell. Strings are parsed by their leading numeric
// prefix ("10€" reads as 10); anything unparsable is zero.
func Decimal(cell any) decimal.Decimal {
	if d, ok := numericCell(cell); ok {
		return d
	}
	s, ok := cell.(string)
	if !ok {
		return decimal.Zero
	}
	prefix := numericPrefix.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LooseDecimal strips every character other than digits, "." and "-" from
// string cells before parsing. Unparsable input is zero.
func LooseDecimal(cell any) decimal.Decimal {
	if d, ok := numericCell(cell); ok {
		return d
	}
	s, ok := cell.(string)
	if !ok {
		return decimal.Zero
	}
	cleaned := nonNumericChar.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Int reads a whole number, truncating fractions. ok is false for empty or
// non-numeric cells.
func Int(cell any) (int, bool) {
	if d, ok := numericCell(cell); ok {
		return int(d.IntPart()), true
	}
	s, isString := cell.(string)
	if !isString {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Date reads a date cell: time values, Excel serial numbers (as numbers or
// numeric strings) and the textual layouts seen in exports. Results are UTC.
func Date(cell any) (time.Time, bool) {
	switch v := cell.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	if d, ok := numericCell(cell); ok {
		return fromSerial(d.InexactFloat64())
	}
	return time.Time{}, false
}

func fromSerial(serial float64) (time.Time, bool) {
	if serial <= 0 || serial > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func numericCell(cell any) (decimal.Decimal, bool) {
	switch v := cell.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, true
		}
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Zero, false
}
