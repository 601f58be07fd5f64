package sensor

import (
	"fmt"
	"strconv"
)

// ReportMarker prefixes every ASCII distance report ("R123").
const ReportMarker = 'R'

// CentimetersPerInch converts the MB1300's serial-mode centimeter
// reports to inches.
const CentimetersPerInch = 2.54

// MalformedLineError reports a serial line that decoded cleanly but is
// not a distance report. Recovered locally: the reading is skipped.
type MalformedLineError struct {
	Line string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed sensor report %q", e.Line)
}

// ParseReport extracts the integer distance token from an ASCII report
// line such as "R123". The marker must lead and at least one digit
// must follow.
func ParseReport(line string, marker byte) (int, error) {
	if len(line) < 2 || line[0] != marker {
		return 0, &MalformedLineError{Line: line}
	}
	v, err := strconv.Atoi(line[1:])
	if err != nil || v < 0 {
		return 0, &MalformedLineError{Line: line}
	}
	return v, nil
}

// CentimetersToInches converts a serial-report distance to inches.
func CentimetersToInches(cm float64) float64 {
	return cm / CentimetersPerInch
}
