package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// dateParser recognizes natural-language day expressions ("today",
// "next monday", "in 3 days") for the --day flags on place, skip, and ooo,
// alongside plain YYYY-MM-DD.
var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDay resolves input against now, returning the (day, month, year)
// triple the engine's events store. An empty input means "today".
func parseDay(input string, now time.Time) (day, month, year int, err error) {
	if strings.TrimSpace(input) == "" {
		y, m, d := now.Date()
		return d, int(m), y, nil
	}
	if t, perr := time.Parse("2006-01-02", strings.TrimSpace(input)); perr == nil {
		y, m, d := t.Date()
		return d, int(m), y, nil
	}
	result, werr := dateParser.Parse(input, now)
	if werr != nil {
		return 0, 0, 0, fmt.Errorf("parse day %q: %w", input, werr)
	}
	if result == nil {
		return 0, 0, 0, fmt.Errorf("parse day %q: no match", input)
	}
	y, m, d := result.Time.Date()
	return d, int(m), y, nil
}

// parsePropertyTypes splits a comma-separated --property-types flag value
// into a types.PropertyTypeSet.
func parsePropertyTypes(raw string) (types.PropertyTypeSet, error) {
	if strings.TrimSpace(raw) == "" {
		return types.PropertyTypeSet{}, nil
	}
	var pts []types.PropertyType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch types.PropertyType(part) {
		case types.PropertyMFH, types.PropertyMF, types.PropertySFH, types.PropertyCommercial:
			pts = append(pts, types.PropertyType(part))
		default:
			return nil, fmt.Errorf("unknown property type %q", part)
		}
	}
	return types.NewPropertyTypeSet(pts...), nil
}
