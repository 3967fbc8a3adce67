package tools

import (
	"context"
	"fmt"
	"time"
)

// GetCurrentTimeInput represents the input parameters for the GetCurrentTime function.
type GetCurrentTimeInput struct {
	// Format is the time format string according to Go's time formatting conventions.
	Format string `json:"format,omitempty" jsonschema_description:"Time format string according to Go's time formatting conventions, default format is : 2006-01-02T15:04:05Z07:00"`

	// Location is the IANA time zone identifier.
	Location string `json:"location,omitempty" jsonschema_description:"IANA time zone identifier (e.g., 'Asia/Colombo', 'America/New_York')"`
}

// GetCurrentTimeOutput represents the output of the GetCurrentTime function.
type GetCurrentTimeOutput struct {
	CurrentTime string `json:"currentTime" jsonschema_description:"Current time formatted as per input parameters"`
	Year        int    `json:"year" jsonschema_description:"Current calendar year in the requested location"`
}

// now is replaced in tests.
var now = time.Now

// GetCurrentTime retrieves the current time, formatted according to the input parameters.
func GetCurrentTime(ctx context.Context, input GetCurrentTimeInput) (GetCurrentTimeOutput, error) {
	format := input.Format
	if format == "" {
		format = time.RFC3339
	}

	loc := time.UTC
	if input.Location != "" {
		var err error
		loc, err = time.LoadLocation(input.Location)
		if err != nil {
			return GetCurrentTimeOutput{}, fmt.Errorf("invalid location: %v", err)
		}
	}

	t := now().In(loc)
	return GetCurrentTimeOutput{
		CurrentTime: t.Format(format),
		Year:        t.Year(),
	}, nil
}
