package app

import (
	"context"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"gopherai-workshop/internal/ai"
)

// Tool context keys set by the HTTP layer.
const (
	ToolContextUserID   = "userId"
	ToolContextTimeZone = "timeZone"
)

type emptyInput struct{}

type timeZoneInput struct {
	TimeZone string `json:"timeZone" jsonschema:"description=IANA time zone name such as Europe/Warsaw"`
}

type powerInput struct {
	Value float64 `json:"value" jsonschema:"description=The number to square"`
}

type TimeTools struct {
	now func() time.Time
}

func NewTimeTools() *TimeTools {
	return &TimeTools{now: time.Now}
}

// CurrentTime reports the time in the user's zone, falling back to the server zone.
func (t *TimeTools) CurrentTime(ctx context.Context, _ emptyInput) (string, error) {
	log.Printf("tool getCurrentTime: user_id=%s", ai.ToolContextString(ctx, ToolContextUserID))
	loc := time.Local
	if zone := ai.ToolContextString(ctx, ToolContextTimeZone); zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	return formatZoned(t.now().In(loc)), nil
}

func (t *TimeTools) CurrentTimeInZone(_ context.Context, in timeZoneInput) (string, error) {
	log.Printf("tool getCurrentTimeWithTimeZone: zone=%s", in.TimeZone)
	zone := strings.TrimSpace(in.TimeZone)
	if zone == "" {
		return "Invalid time zone " + in.TimeZone, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "Invalid time zone " + in.TimeZone, nil
	}
	return formatZoned(t.now().In(loc)), nil
}

func (t *TimeTools) LocalTime(_ context.Context, _ emptyInput) (string, error) {
	return t.now().Format("2006-01-02T15:04:05.999999999"), nil
}

func Power(_ context.Context, in powerInput) (float64, error) {
	return in.Value * in.Value, nil
}

func formatZoned(t time.Time) string {
	return t.Format(time.RFC3339Nano) + "[" + t.Location().String() + "]"
}

// NewSearchTools builds the tools offered to the /search endpoint.
func NewSearchTools(t *TimeTools) ([]ai.Tool, error) {
	current, err := ai.NewTool("getCurrentTime", "Get the current date and time in the user's timezone", t.CurrentTime, true)
	if err != nil {
		return nil, err
	}
	inZone, err := ai.NewTool("getCurrentTimeWithTimeZone", "Get the current date and time in the specified timezone", t.CurrentTimeInZone, false)
	if err != nil {
		return nil, err
	}
	power, err := ai.NewTool("power", "Calculates power of two", Power, false)
	if err != nil {
		return nil, err
	}
	local, err := ai.NewTool("currentTime", "get current time", t.LocalTime, true)
	if err != nil {
		return nil, err
	}
	return []ai.Tool{current, inZone, power, local}, nil
}
