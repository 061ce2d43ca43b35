package automation

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser wraps robfig/cron/v3 with the same field-count flexibility as
// stherrien-gorax's internal/schedule.CronParser, simplified to the 5- or
// 6-field and @descriptor forms spec §4.5 actually requires — the teacher's
// extended L/W/# validation and timezone-offset helpers aren't needed here
// since robfig's cron.Schedule already folds a timezone into Next via the
// time.Location carried on the `now` argument.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour |
		cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// parseCron validates expression and returns a cron.Schedule that can
// compute successive fire times.
func parseCron(expression string) (cron.Schedule, error) {
	if expression == "" {
		return nil, fmt.Errorf("automation: cron expression cannot be empty")
	}
	schedule, err := cronParser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("automation: invalid cron expression %q: %w", expression, err)
	}
	return schedule, nil
}

// firstFireAfter implements spec §4.5's
// "nextRunAt = firstFireAfter(lastRunAt ∨ createdAt, expression)".
func firstFireAfter(after time.Time, expression, timezone string) (time.Time, error) {
	schedule, err := parseCron(expression)
	if err != nil {
		return time.Time{}, err
	}
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("automation: invalid timezone %q: %w", timezone, err)
		}
		after = after.In(loc)
	}
	return schedule.Next(after), nil
}
