package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// expandTopicTemplate substitutes the §6 token grammar into tmpl using the
// fields of at. Substitution is textual and case-sensitive; unknown tokens
// are left verbatim.
func expandTopicTemplate(tmpl string, at time.Time) string {
	_, week := at.ISOWeek()
	replacer := strings.NewReplacer(
		"{date}", at.Format("2006-01-02"),
		"{time}", at.Format("15:04"),
		"{datetime}", at.Format("2006-01-02 15:04"),
		"{year}", strconv.Itoa(at.Year()),
		"{month}", at.Month().String(),
		"{month_num}", strconv.Itoa(int(at.Month())),
		"{day}", strconv.Itoa(at.Day()),
		"{weekday}", at.Weekday().String(),
		"{week}", strconv.Itoa(week),
		"{timestamp}", strconv.FormatInt(at.Unix(), 10),
	)
	return replacer.Replace(tmpl)
}
