package respond

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	inUnitsRe  = regexp.MustCompile(`^in (\d+) (minute|minutes|hour|hours|day|days|week|weeks)$`)
	clockRe    = regexp.MustCompile(`^(\d{1,2})(:(\d{2}))?\s*(am|pm)$`)
	dateLayout = "Mon, 02 Jan 2006"
)

// NormalizeDeliveryTime rewrites a relative delivery phrase ("tomorrow",
// "in 2 days", "5pm") as an absolute date or time. Phrases it does not
// recognize come back empty so the caller keeps the customer's own words.
func NormalizeDeliveryTime(phrase string) string {
	return normalizeDeliveryTimeAt(phrase, time.Now())
}

func normalizeDeliveryTimeAt(phrase string, now time.Time) string {
	p := strings.ToLower(strings.TrimSpace(phrase))

	switch p {
	case "today":
		return now.Format(dateLayout)
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(dateLayout)
	case "day after tomorrow":
		return now.AddDate(0, 0, 2).Format(dateLayout)
	case "next week":
		return now.AddDate(0, 0, 7).Format(dateLayout)
	}

	if m := inUnitsRe.FindStringSubmatch(p); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.TrimSuffix(m[2], "s") {
		case "minute":
			return now.Add(time.Duration(n) * time.Minute).Format("3:04pm")
		case "hour":
			return now.Add(time.Duration(n) * time.Hour).Format("3:04pm")
		case "day":
			return now.AddDate(0, 0, n).Format(dateLayout)
		case "week":
			return now.AddDate(0, 0, 7*n).Format(dateLayout)
		}
	}

	if m := clockRe.FindStringSubmatch(p); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 1 || hour > 12 {
			return ""
		}
		minute := 0
		if m[3] != "" {
			minute, _ = strconv.Atoi(m[3])
		}
		if m[4] == "pm" && hour != 12 {
			hour += 12
		}
		if m[4] == "am" && hour == 12 {
			hour = 0
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if at.Before(now) {
			at = at.AddDate(0, 0, 1)
		}
		return fmt.Sprintf("%s at %s", at.Format(dateLayout), at.Format("3:04pm"))
	}

	return ""
}
