package mailer

import (
	"fmt"

	"github.com/nhle/mailwatch/internal/model"
)

// WeeklyReportSubject is the subject line of the statistics report.
const WeeklyReportSubject = "Weekly Email Report"

// WeeklyReport renders the statistics report body.
func WeeklyReport(stats model.Stats) (subject, body string) {
	body = fmt.Sprintf(
		"Weekly Email Statistics:\n\nSent: %d\nFailed: %d\nMonitored: %d\n",
		stats.Sent, stats.Failed, stats.Monitored,
	)
	return WeeklyReportSubject, body
}
