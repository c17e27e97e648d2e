package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dukerupert/flock/internal/report"
)

// DefaultAbsenteeMessage is sent by notify-absentees when no message is given.
const DefaultAbsenteeMessage = "Hi {{.FirstName}}, we missed you at {{.ServiceType}} on {{.Date}}. We hope all is well and look forward to seeing you soon."

// StreamLinkMessage builds the SMS that carries a livestream access code.
func StreamLinkMessage(siteURL, code string) string {
	return fmt.Sprintf("Thanks for letting us know. Watch the service here: %s/stream?code=%s (link valid for 24 hours)", siteURL, code)
}

var summaryTmpl = template.Must(template.New("summary").Parse(`Attendance report {{.FromDate}} to {{.ToDate}}

Active members: {{.ActiveMembers}}
Self-reported absences: {{.Checkins}}

{{range .ByServiceType}}{{.ServiceType}}: {{.Services}} service(s), {{.TotalPresent}} total present, {{.AveragePresent}} on average
{{end}}
{{range .Services}}{{.Date}} {{.ServiceType}}: {{.PresentCount}} present
{{else}}No services recorded in this range.
{{end}}`))

var digestTmpl = template.Must(template.New("digest").Parse(`Absentee report {{.FromDate}} to {{.ToDate}}

Total check-ins: {{.Total}}
Livestream links sent: {{.LivestreamSent}}
{{range .ByReason}}
{{.Reason}} ({{.Count}}){{range .Checkins}}
  - {{.Name}} ({{.ServiceDate}}){{end}}{{end}}

Prayer requests:{{range .PrayerRequests}}
  - {{.Name}}: {{.Request}}{{else}} none{{end}}
`))

// RenderAttendanceSummary renders the emailed attendance digest.
func RenderAttendanceSummary(s *report.Summary) (string, error) {
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render attendance summary: %w", err)
	}
	return buf.String(), nil
}

// RenderAbsenteeDigest renders the emailed check-in digest.
func RenderAbsenteeDigest(d *report.Dashboard) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render absentee digest: %w", err)
	}
	return buf.String(), nil
}
