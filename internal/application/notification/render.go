package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rezkam/hsewatch/internal/domain"
)

var emailTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2 style="color: #b45309;">HSE Compliance Reminder</h2>
  <p>Hello {{.RecipientName}},</p>
  <p>The {{.Kind}} <strong>{{.ItemName}}</strong> is due in <strong>{{.DaysUntilDue}} days</strong>, on {{.DueDate}}.</p>
  <table cellpadding="4">
    {{- if .ParentProgram}}
    <tr><td>Program</td><td>{{.ParentProgram}}</td></tr>
    {{- end}}
    <tr><td>Frequency</td><td>{{.Frequency}}</td></tr>
    {{- if .Base}}
    <tr><td>Base</td><td>{{.Base}}</td></tr>
    {{- end}}
    {{- if .Region}}
    <tr><td>Region</td><td>{{.Region}}</td></tr>
    {{- end}}
  </table>
  {{- if .DashboardURL}}
  <p><a href="{{.DashboardURL}}">Open the HSE dashboard</a></p>
  {{- end}}
  <p style="font-size: 12px; color: #6b7280;">This is an automated message. Please do not reply.</p>
</body>
</html>
`))

type emailView struct {
	RecipientName string
	Kind          string
	ItemName      string
	DaysUntilDue  int
	DueDate       string
	ParentProgram string
	Frequency     string
	Base          string
	Region        string
	DashboardURL  string
}

// RenderEmail builds the reminder email for an eligible decision.
// Every interpolated value is HTML-escaped.
func RenderEmail(decision domain.ReminderDecision, dashboardURL string) (domain.Email, error) {
	c := decision.Candidate

	view := emailView{
		RecipientName: c.RecipientName,
		Kind:          kindLabel(c.ItemType),
		ItemName:      c.ItemName,
		DaysUntilDue:  decision.DaysUntilDue,
		DueDate:       c.DueDate.Format("Monday, 2 January 2006"),
		Frequency:     c.FrequencyLabel,
		DashboardURL:  dashboardURL,
	}
	if view.RecipientName == "" {
		view.RecipientName = "there"
	}
	if view.Frequency == "" {
		view.Frequency = "Not specified"
	}
	if c.ParentProgramName != nil {
		view.ParentProgram = *c.ParentProgramName
	}
	if c.Location != nil {
		view.Base = c.Location.Base
		view.Region = c.Location.Region
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return domain.Email{}, fmt.Errorf("failed to render reminder email: %w", err)
	}

	return domain.Email{
		To:      c.RecipientEmail,
		Subject: Subject(c.ItemName, decision.DaysUntilDue),
		HTML:    buf.String(),
	}, nil
}

// Subject returns the subject line of a reminder email.
func Subject(itemName string, daysUntilDue int) string {
	return fmt.Sprintf("Reminder: %s due in %d days", itemName, daysUntilDue)
}

func kindLabel(t domain.ItemType) string {
	switch t {
	case domain.ItemTypeOTPProgram:
		return "OTP program"
	case domain.ItemTypeMatrixProgram:
		return "matrix program"
	default:
		return "task"
	}
}

