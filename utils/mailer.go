package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"loanpilot/audit"
	"loanpilot/config"
)

// SendAuditReportEmail mails the headline numbers of an audit run to the
// configured recipient. A missing SMTP config is not an error; scheduled
// audits run fine without notifications.
func SendAuditReportEmail(to string, summary audit.Summary) error {
	smtp := config.AppConfig.SMTP
	if smtp.Host == "" || to == "" {
		return nil
	}

	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Data Integrity Audit %s</h2>
			<p>Generated at %s</p>
			<ul>
				<li>Leads: %d audited, %d with issues</li>
				<li>Clients: %d audited, %d with issues</li>
				<li>Pipeline entries: %d audited, %d with issues</li>
				<li>Duplicate leads: %d</li>
				<li>Duplicate loans: %d</li>
			</ul>
			<p><b>%d total issues</b> (%d critical, %d warning-only)</p>
		</body>
		</html>
	`,
		summary.RunID,
		summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		summary.Leads.Total, summary.Leads.WithIssues,
		summary.Clients.Total, summary.Clients.WithIssues,
		summary.Pipeline.Total, summary.Pipeline.WithIssues,
		len(summary.DuplicateLeads),
		len(summary.DuplicateLoans),
		summary.TotalIssues, summary.CriticalIssues, summary.WarningIssues,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", smtp.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Audit report: %d issues found", summary.TotalIssues))
	m.SetBody("text/html", body)

	dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send audit report email: %w", err)
	}
	return nil
}
