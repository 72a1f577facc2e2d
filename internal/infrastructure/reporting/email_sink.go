package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/pkg/mailer"
	mailtpl "github.com/oksasatya/los-rm-provisioner/pkg/mailer/templates"
)

// Publisher puts a JSON message on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, messageID string, body any) error
}

// EmailSink queues one assignment_report email per recipient for the email worker.
type EmailSink struct {
	Publisher  Publisher
	AppName    string
	Recipients []string
}

func NewEmailSink(pub Publisher, appName string, recipients []string) *EmailSink {
	return &EmailSink{Publisher: pub, AppName: appName, Recipients: recipients}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Publish(ctx context.Context, report *entity.Report) error {
	for i, to := range s.Recipients {
		job := mailer.EmailJob{
			To:       to,
			Template: mailtpl.AssignmentReport,
			Data:     mailtpl.ToMap(ReportEmailData(report, s.AppName, to)),
			Tags:     []string{"provisioning", report.Realm},
		}
		if err := s.Publisher.PublishJSON(ctx, fmt.Sprintf("%s-%d", report.RunID, i), job); err != nil {
			return fmt.Errorf("queue report email to %s: %w", to, err)
		}
	}
	return nil
}

// ReportEmailData flattens a report into the assignment_report template fields.
func ReportEmailData(report *entity.Report, appName, recipient string) mailtpl.ReportEmailData {
	d := mailtpl.ReportEmailData{
		AppName:        appName,
		RecipientEmail: recipient,
		RunID:          report.RunID,
		Realm:          report.Realm,
		DryRun:         report.DryRun,
		TotalAssigned:  report.TotalAssigned(),
		Warnings:       report.Warnings,
	}
	if !report.FinishedAt.IsZero() {
		d.FinishedAtText = report.FinishedAt.UTC().Format(time.RFC1123)
	}
	d.Users = lo.Map(report.BoundUsers(), func(u entity.Resolution, _ int) mailtpl.UserLine {
		return mailtpl.UserLine{Username: u.Username, ID: u.ID}
	})
	d.Batches = lo.Map(report.Batches, func(b entity.BatchResult, _ int) mailtpl.BatchLine {
		return mailtpl.BatchLine{Username: b.Username, Assigned: b.Assigned(), Quota: b.Quota, Outcome: string(b.Outcome)}
	})
	d.Summary = lo.Map(report.Summary, func(r entity.SummaryRow, _ int) mailtpl.SummaryLine {
		return mailtpl.SummaryLine{Label: r.Label, Count: r.Count}
	})
	return d
}
