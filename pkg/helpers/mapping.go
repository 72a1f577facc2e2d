package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/los-rm-provisioner/pkg/mailer"
)

// NormalizeEmailJob lowercases the template name and fills recipient fields templates rely on.
func NormalizeEmailJob(job *mailer.EmailJob) {
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}
