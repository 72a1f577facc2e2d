package templates

// ReportEmailData defines the fields of the assignment_report templates.
type ReportEmailData struct {
	AppName        string `json:"AppName"`
	RecipientEmail string `json:"RecipientEmail"`

	RunID          string `json:"RunID"`
	Realm          string `json:"Realm"`
	DryRun         bool   `json:"DryRun"`
	FinishedAtText string `json:"FinishedAtText"`
	TotalAssigned  int    `json:"TotalAssigned"`

	Users    []UserLine    `json:"Users"`
	Batches  []BatchLine   `json:"Batches"`
	Summary  []SummaryLine `json:"Summary"`
	Warnings []string      `json:"Warnings"`
}

type UserLine struct {
	Username string `json:"Username"`
	ID       string `json:"ID"`
}

type BatchLine struct {
	Username string `json:"Username"`
	Assigned int    `json:"Assigned"`
	Quota    int    `json:"Quota"`
	Outcome  string `json:"Outcome"`
}

type SummaryLine struct {
	Label string `json:"Label"`
	Count int64  `json:"Count"`
}
