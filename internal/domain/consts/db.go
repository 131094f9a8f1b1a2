package consts

// Tables
const (
	DBJobs = "jobs"
)

// Jobs
const (
	QJobRowID      = "row_id"
	QJobID         = "job_id"
	QJobTitle      = "title"
	QJobStatus     = "status"
	QJobPercent    = "percent"
	QJobDownloaded = "downloaded"
	QJobTotal      = "total"
	QJobError      = "error"
	QJobOutput     = "output_path"
	QJobCreatedAt  = "created_at"
	QJobUpdatedAt  = "updated_at"
)
