package ai

const (
	LabelJobPost    = "Job Post"
	LabelNotJobPost = "Not a Job Post"
	LabelOther      = "Other"
)

// JobPostLabels is the two-way label set of the non-job prefilter.
var JobPostLabels = []string{LabelJobPost, LabelNotJobPost}

// FieldLabels is the domain label set used for job fields and professions.
var FieldLabels = []string{
	"Web Development",
	"Data Science",
	"UI/UX Design",
	"Mobile Development",
	"DevOps",
	"Product Management",
	"Content Writing",
	"Marketing",
	"Finance",
	"Human Resources",
	"Sales",
	"Accounting",
	"Customer Support",
	"Operations",
	"Project Management",
	"Education",
	"Healthcare",
	"Engineering",
	"Agriculture",
	"Legal",
	LabelOther,
}

const (
	ExperienceEntry  = "Entry Level"
	ExperienceMid    = "Mid Level"
	ExperienceSenior = "Senior Level"
	ExperienceLead   = "Lead/Manager"
)

// ExperienceLabels is the fixed experience label set.
var ExperienceLabels = []string{ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceLead}
