package crawler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Combination is one (occupation field, region) pair of the crawl queue.
type Combination struct {
	Field  string `json:"field"`
	Region string `json:"region"`
}

// String renders the pair for logs.
func (c Combination) String() string {
	return c.Field + "/" + c.Region
}

// Requirement is a named language or work-experience entry on a posting.
type Requirement struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Posting is a single job advertisement fetched from the listing source.
// It is read-only and never stored verbatim.
type Posting struct {
	ID                  string        `json:"id"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	Languages           []Requirement `json:"languages"`
	WorkExperiences     []Requirement `json:"workExperiences"`
	LastApplicationDate string        `json:"lastApplicationDate"`
	ApplicationURL      string        `json:"-"`
}

// RequiredLanguages returns the names of languages flagged as required.
func (p Posting) RequiredLanguages() []string {
	return requiredNames(p.Languages)
}

// RequiredExperiences returns the names of work experiences flagged as required.
func (p Posting) RequiredExperiences() []string {
	return requiredNames(p.WorkExperiences)
}

// Deadline parses LastApplicationDate. ok is false when the value is empty or unparseable.
func (p Posting) Deadline() (time.Time, bool) {
	raw := strings.TrimSpace(p.LastApplicationDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func requiredNames(items []Requirement) []string {
	var out []string
	for _, item := range items {
		if item.Required {
			out = append(out, item.Name)
		}
	}
	return out
}

// Swedish is the four-valued Swedish language requirement.
type Swedish string

// Swedish requirement values. SwedishUnknown is stored as NULL.
const (
	SwedishUnknown Swedish = ""
	SwedishTrue    Swedish = "true"
	SwedishFalse   Swedish = "false"
	SwedishLikely  Swedish = "likely"
)

// ParseSwedish maps the literal strings "true", "false" and "likely" to their
// values. Anything else is SwedishUnknown.
func ParseSwedish(raw string) Swedish {
	switch Swedish(raw) {
	case SwedishTrue, SwedishFalse, SwedishLikely:
		return Swedish(raw)
	default:
		return SwedishUnknown
	}
}

// MarshalJSON encodes true/false as booleans, likely as a string and unknown as null.
func (s Swedish) MarshalJSON() ([]byte, error) {
	switch s {
	case SwedishTrue:
		return []byte("true"), nil
	case SwedishFalse:
		return []byte("false"), nil
	case SwedishLikely:
		return []byte(`"likely"`), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reads the API encoding produced by MarshalJSON. Model
// answers are not decoded through it; see extract.ParseExtraction.
func (s *Swedish) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode swedish: %w", err)
	}
	switch t := v.(type) {
	case bool:
		if t {
			*s = SwedishTrue
		} else {
			*s = SwedishFalse
		}
	case string:
		*s = ParseSwedish(t)
	default:
		*s = SwedishUnknown
	}
	return nil
}

// Extraction holds the five fields derived from a posting by the AI model.
type Extraction struct {
	VisaSponsor *bool    `json:"visa_sponsor"`
	Experience  *int     `json:"experience"`
	Swedish     Swedish  `json:"swedish"`
	Skills      []string `json:"skills"`
	Education   *string  `json:"education"`
}

// Job is the persisted record for a currently known posting.
type Job struct {
	ID                  string   `json:"id"`
	Field               string   `json:"field"`
	Region              string   `json:"region"`
	Description         string   `json:"description"`
	VisaSponsor         *bool    `json:"visa_sponsor"`
	Experience          *int     `json:"experience"`
	Swedish             Swedish  `json:"swedish"`
	Skills              []string `json:"skills"`
	Education           *string  `json:"education"`
	LastApplicationDate *int64   `json:"lastApplicationDate"`
}

// NewJob builds the record persisted for a posting found under combo.
func NewJob(combo Combination, posting Posting, ex Extraction) Job {
	job := Job{
		ID:          posting.ID,
		Field:       combo.Field,
		Region:      combo.Region,
		Description: posting.Description,
		VisaSponsor: ex.VisaSponsor,
		Experience:  ex.Experience,
		Swedish:     ex.Swedish,
		Skills:      ex.Skills,
		Education:   ex.Education,
	}
	if deadline, ok := posting.Deadline(); ok {
		ms := deadline.UnixMilli()
		job.LastApplicationDate = &ms
	}
	return job
}

// SearchFilter captures the query endpoint parameters.
type SearchFilter struct {
	Field            string
	Region           string
	MaxExperience    *int
	ExcludeSkills    []string
	NeedsVisaSponsor bool
	SwedishFluent    bool
}

// JobCreatedEvent is published after a new job is persisted.
type JobCreatedEvent struct {
	ID                  string   `json:"id"`
	Field               string   `json:"field"`
	Region              string   `json:"region"`
	VisaSponsor         *bool    `json:"visa_sponsor"`
	Experience          *int     `json:"experience"`
	Swedish             Swedish  `json:"swedish"`
	Skills              []string `json:"skills"`
	Education           *string  `json:"education"`
	LastApplicationDate *int64   `json:"last_application_date"`
}

// NewJobCreatedEvent projects a job into its event payload, leaving out the description.
func NewJobCreatedEvent(job Job) JobCreatedEvent {
	return JobCreatedEvent{
		ID:                  job.ID,
		Field:               job.Field,
		Region:              job.Region,
		VisaSponsor:         job.VisaSponsor,
		Experience:          job.Experience,
		Swedish:             job.Swedish,
		Skills:              job.Skills,
		Education:           job.Education,
		LastApplicationDate: job.LastApplicationDate,
	}
}

// RunSummary reports what a single coordinator run did.
type RunSummary struct {
	RunID            string        `json:"run_id"`
	CombinationsDone int           `json:"combinations_done"`
	CombinationsLeft int           `json:"combinations_left"`
	Listed           int           `json:"listed"`
	Purged           int           `json:"purged"`
	New              int           `json:"new"`
	Inserted         int           `json:"inserted"`
	FailedJobs       int           `json:"failed_jobs"`
	Halted           bool          `json:"halted"`
	QueueInitialized bool          `json:"queue_initialized"`
	Duration         time.Duration `json:"duration"`
}

// JoinSkills encodes skills as the comma-delimited string stored in the job
// table. Commas inside a skill are replaced by spaces so the delimiter stays
// unambiguous; blank skills are dropped.
func JoinSkills(skills []string) string {
	parts := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(strings.ReplaceAll(skill, ",", " "))
		if skill == "" {
			continue
		}
		parts = append(parts, skill)
	}
	return strings.Join(parts, ",")
}

// SplitSkills decodes a stored skills string. An empty string yields an empty slice.
func SplitSkills(raw string) []string {
	out := []string{}
	for _, skill := range strings.Split(raw, ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			out = append(out, skill)
		}
	}
	return out
}
