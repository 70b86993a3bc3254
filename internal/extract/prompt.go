package extract

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes anything shaped like a markup tag.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

const instructions = `<system>
  Extract the following information from this job posting:
  1. Does it provide visa sponsorship? (If it explicitly mentions requiring a work permit or Swedish citizenship, it is false; if it is not mentioned, leave it as null)
  2. Minimal required years of experience? (number, if it is not mentioned, leave it as null)
  3. Does it require Swedish language skills? (If it explicitly mentions requiring Swedish language skills, it is true; else if it only mentions Swedish as a merit, it is false; else if the job description is written in Swedish, it is "likely"; else if it is not mentioned, leave it as null)
  4. Which technical skills are required? (list of strings, put required skills first, then merit skills)
  5. Minimal required education. (string, for example "Bachelor", "Master", "PhD", if it is not mentioned, leave it as null)
  Return only a JSON object with these keys, leave the keys empty if the information is not provided: visa_sponsor, experience, swedish, skills, education
</system>
`

// BuildPrompt renders the extraction prompt for posting.
func BuildPrompt(posting crawler.Posting) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("<job_posting>\n  <languages>")
	for _, name := range posting.RequiredLanguages() {
		b.WriteString("<language>" + name + "</language>")
	}
	b.WriteString("</languages>\n  <work_experiences>")
	for _, name := range posting.RequiredExperiences() {
		b.WriteString("<experience>" + name + "</experience>")
	}
	b.WriteString("</work_experiences>\n  <description>\n")
	b.WriteString(StripTags(posting.Description))
	b.WriteString("\n  </description>\n</job_posting>")
	return b.String()
}
