package services

import (
	"fmt"
	"strings"
)

const (
	classificationSampleRunes = 2000

	scoringSystemPrompt = `You are an expert technical recruiter with balanced professional judgment. You provide fair but realistic assessments, recognizing both strengths and gaps. You read resumes thoroughly and evaluate honestly.`

	classificationSystemPrompt = `You are a LENIENT document classifier. Accept ANY document that could be a resume/CV, including creative layouts, portfolios, or unconventional formats. Only reject obvious non-resumes like academic papers, reports, or invoices. Respond with only "true" or "false".`
)

type PromptBuilder struct {
	thresholds Thresholds
}

func NewPromptBuilder(thresholds Thresholds) *PromptBuilder {
	return &PromptBuilder{thresholds: thresholds}
}

// BuildScoringMessages creates the chat messages for scoring a resume against
// a job description. The resume is passed whole.
func (pb *PromptBuilder) BuildScoringMessages(jobDescription, resumeText string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: scoringSystemPrompt},
		{Role: RoleUser, Content: pb.scoringPrompt(jobDescription, resumeText)},
	}
}

func (pb *PromptBuilder) scoringPrompt(jobDescription, resumeText string) string {
	t := pb.thresholds
	return fmt.Sprintf(`Perform a REALISTIC and BALANCED analysis of this resume against the job description. READ THE ENTIRE RESUME TEXT CAREFULLY to identify all skills present and assess fairly.

SKILL IDENTIFICATION:
- Look for skills anywhere in the resume text (skills section, experience, projects, education)
- Consider variations (e.g., "HTML5" matches "HTML", "CSS3" matches "CSS", "Python 3" matches "Python")
- Look for skills in context (e.g., "built with Python", "using HTML/CSS", "developed in JavaScript")
- Case-insensitive matching (HTML = html = Html)
- Give credit for demonstrated skills, even if mentioned briefly

SKILL EQUIVALENCES:
- A NoSQL document store (MongoDB, CouchDB, Firestore) satisfies a "NoSQL" requirement
- A framework built on a runtime satisfies that runtime (Express or NestJS implies Node.js, Django or Flask implies Python, Spring implies Java)
- Version control plus automated pipelines (GitHub Actions, GitLab CI, Jenkins) satisfies "CI/CD experience"

SCORING FORMULA (start at 0):
1. Identify Core (must-have) vs Preferred (nice-to-have) skills from the job description
2. Calculate score:
   - Each Core skill matched: +7 points
   - Each Core skill missing: -8 points
   - Each Preferred skill matched: +3 points
   - Each Preferred skill missing: -1 point
   - Multiply by a project quality multiplier between 0.9 and 1.15
   - If more than 40%% of Core skills are missing: cap the score at 60
   - If more than 60%% of Core skills are missing: cap the score at 45
   - Clamp the final score to an integer between 0 and 100

STATUS THRESHOLDS:
- %d-100: Approved
- %d-%d: Needs Improvement
- 0-%d: Not a Match

JOB DESCRIPTION:
%s

RESUME TEXT (Read carefully from start to end):
%s

Provide your analysis in the following JSON format (respond ONLY with valid JSON, no other text):
{
  "matchScore": <integer 0-100>,
  "status": "<Approved|Needs Improvement|Not a Match>",
  "scoreRationale": "<one or two sentences explaining the score>",
  "matchingSkills": ["skill1", "skill2"],
  "missingSkills": ["skill1", "skill2"],
  "impliedSkills": "<skills implied by the experience, as a short narrative>",
  "strengths": ["strength1", "strength2"],
  "recommendations": ["recommendation1", "recommendation2"],
  "scoreBreakdown": {
    "coreMatched": ["skill"],
    "coreMissing": ["skill"],
    "preferredMatched": ["skill"],
    "preferredMissing": ["skill"],
    "projectMultiplier": <number 0.9-1.15>
  }
}`,
		t.Approved,
		t.NeedsImprovement, t.Approved-1,
		t.NeedsImprovement-1,
		jobDescription, resumeText)
}

// BuildClassificationMessages asks whether a document sample is a resume.
// Only the first 2000 characters of the text are sent.
func (pb *PromptBuilder) BuildClassificationMessages(text string) []ChatMessage {
	sample := text
	if runes := []rune(text); len(runes) > classificationSampleRunes {
		sample = string(runes[:classificationSampleRunes])
	}

	return []ChatMessage{
		{Role: RoleSystem, Content: classificationSystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf(`Determine if this is a resume/CV. Be LENIENT - accept any document that shows:
- ANY mention of skills, experience, or projects
- Contact info (name, email, phone) OR professional profile
- Education OR work history
- Technical skills OR professional abilities

ACCEPT: Traditional resumes, modern layouts, creative designs, portfolios, CVs
REJECT ONLY: Academic papers, project reports, research documents, invoices, letters

DOCUMENT TEXT:
%s

Respond with ONLY "true" if this could be a resume/CV, or "false" if it's clearly not. When in doubt, say "true".`, sample)},
	}
}

// FormatSearchSnippet trims an indexed chunk for display in search results.
func FormatSearchSnippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
