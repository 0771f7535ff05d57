package ai

import (
	"fmt"
	"strings"
)

// TailorSystemPrompt frames the model as a LaTeX resume writer bound to the source material
const TailorSystemPrompt = `You are an expert resume writer and LaTeX typesetter with a strict commitment to honesty and accuracy. Your core principles are:

- NEVER invent, exaggerate, or misattribute any skills or experiences
- Every piece of information must be directly traceable to the base resume or the candidate context
- Keep the document compilable: balanced environments, escaped special characters, no undefined macros
- Preserve the document class, preamble and overall layout of the base resume`

// tailorInstructions is the task body; the verbatim inputs follow it
const tailorInstructions = `Rewrite the base resume below so that it targets the job description.

**Rules:**

1. Preserve the document structure and every custom macro and environment. Do not add packages.
2. Keep the header and contact details exactly as they are.
3. Prefer rewording existing bullet points over inserting new ones, and only use facts that are already present.
4. Use a concise, technical tone and set impactful metrics (numbers, percentages, scale) in bold.
5. When the job asks for a skill the candidate lacks but the resume shows a close equivalent, emphasise the equivalent. Never claim the missing skill.
6. The result must still fit on one page.
7. Return ONLY the raw LaTeX document, starting with \documentclass and ending with \end{document}.
   Do not wrap it in Markdown code fences and do not add commentary.`

// atsInstructions asks for keywords to be embedded as invisible text
const atsInstructions = `Add the keywords listed below once, just before \end{document}, as invisible text for applicant tracking systems:
{\color{white}\fontsize{1pt}{1pt}\selectfont KEYWORDS}
Load xcolor only if the preamble does not already provide \color.`

// PromptInput is everything the tailoring prompt is assembled from
type PromptInput struct {
	JobDescription    string
	BaseResume        string
	ExperienceContext string
	Keywords          []string
}

// BuildTailorPrompt assembles the tailoring prompt. The job description and
// base resume are embedded verbatim between delimiters.
func BuildTailorPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString(TailorSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(tailorInstructions)
	b.WriteString("\n")

	if len(in.Keywords) > 0 {
		b.WriteString("\n")
		b.WriteString(atsInstructions)
		fmt.Fprintf(&b, "\n\n**ATS keywords found in the job description:** %s\n", strings.Join(in.Keywords, ", "))
	}

	if ctx := strings.TrimSpace(in.ExperienceContext); ctx != "" {
		fmt.Fprintf(&b, "\n**Additional candidate context (facts you may draw on):**\n-----\n%s\n-----\n", ctx)
	}

	fmt.Fprintf(&b, "\n**Job Description:**\n-----\n%s\n-----\n", in.JobDescription)
	fmt.Fprintf(&b, "\n**Base Resume (LaTeX):**\n-----\n%s\n-----\n", in.BaseResume)

	return b.String()
}
