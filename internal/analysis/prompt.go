package analysis

import "resume-match/internal/llm"

// Instruction is the fixed coaching prompt sent ahead of the resume and job
// description.
const Instruction = `You are an expert AI-powered career coach specializing in resume optimization. Your task is to analyze the provided resume and job description. The resume is provided first, followed by the job description. The resume may be a text block or a file (like a PDF or DOCX).

Your process should be as follows:
1.  Extract the full text from the original resume. If the user provided a file, extract all its text content. If they provided text, use that. Return this as 'originalResumeText'.
2.  Compare the extracted resume text against the job description to identify strengths, weaknesses, and areas for improvement.
3.  Generate an analysis including a match score, summary, keyword analysis, and actionable suggestions.
4.  Based on your analysis, rewrite the entire resume to be more effective and better aligned with the job description. This rewritten version should be returned as 'improvedResumeText'.
5.  Extract the job title from the job description and return it as 'jobTitle'.

Provide your complete output strictly in the JSON format defined by the schema.`

// Field names of the response object, in emission order.
var fieldOrder = []string{
	"jobTitle",
	"matchScore",
	"summary",
	"matchingKeywords",
	"missingKeywords",
	"suggestions",
	"originalResumeText",
	"improvedResumeText",
}

// ResponseSchema describes the JSON the model must return. Every field is
// required.
func ResponseSchema() *llm.Schema {
	stringList := func(desc string) *llm.Schema {
		return &llm.Schema{Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}, Description: desc}
	}
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"jobTitle": {
				Type:        llm.TypeString,
				Description: "The job title extracted from the job description (e.g., 'Senior Software Engineer').",
			},
			"matchScore": {
				Type:        llm.TypeInteger,
				Description: "A match score from 0-100 representing how well the resume matches the job description.",
			},
			"summary": {
				Type:        llm.TypeString,
				Description: "A concise, one-paragraph summary of the match, highlighting strengths and key areas for improvement.",
			},
			"matchingKeywords": stringList("An array of important keywords and skills from the job description that are present in the resume."),
			"missingKeywords":  stringList("An array of crucial keywords and skills from the job description that are missing from the resume."),
			"suggestions": {
				Type:        llm.TypeArray,
				Description: "An array of actionable suggestions to improve the resume.",
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"title":       {Type: llm.TypeString, Description: "A short, clear heading for the suggestion."},
						"description": {Type: llm.TypeString, Description: "A detailed explanation of what to change and why."},
					},
					Required: []string{"title", "description"},
					Order:    []string{"title", "description"},
				},
			},
			"originalResumeText": {
				Type:        llm.TypeString,
				Description: "The full text of the original resume provided by the user. If a file was uploaded, this is the extracted text from that file. If text was provided, this is the original text.",
			},
			"improvedResumeText": {
				Type:        llm.TypeString,
				Description: "The full, rewritten text of an improved version of the resume, incorporating all suggestions for better alignment with the job description.",
			},
		},
		Required: append([]string(nil), fieldOrder...),
		Order:    append([]string(nil), fieldOrder...),
	}
}
