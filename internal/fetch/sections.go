package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Section keys used as Target.Section. They match the default coverage targets.
const (
	SectionOverview         = "overview"
	SectionResponsibilities = "responsibilities"
	SectionQualifications   = "qualifications"
	SectionTechnicalSkills  = "technical_skills"
	SectionNiceToHave       = "nice_to_have"
	SectionBenefits         = "benefits"
	SectionOther            = "other"
)

// Section is one headed part of a job description.
type Section struct {
	Key     string `json:"key"`
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// Order matters: "preferred qualifications" must classify before "qualifications".
var headingKeywords = []struct {
	key      string
	keywords []string
}{
	{SectionNiceToHave, []string{"nice to have", "nice-to-have", "bonus", "preferred", "plus"}},
	{SectionTechnicalSkills, []string{"technical skill", "tech stack", "technologies", "tools", "skills"}},
	{SectionQualifications, []string{"qualification", "requirement", "what you bring", "what you'll need", "who you are", "about you", "must have"}},
	{SectionResponsibilities, []string{"responsibilit", "what you'll do", "what you will do", "the role", "your impact", "day to day"}},
	{SectionBenefits, []string{"benefit", "perks", "compensation", "what we offer"}},
}

// ClassifyHeading maps a heading to a section key.
func ClassifyHeading(heading string) string {
	h := strings.ToLower(strings.ReplaceAll(heading, "’", "'"))
	for _, group := range headingKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(h, kw) {
				return group.key
			}
		}
	}
	return SectionOther
}

// SectionFor returns the section holding text, or "" when no section contains it.
func SectionFor(sections []Section, text string) string {
	for _, s := range sections {
		if strings.Contains(s.Text, text) {
			return s.Key
		}
	}
	return ""
}

func sectionsOf(main *goquery.Selection) []Section {
	var (
		sections []Section
		current  = &Section{Key: SectionOverview}
		lines    []string
	)
	flush := func() {
		current.Text = strings.Join(lines, "\n")
		if current.Text != "" || current.Heading != "" {
			sections = append(sections, *current)
		}
		lines = nil
	}

	main.Find("h1, h2, h3, h4, h5, h6, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if isHeading(s, text) {
			flush()
			heading := strings.TrimSuffix(text, ":")
			current = &Section{Key: ClassifyHeading(heading), Heading: heading}
			return
		}
		// Paragraphs inside list items are visited on their own.
		if goquery.NodeName(s) == "li" && s.Find("p").Length() > 0 {
			return
		}
		lines = append(lines, text)
	})
	flush()
	return sections
}

// isHeading treats real headings and short, fully bold paragraphs as section starts.
func isHeading(s *goquery.Selection, text string) bool {
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	case "p":
		bold := s.Find("strong, b")
		return bold.Length() == 1 && strings.Join(strings.Fields(bold.Text()), " ") == text && len(text) <= 60
	}
	return false
}
