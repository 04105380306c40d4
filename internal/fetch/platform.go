package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Platform names the job board a posting was fetched from.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

// NoAnnotateAttr marks description blocks that stay readable but are never highlighted.
// The highlighter's default exclude selector matches it.
const NoAnnotateAttr = "data-no-annotate"

// Board describes how one job board lays out a posting.
type Board struct {
	Platform Platform
	// Hosts are host suffixes that identify the board.
	Hosts []string
	// Content selectors locate the description, best match first.
	Content []string
	// Noise selectors are removed from the page before extraction.
	Noise []string
	// Boilerplate selectors match legal or company text inside the description.
	// Matches are kept and marked with NoAnnotateAttr.
	Boilerplate []string
}

// commonNoise is page chrome shared by every board.
var commonNoise = []string{
	"form",
	"#application-form",
	".application-form",
	".apply-button-container",
	".social-share",
	".share-buttons",
	".cookie-consent",
	".gdpr-notice",
	".banner",
	"[role='banner']",
	".job-alert",
}

// commonBoilerplate is disclosure text boards embed in the description body.
var commonBoilerplate = []string{
	".eeo-statement",
	".eeo-section",
	".legal-disclosure",
	".pay-transparency",
	"[data-testid='eeo']",
}

var boards = []Board{
	{
		Platform:    PlatformGreenhouse,
		Hosts:       []string{"greenhouse.io"},
		Content:     []string{".job__description.body", ".job__description", "#content"},
		Noise:       []string{".application--wrapper", "#usa_self_id_section", ".post-apply"},
		Boilerplate: []string{".content-intro", ".content-conclusion"},
	},
	{
		Platform: PlatformLever,
		Hosts:    []string{"lever.co"},
		Content:  []string{".posting-page", ".posting-description", ".content"},
		Noise:    []string{".posting-apply", ".lever-application-form"},
	},
	{
		Platform: PlatformWorkday,
		Hosts:    []string{"myworkdayjobs.com", "workday.com"},
		Content:  []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']"},
		Noise:    []string{"[data-automation-id='applyButton']"},
	},
	{
		Platform: PlatformAshby,
		Hosts:    []string{"ashbyhq.com"},
		Content:  []string{".ashby-job-posting-right-pane"},
		Noise:    []string{".ashby-application-form-container"},
	},
}

// BoardFor returns the layout of a known board, or a generic layout for anything else.
func BoardFor(platform Platform) Board {
	for _, b := range boards {
		if b.Platform == platform {
			return b
		}
	}
	return Board{Platform: PlatformUnknown, Content: JobPostingSelectors()}
}

// DetectPlatform matches the URL's host against the known boards.
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, b := range boards {
		for _, suffix := range b.Hosts {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return b.Platform
			}
		}
	}
	return PlatformUnknown
}

// NoiseSelectors are removed before the description is located.
func (b Board) NoiseSelectors() []string {
	return append(append([]string{}, commonNoise...), b.Noise...)
}

// BoilerplateSelectors are marked not-annotatable inside the description.
func (b Board) BoilerplateSelectors() []string {
	return append(append([]string{}, commonBoilerplate...), b.Boilerplate...)
}

// ContentSelectors locate the description. Unknown boards fall back to generic selectors.
func (b Board) ContentSelectors() []string {
	if len(b.Content) == 0 {
		return JobPostingSelectors()
	}
	return b.Content
}

// markBoilerplate flags the board's boilerplate blocks so highlighting skips them.
func markBoilerplate(main *goquery.Selection, b Board) {
	main.Find(strings.Join(b.BoilerplateSelectors(), ", ")).SetAttr(NoAnnotateAttr, "")
}
