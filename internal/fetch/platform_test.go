package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-annotator/internal/highlight"
	"github.com/jonathan/jd-annotator/internal/types"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://job-boards.greenhouse.io/doordashusa/jobs/7063751", PlatformGreenhouse},
		{"https://boards.greenhouse.io/company/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/company/job-id", PlatformLever},
		{"https://company.wd5.myworkdayjobs.com/en-US/External", PlatformWorkday},
		{"https://jobs.ashbyhq.com/company/1234", PlatformAshby},
		{"https://example.com/jobs", PlatformUnknown},
		{"https://notgreenhouse.io.example.com/jobs", PlatformUnknown},
		{"https://fakelever.co/jobs", PlatformUnknown},
		{"::not a url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestBoardFor_UnknownUsesGenericSelectors(t *testing.T) {
	board := BoardFor(PlatformUnknown)
	assert.Equal(t, PlatformUnknown, board.Platform)
	assert.Equal(t, JobPostingSelectors(), board.ContentSelectors())
	assert.Contains(t, board.NoiseSelectors(), "#application-form")
	assert.Contains(t, board.BoilerplateSelectors(), ".eeo-statement")
}

func TestBoard_SelectorListsDoNotAlias(t *testing.T) {
	board := BoardFor(PlatformGreenhouse)
	noise := board.NoiseSelectors()
	noise[0] = "changed"
	assert.Equal(t, "form", board.NoiseSelectors()[0])
	assert.Contains(t, board.BoilerplateSelectors(), ".content-conclusion")
}

const greenhousePosting = `
<html><body>
<div class="job__description body">
	<div class="content-intro"><p>Acme builds payroll software.</p></div>
	<h2>Responsibilities</h2>
	<ul><li>Own payroll reconciliation.</li></ul>
	<div class="content-conclusion"><p>Acme is an equal opportunity employer.</p></div>
</div>
<div class="application--wrapper"><form>Apply</form></div>
</body></html>`

func TestExtractJobDescription_MarksBoilerplate(t *testing.T) {
	jd, err := ExtractJobDescription(greenhousePosting, PlatformGreenhouse)
	require.NoError(t, err)

	assert.Contains(t, jd.HTML, `<div data-no-annotate=""><p>Acme builds payroll software.</p></div>`)
	assert.Contains(t, jd.HTML, `<div data-no-annotate=""><p>Acme is an equal opportunity employer.</p></div>`)
	assert.NotContains(t, jd.HTML, "class=")
	assert.NotContains(t, jd.HTML, "Apply")
	assert.Contains(t, jd.Text, "equal opportunity employer")
}

func TestExtractJobDescription_BoilerplateIsNotHighlighted(t *testing.T) {
	jd, err := ExtractJobDescription(greenhousePosting, PlatformGreenhouse)
	require.NoError(t, err)

	surface, err := highlight.NewHTMLSurface(jd.HTML)
	require.NoError(t, err)

	// The company blurb comes first in the page but is marked, so the duty is highlighted.
	n, err := highlight.Apply(surface, []types.Annotation{
		{ID: "a1", Target: types.Target{Text: "payroll", OriginalText: "payroll"}, IsActive: true},
		{ID: "a2", Target: types.Target{Text: "equal opportunity", OriginalText: "equal opportunity"}, IsActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := surface.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<p>Acme builds payroll software.</p>`)
	assert.Contains(t, out, `<li>Own <mark`)
	assert.NotContains(t, out, `data-annotation-id="a2"`)
	assert.Equal(t, []string{"a1"}, surface.MarkedIDs())
}

func TestNeedsRendering(t *testing.T) {
	assert.True(t, NeedsRendering(nil))
	assert.True(t, NeedsRendering(&JobDescription{Text: "Loading..."}))
	assert.False(t, NeedsRendering(&JobDescription{Text: strings.Repeat("x", MinStaticTextLength)}))
	assert.False(t, NeedsRendering(&JobDescription{
		Text:     "Short but structured.",
		Sections: []Section{{Key: SectionOverview}, {Key: SectionQualifications}},
	}))
}

func TestNewBrowserRenderer_WaitsForBoardContent(t *testing.T) {
	r := NewBrowserRenderer(BoardFor(PlatformGreenhouse), 2*DefaultSettleTime, false)
	assert.Equal(t, ".job__description.body, .job__description, #content", r.waitSelector())
	assert.Equal(t, DefaultSettleTime, r.settle)

	short := NewBrowserRenderer(BoardFor(PlatformUnknown), DefaultSettleTime/5, false)
	assert.Equal(t, DefaultSettleTime/5, short.settle)

	defaults := NewBrowserRenderer(BoardFor(PlatformLever), 0, false)
	assert.Equal(t, DefaultTimeout, defaults.timeout)
}
