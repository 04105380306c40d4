package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindSentenceBounds(t *testing.T) {
	const jd = "Own the roadmap. Ship weekly releases! Now go."

	tests := []struct {
		name     string
		text     string
		position int
		want     string
		wantOK   bool
	}{
		{"middle sentence", jd, strings.Index(jd, "weekly") + 2, "Ship weekly releases!", true},
		{"first sentence", jd, 3, "Own the roadmap.", true},
		{"last sentence", jd, len(jd) - 2, "Now go.", true},
		{"on terminator", jd, strings.Index(jd, "!"), "Ship weekly releases!", true},
		{"start of text", jd, 0, "Own the roadmap.", true},
		{"decimal is not a terminator", "Ship v1.2 today. Then rest.", 7, "Ship v1.2 today.", true},
		{"question mark", "Can you lead? We hope so.", 2, "Can you lead?", true},
		{"line break ends sentence", "Requirements\n- Go experience\n- SQL", 17, "- Go experience", true},
		{"no terminator", "  five years of Go  ", 6, "five years of Go", true},
		{"blank line", "First.\n\n\nSecond.", 7, "", false},
		{"empty text", "", 0, "", false},
		{"negative position", jd, -1, "", false},
		{"past end", jd, len(jd) + 1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := FindSentenceBounds(tt.text, tt.position)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, b.Text(tt.text))
			}
		})
	}
}

func TestFindSentenceBounds_ExactOffsets(t *testing.T) {
	const jd = "Own the roadmap. Ship weekly releases! Now go."

	b, ok := FindSentenceBounds(jd, strings.Index(jd, "weekly"))
	assert.True(t, ok)
	assert.Equal(t, Bounds{Start: 17, End: 38}, b)
}
