package processors

import (
	"fmt"
	"strings"

	"linkvault/internal/types"
)

const socialMinWords = 5

// blockedMarkers are phrases that show up when a page served an interstitial
// instead of the content.
var blockedMarkers = []string{
	"access denied",
	"verify you are human",
	"are you a robot",
	"enable javascript",
	"please enable cookies",
	"checking your browser",
	"captcha",
	"sign in to continue",
	"log in to continue",
	"login to continue",
	"subscribe to continue reading",
}

// AssessQuality returns a reason why content should be reviewed before it is
// trusted, or "" when it looks fine.
func AssessQuality(content *types.ExtractedContent, minWords int) string {
	if content == nil {
		return "No content extracted"
	}

	threshold := minWords
	if content.ContentType == types.ContentSocialMedia && threshold > socialMinWords {
		threshold = socialMinWords
	}

	// A long article that merely mentions a captcha is still an article.
	if content.WordCount < 400 {
		lower := strings.ToLower(content.Text)
		for _, marker := range blockedMarkers {
			if strings.Contains(lower, marker) {
				return fmt.Sprintf("Page looks blocked or behind a login (%q)", marker)
			}
		}
	}

	if content.WordCount < threshold {
		return fmt.Sprintf("Only %d words extracted", content.WordCount)
	}

	if strings.TrimSpace(content.Title) == "" {
		return "No title found"
	}
	return ""
}
