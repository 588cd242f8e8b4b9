package webserver

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	maxClaimLen   = 5000
	maxCommentLen = 1000
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup from user-submitted text. Entities produced by
// the policy are decoded again so plain text round-trips unchanged.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
