package factcheck

import "strings"

// GeneralTag is returned when no topic keyword matches.
const GeneralTag = "General"

var tagTaxonomy = []struct {
	tag      string
	keywords []string
}{
	{"Natural Disasters", []string{"earthquake", "tsunami", "hurricane", "flood", "disaster"}},
	{"Health", []string{"vaccine", "covid", "virus", "medical", "health", "disease"}},
	{"Politics", []string{"election", "government", "president", "vote", "political"}},
	{"Science", []string{"scientific", "research", "study", "climate", "data"}},
	{"Technology", []string{"tech", "ai", "5g", "internet", "cyber"}},
	{"Conspiracy Theory", []string{"conspiracy", "hoax", "fake", "manipulation", "haarp"}},
}

// ExtractTags maps claim text onto the topic taxonomy by case-insensitive
// substring match, in taxonomy order.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, t := range tagTaxonomy {
		if containsAny(lower, t.keywords) {
			tags = append(tags, t.tag)
		}
	}
	if len(tags) == 0 {
		return []string{GeneralTag}
	}
	return tags
}
