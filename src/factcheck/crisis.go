package factcheck

import "strings"

// GeneralCrisisType is reported when no crisis keyword matches.
const GeneralCrisisType = "general"

type crisisKeywords struct {
	kind     string
	keywords []string
}

var crisisTaxonomy = []crisisKeywords{
	{"transport", []string{"train", "metro", "bus", "taxi", "traffic", "road", "highway", "bridge", "sea link"}},
	{"flooding", []string{"flood", "waterlogging", "water level", "overflow", "submerged", "inundated"}},
	{"weather", []string{"rain", "monsoon", "cyclone", "storm", "wind", "weather", "alert"}},
	{"emergency", []string{"rescue", "evacuation", "emergency", "helpline", "relief", "shelter"}},
	{"infrastructure", []string{"power", "electricity", "water supply", "closed", "collapsed", "damaged"}},
}

var mumbaiLocations = []string{
	"Andheri", "Bandra", "Borivali", "Churchgate", "Colaba", "Dadar",
	"Ghatkopar", "Juhu", "Kurla", "Lower Parel", "Malad", "Marine Drive",
	"Powai", "Sion", "Thane", "Vashi", "Vikhroli", "Worli",
}

// DetectCrisisTypes classifies a claim into crisis categories such as
// transport or flooding, in taxonomy order.
func DetectCrisisTypes(claimText string) []string {
	lower := strings.ToLower(claimText)
	var kinds []string
	for _, c := range crisisTaxonomy {
		if containsAny(lower, c.keywords) {
			kinds = append(kinds, c.kind)
		}
	}
	if len(kinds) == 0 {
		return []string{GeneralCrisisType}
	}
	return kinds
}

// ExtractLocation returns the first known Mumbai locality named in the claim.
func ExtractLocation(claimText string) (string, bool) {
	lower := strings.ToLower(claimText)
	for _, loc := range mumbaiLocations {
		if strings.Contains(lower, strings.ToLower(loc)) {
			return loc, true
		}
	}
	return "", false
}

// PublicGuidance is the advice shown next to a verdict.
func PublicGuidance(status Status, crisisTypes []string) string {
	has := func(kind string) bool {
		for _, k := range crisisTypes {
			if k == kind {
				return true
			}
		}
		return false
	}

	switch status {
	case StatusVerified:
		switch {
		case has("transport"):
			return "Confirmed disruption. Plan alternate routes. Check official railway/traffic updates."
		case has("flooding"):
			return "Confirmed flooding. Avoid affected areas. Follow BMC advisories. Stay safe."
		case has("emergency"):
			return "Confirmed emergency. Follow official instructions. Contact helplines if needed."
		}
	case StatusDisputed:
		return "This claim is FALSE. Do not panic. Verify from official sources before sharing."
	}
	return "Unverified. Wait for official confirmation before taking action."
}
