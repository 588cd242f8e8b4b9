package factcheck

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

var (
	conspiracyKeywords = []string{"haarp", "conspiracy", "hoax", "fake", "manipulation", "cover-up", "illuminati", "chemtrails"}
	healthKeywords     = []string{"vaccine", "covid", "virus", "medical", "cure", "treatment", "disease"}
	scienceKeywords    = []string{"earthquake", "scientific", "research", "study", "climate", "data", "evidence"}
	politicsKeywords   = []string{"election", "government", "president", "vote", "fraud", "rigged"}
)

// band is a half-open confidence range [lo, lo+width).
type band struct {
	lo, width int
}

var (
	conspiracyBand     = band{10, 20}
	healthDisputedBand = band{15, 25}
	healthVerifiedBand = band{75, 20}
	scienceBand        = band{80, 15}
	politicsBand       = band{40, 30}
)

const neutralConfidence = 50

// Heuristic is the deterministic keyword classifier used when the completion
// service is unavailable or returns unusable output. Only the confidence
// score within each branch's band is random.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic builds a classifier drawing confidence jitter from src. A nil
// src seeds from the clock.
func NewHeuristic(src rand.Source) *Heuristic {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Heuristic{rng: rand.New(src)}
}

func (h *Heuristic) pick(b band) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return b.lo + h.rng.IntN(b.width)
}

// Classify maps claim text onto a canned verification result.
func (h *Heuristic) Classify(claimText string) Result {
	return classify(claimText, h.pick)
}

// Sources returns the source list of the branch claimText falls into without
// drawing from the random source.
func (h *Heuristic) Sources(claimText string) []Source {
	return classify(claimText, func(b band) int { return b.lo }).Sources
}

func classify(claimText string, pick func(band) int) Result {
	lower := strings.ToLower(claimText)

	switch {
	case containsAny(lower, conspiracyKeywords):
		return Result{
			Status:          StatusDisputed,
			ConfidenceScore: pick(conspiracyBand),
			Summary:         "This claim lacks credible scientific evidence and contradicts established understanding from multiple authoritative sources. The claim appears to be based on conspiracy theories that have been thoroughly debunked by experts in the field.",
			Sources:         conspiracySources(),
			Evidence:        Evidence{Supporting: 1, Contradicting: 14, Neutral: 2},
			Method:          MethodHeuristic,
		}

	case containsAny(lower, healthKeywords):
		if strings.Contains(lower, "cure") || strings.Contains(lower, "hoax") {
			return Result{
				Status:          StatusDisputed,
				ConfidenceScore: pick(healthDisputedBand),
				Summary:         "This health claim is not supported by peer-reviewed medical research and contradicts guidance from major health organizations. Medical misinformation can be dangerous.",
				Sources:         healthSources(StatusDisputed),
				Evidence:        Evidence{Supporting: 2, Contradicting: 11, Neutral: 3},
				Method:          MethodHeuristic,
			}
		}
		return Result{
			Status:          StatusVerified,
			ConfidenceScore: pick(healthVerifiedBand),
			Summary:         "This health information is consistent with current medical understanding and is supported by reputable health organizations and peer-reviewed research.",
			Sources:         healthSources(StatusVerified),
			Evidence:        Evidence{Supporting: 12, Contradicting: 1, Neutral: 2},
			Method:          MethodHeuristic,
		}

	case containsAny(lower, scienceKeywords):
		return Result{
			Status:          StatusVerified,
			ConfidenceScore: pick(scienceBand),
			Summary:         "This claim is well-supported by scientific evidence from multiple credible sources. The information aligns with current scientific consensus and peer-reviewed research.",
			Sources:         scienceSources(),
			Evidence:        Evidence{Supporting: 13, Contradicting: 0, Neutral: 2},
			Method:          MethodHeuristic,
		}

	case containsAny(lower, politicsKeywords):
		return Result{
			Status:          StatusUnverified,
			ConfidenceScore: pick(politicsBand),
			Summary:         "This political claim requires additional context and verification. Multiple sources provide conflicting information, and the claim may be partially true or require nuanced interpretation.",
			Sources:         politicsSources(),
			Evidence:        Evidence{Supporting: 5, Contradicting: 4, Neutral: 6},
			Method:          MethodHeuristic,
		}
	}

	return Result{
		Status:          StatusUnverified,
		ConfidenceScore: neutralConfidence,
		Summary:         "Insufficient evidence available to verify this claim conclusively. More information from credible sources is needed for a definitive assessment.",
		Sources:         neutralSources(),
		Evidence:        Evidence{Supporting: 3, Contradicting: 2, Neutral: 5},
		Method:          MethodHeuristic,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Source lists are rebuilt per call so callers never share a backing array.

func conspiracySources() []Source {
	return []Source{
		{Title: "USGS Earthquake Science Center", URL: "https://earthquake.usgs.gov/learn/topics/plate_tectonics/", Credibility: 95, Type: "Scientific Authority",
			Excerpt: "Earthquakes are caused by the movement of tectonic plates along fault lines. There is no scientific evidence supporting artificial earthquake generation."},
		{Title: "Snopes Fact Check", URL: "https://snopes.com/fact-check/", Credibility: 88, Type: "Fact-Check",
			Excerpt: "Multiple conspiracy theories about weather manipulation and artificial disasters have been thoroughly investigated and debunked."},
		{Title: "Nature Geoscience Journal", URL: "https://nature.com/ngeo", Credibility: 92, Type: "Academic",
			Excerpt: "Peer-reviewed research consistently shows natural tectonic processes as the primary cause of seismic activity."},
		{Title: "HAARP Official Website", URL: "https://haarp.gi.alaska.edu/", Credibility: 85, Type: "Government",
			Excerpt: "HAARP is a research facility studying the ionosphere. It has no capability to influence weather patterns or seismic activity."},
		{Title: "Scientific American", URL: "https://scientificamerican.com", Credibility: 90, Type: "News",
			Excerpt: "Scientific consensus firmly establishes natural causes for geological and meteorological phenomena."},
	}
}

func healthSources(status Status) []Source {
	whoExcerpt := "WHO confirms this information aligns with current medical understanding."
	if status == StatusDisputed {
		whoExcerpt = "WHO guidelines contradict this claim and emphasize evidence-based medical information."
	}
	return []Source{
		{Title: "World Health Organization (WHO)", URL: "https://who.int", Credibility: 98, Type: "Government", Excerpt: whoExcerpt},
		{Title: "Centers for Disease Control (CDC)", URL: "https://cdc.gov", Credibility: 96, Type: "Government",
			Excerpt: "CDC provides evidence-based health information reviewed by medical experts."},
		{Title: "The Lancet Medical Journal", URL: "https://thelancet.com", Credibility: 94, Type: "Academic",
			Excerpt: "Peer-reviewed medical research provides scientific basis for health recommendations."},
		{Title: "Mayo Clinic", URL: "https://mayoclinic.org", Credibility: 93, Type: "Scientific Authority",
			Excerpt: "Medical experts provide evidence-based health information for patients."},
	}
}

func scienceSources() []Source {
	return []Source{
		{Title: "Nature Scientific Journal", URL: "https://nature.com", Credibility: 95, Type: "Academic",
			Excerpt: "Peer-reviewed research supports this scientific understanding with robust evidence."},
		{Title: "National Academy of Sciences", URL: "https://nas.edu", Credibility: 97, Type: "Scientific Authority",
			Excerpt: "Scientific consensus from leading researchers confirms this information."},
		{Title: "Science Magazine", URL: "https://science.org", Credibility: 93, Type: "Academic",
			Excerpt: "Multiple studies published in peer-reviewed journals support this claim."},
		{Title: "NASA", URL: "https://nasa.gov", Credibility: 96, Type: "Government",
			Excerpt: "Scientific data and research confirm this understanding."},
	}
}

func politicsSources() []Source {
	return []Source{
		{Title: "Reuters Fact Check", URL: "https://reuters.com/fact-check", Credibility: 88, Type: "Fact-Check",
			Excerpt: "Independent fact-checking reveals mixed evidence for this political claim."},
		{Title: "Associated Press", URL: "https://apnews.com", Credibility: 90, Type: "News",
			Excerpt: "News reporting provides context but verification requires additional sources."},
		{Title: "PolitiFact", URL: "https://politifact.com", Credibility: 85, Type: "Fact-Check",
			Excerpt: "Fact-checking analysis shows this claim needs additional context."},
		{Title: "FactCheck.org", URL: "https://factcheck.org", Credibility: 87, Type: "Fact-Check",
			Excerpt: "Independent analysis reveals complexity in this political claim."},
	}
}

func neutralSources() []Source {
	return []Source{
		{Title: "General Fact-Checking Database", URL: "https://factcheck.org", Credibility: 85, Type: "Fact-Check",
			Excerpt: "Limited information available for verification of this specific claim."},
		{Title: "Reuters News", URL: "https://reuters.com", Credibility: 88, Type: "News",
			Excerpt: "News sources provide some context but verification is incomplete."},
		{Title: "Academic Research Database", URL: "https://scholar.google.com", Credibility: 90, Type: "Academic",
			Excerpt: "Research databases show limited peer-reviewed information on this topic."},
	}
}
