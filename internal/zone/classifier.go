package zone

import (
	"regexp"
	"strings"
)

// Token conventions observed across game builds. The log names zones with a
// handful of prefix/suffix schemes that survived several client rewrites:
//
//	OOC_Stanton_1_Hurston      out-of-ship space around a body
//	Stanton2b_Daymar           body shorthand: system + planet index + moon letter
//	RR_Stanton_CRU_L1          rest stop / station
//	Area18_LandingZone         landing zone
var (
	bodyTokenRe    = regexp.MustCompile(`(?i)^(?:OOC_)?(Stanton|Pyro)[_]?(\d+)([a-z])?(?:_([A-Za-z0-9]+))?`)
	trailingIDRe   = regexp.MustCompile(`_\d+$`)
	stationHintRe  = regexp.MustCompile(`(?i)(station|gateway|_rr_|^rr_|platform|depot|_int_|harbor|tressler|olisar)`)
	landingHintRe  = regexp.MustCompile(`(?i)(landingzone|_lz\b|_lz_|lorville|area18|newbabbage|new_babbage|orison)`)
	outpostHintRe  = regexp.MustCompile(`(?i)(outpost|settlement|farm|mine_site|drugfarm)`)
	lagrangeHintRe = regexp.MustCompile(`(?i)_l[1-5](_|$)`)
)

// Classify decides whether a raw token names a primary (system, planet,
// moon) or secondary (station, landing zone, POI) zone. It is total: any
// input, including garbage, classifies to something.
func Classify(token string) Classification {
	t := strings.TrimSpace(token)
	if t == "" {
		return Secondary
	}
	if isSystemName(t) {
		return Primary
	}
	if stationHintRe.MatchString(t) || landingHintRe.MatchString(t) || outpostHintRe.MatchString(t) || lagrangeHintRe.MatchString(t) {
		return Secondary
	}
	if bodyTokenRe.MatchString(t) {
		return Primary
	}
	return Secondary
}

// DetermineSystem maps a token to its star system, or SystemUnknown when the
// token carries no system hint.
func DetermineSystem(token string) System {
	t := strings.ToLower(token)
	switch {
	case strings.Contains(t, "stanton"):
		return SystemStanton
	case strings.Contains(t, "pyro"):
		return SystemPyro
	}
	// Landing zones name their city, not their system, in most builds.
	if landingHintRe.MatchString(t) {
		return SystemStanton
	}
	return SystemUnknown
}

// DisplayName produces a stable human-readable name from a raw token:
// prefixes and trailing entity ids stripped, underscores spaced, words
// capitalized.
func DisplayName(token string) string {
	t := strings.TrimSpace(token)
	if t == "" {
		return "Unknown"
	}
	t = strings.TrimPrefix(t, "OOC_")
	t = strings.TrimPrefix(t, "ooc_")
	t = strings.TrimPrefix(t, "RR_")
	t = trailingIDRe.ReplaceAllString(t, "")
	words := strings.Split(t, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	name := strings.Join(words, " ")
	if name == "" {
		return "Unknown"
	}
	return name
}

// ClassifyZone builds a best-guess Zone from token patterns alone, used when
// the knowledge base has no exact entry. Confidence reflects how specific
// the matched convention is: named bodies 0.8, recognizable secondary
// conventions 0.7, bare fallback POI 0.6.
func ClassifyZone(token string) Zone {
	t := strings.TrimSpace(token)
	system := DetermineSystem(t)

	if m := bodyTokenRe.FindStringSubmatch(t); m != nil && !stationHintRe.MatchString(t) && !lagrangeHintRe.MatchString(t) {
		z := Zone{
			ID:             strings.ToLower(t),
			DisplayName:    DisplayName(t),
			Classification: Primary,
			System:         system,
			Confidence:     0.8,
		}
		if m[3] != "" {
			// Moon letter present: parent is the planet token.
			z.ParentID = strings.ToLower(m[1] + m[2])
		}
		return z
	}

	z := Zone{
		ID:             strings.ToLower(t),
		DisplayName:    DisplayName(t),
		Classification: Secondary,
		System:         system,
		Confidence:     0.6,
		Purpose:        PurposePOI,
	}
	switch {
	case stationHintRe.MatchString(t) || lagrangeHintRe.MatchString(t):
		z.Purpose = PurposeStation
		z.Confidence = 0.7
	case landingHintRe.MatchString(t):
		z.Purpose = PurposeLandingZone
		z.Confidence = 0.7
	case outpostHintRe.MatchString(t):
		z.Purpose = PurposeOutpost
		z.Confidence = 0.7
	case isSystemName(t):
		z.Classification = Primary
		z.Purpose = ""
		z.Confidence = 0.8
	}
	return z
}

func isSystemName(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "stanton", "pyro":
		return true
	}
	return false
}
