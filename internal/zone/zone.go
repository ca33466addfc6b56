// Package zone resolves raw location tokens from the game log into a
// primary/secondary zone hierarchy with a confidence score.
package zone

// Classification splits zones into coarse bodies and fine-grained locations.
type Classification string

const (
	// Primary zones are systems, planets and moons.
	Primary Classification = "Primary"
	// Secondary zones are stations, landing zones and points of interest.
	Secondary Classification = "Secondary"
)

// System identifies the star system a zone belongs to.
type System string

const (
	SystemStanton System = "Stanton"
	SystemPyro    System = "Pyro"
	SystemUnknown System = "Unknown"
)

// Purpose labels what a secondary zone is for.
type Purpose string

const (
	PurposeStation     Purpose = "station"
	PurposeLandingZone Purpose = "landing-zone"
	PurposeOutpost     Purpose = "outpost"
	PurposePOI         Purpose = "poi"
)

// Zone is a resolved location. Primary zones carry parent/children links and
// a controlling faction; secondary zones carry their associated primary, the
// body they orbit and a purpose label.
type Zone struct {
	ID             string         `json:"id"`
	DisplayName    string         `json:"displayName"`
	Classification Classification `json:"classification"`
	System         System         `json:"system"`
	Confidence     float64        `json:"confidence"`

	// Primary only.
	ParentID string   `json:"parentId,omitempty"`
	Children []string `json:"children,omitempty"`
	Faction  string   `json:"faction,omitempty"`

	// Secondary only.
	PrimaryID    string  `json:"primaryId,omitempty"`
	OrbitingBody string  `json:"orbitingBody,omitempty"`
	Purpose      Purpose `json:"purpose,omitempty"`
}

// Match methods reported in a Resolution.
const (
	MatchExact    = "exact"
	MatchPattern  = "pattern"
	MatchFallback = "fallback"
)

// Resolution is the total result of resolving a token. Resolution never
// fails: the worst case is the zero-confidence "Unknown" fallback.
type Resolution struct {
	Zone         Zone    `json:"zone"`
	Confidence   float64 `json:"confidence"`
	MatchMethod  string  `json:"matchMethod"`
	FallbackUsed bool    `json:"fallbackUsed"`
}

// Fallback returns the zero-confidence resolution used when nothing matches.
func Fallback() Resolution {
	return Resolution{
		Zone: Zone{
			ID:             "unknown",
			DisplayName:    "Unknown",
			Classification: Secondary,
			System:         SystemUnknown,
			Purpose:        PurposePOI,
		},
		Confidence:   0,
		MatchMethod:  MatchFallback,
		FallbackUsed: true,
	}
}
