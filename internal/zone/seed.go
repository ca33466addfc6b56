package zone

// seedZones is the local knowledge base shipped with the app. It covers the
// bodies and major stations a session is likely to visit; everything else is
// handled by pattern classification or learned at runtime. An authoritative
// server update can replace this set wholesale via ReplaceDatabase.
func seedZones() []Zone {
	return []Zone{
		// Systems.
		{ID: "stanton", DisplayName: "Stanton", Classification: Primary, System: SystemStanton, Confidence: 1, Faction: "UEE", Children: []string{"stanton1", "stanton2", "stanton3", "stanton4"}},
		{ID: "pyro", DisplayName: "Pyro", Classification: Primary, System: SystemPyro, Confidence: 1, Faction: "None", Children: []string{"pyro1", "pyro2", "pyro3", "pyro4", "pyro5", "pyro6"}},

		// Stanton planets.
		{ID: "stanton1", DisplayName: "Hurston", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton", Faction: "Hurston Dynamics", Children: []string{"stanton1a", "stanton1b", "stanton1c", "stanton1d"}},
		{ID: "stanton2", DisplayName: "Crusader", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton", Faction: "Crusader Industries", Children: []string{"stanton2a", "stanton2b", "stanton2c"}},
		{ID: "stanton3", DisplayName: "ArcCorp", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton", Faction: "ArcCorp", Children: []string{"stanton3a", "stanton3b"}},
		{ID: "stanton4", DisplayName: "microTech", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton", Faction: "microTech", Children: []string{"stanton4a", "stanton4b", "stanton4c"}},

		// Stanton moons.
		{ID: "stanton1a", DisplayName: "Aberdeen", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton1", Faction: "Hurston Dynamics"},
		{ID: "stanton1b", DisplayName: "Arial", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton1", Faction: "Hurston Dynamics"},
		{ID: "stanton1c", DisplayName: "Ita", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton1", Faction: "Hurston Dynamics"},
		{ID: "stanton1d", DisplayName: "Magda", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton1", Faction: "Hurston Dynamics"},
		{ID: "stanton2a", DisplayName: "Cellin", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton2", Faction: "Crusader Industries"},
		{ID: "stanton2b", DisplayName: "Daymar", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton2", Faction: "Crusader Industries"},
		{ID: "stanton2c", DisplayName: "Yela", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton2", Faction: "Crusader Industries"},
		{ID: "stanton3a", DisplayName: "Lyria", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton3", Faction: "ArcCorp"},
		{ID: "stanton3b", DisplayName: "Wala", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton3", Faction: "ArcCorp"},
		{ID: "stanton4a", DisplayName: "Calliope", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton4", Faction: "microTech"},
		{ID: "stanton4b", DisplayName: "Clio", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton4", Faction: "microTech"},
		{ID: "stanton4c", DisplayName: "Euterpe", Classification: Primary, System: SystemStanton, Confidence: 1, ParentID: "stanton4", Faction: "microTech"},

		// Stanton landing zones.
		{ID: "lorville", DisplayName: "Lorville", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton1", OrbitingBody: "Hurston", Purpose: PurposeLandingZone},
		{ID: "area18", DisplayName: "Area18", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton3", OrbitingBody: "ArcCorp", Purpose: PurposeLandingZone},
		{ID: "newbabbage", DisplayName: "New Babbage", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton4", OrbitingBody: "microTech", Purpose: PurposeLandingZone},
		{ID: "orison", DisplayName: "Orison", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton2", OrbitingBody: "Crusader", Purpose: PurposeLandingZone},

		// Stanton stations.
		{ID: "everus_harbor", DisplayName: "Everus Harbor", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton1", OrbitingBody: "Hurston", Purpose: PurposeStation},
		{ID: "seraphim_station", DisplayName: "Seraphim Station", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton2", OrbitingBody: "Crusader", Purpose: PurposeStation},
		{ID: "baijini_point", DisplayName: "Baijini Point", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton3", OrbitingBody: "ArcCorp", Purpose: PurposeStation},
		{ID: "port_tressler", DisplayName: "Port Tressler", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton4", OrbitingBody: "microTech", Purpose: PurposeStation},
		{ID: "grim_hex", DisplayName: "Grim HEX", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton2c", OrbitingBody: "Yela", Purpose: PurposeStation},
		{ID: "port_olisar", DisplayName: "Port Olisar", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton2", OrbitingBody: "Crusader", Purpose: PurposeStation},

		// Pyro planets.
		{ID: "pyro1", DisplayName: "Pyro I", Classification: Primary, System: SystemPyro, Confidence: 1, ParentID: "pyro"},
		{ID: "pyro2", DisplayName: "Monox", Classification: Primary, System: SystemPyro, Confidence: 1, ParentID: "pyro"},
		{ID: "pyro3", DisplayName: "Bloom", Classification: Primary, System: SystemPyro, Confidence: 1, ParentID: "pyro"},
		{ID: "pyro4", DisplayName: "Pyro IV", Classification: Primary, System: SystemPyro, Confidence: 1, ParentID: "pyro"},
		{ID: "pyro5", DisplayName: "Pyro V", Classification: Primary, System: SystemPyro, Confidence: 1, ParentID: "pyro"},
		{ID: "pyro6", DisplayName: "Terminus", Classification: Primary, System: SystemPyro, Confidence: 1, ParentID: "pyro"},

		// Pyro stations.
		{ID: "ruin_station", DisplayName: "Ruin Station", Classification: Secondary, System: SystemPyro, Confidence: 1, PrimaryID: "pyro6", OrbitingBody: "Terminus", Purpose: PurposeStation},
		{ID: "pyro_gateway", DisplayName: "Pyro Gateway", Classification: Secondary, System: SystemPyro, Confidence: 1, PrimaryID: "pyro", Purpose: PurposeStation},
		{ID: "stanton_gateway", DisplayName: "Stanton Gateway", Classification: Secondary, System: SystemStanton, Confidence: 1, PrimaryID: "stanton", Purpose: PurposeStation},
	}
}

// systemDefaultPrimary is the hard-coded last-resort primary per system,
// used when history and proximity both fail to place a secondary zone.
var systemDefaultPrimary = map[System]string{
	SystemStanton: "stanton1",
	SystemPyro:    "pyro5",
}
