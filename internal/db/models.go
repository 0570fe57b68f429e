package db

// Run represents a row in the runs table
type Run struct {
	ID              string   `json:"id"`
	CreatedAt       int64    `json:"created_at"` // Unix millis
	JSONLDPath      string   `json:"jsonld_path"`
	RoamPath        string   `json:"roam_path"`
	Records         int      `json:"records"`
	Claimed         int      `json:"claimed"`
	Linked          int      `json:"linked"`
	MatchRate       float64  `json:"match_rate"`
	ConversionRate  *float64 `json:"conversion_rate"`
	CrossPersonRate *float64 `json:"cross_person_rate"`
	Warnings        int      `json:"warnings"`
}

// RunInputs names the export files a run was computed from
type RunInputs struct {
	JSONLDPath string
	RoamPath   string
}
