package graph

import (
	"sort"

	"discourse/issuegraph/internal/pattern"
)

// Metric names as they appear in the report
const (
	MetricConversionRate     = "conversion_rate"
	MetricTimeToClaim        = "time_to_claim"
	MetricTimeToFirstResult  = "time_to_first_result"
	MetricContributorBreadth = "contributor_breadth"
	MetricCrossPersonRate    = "cross_person_rate"
)

// Metric is one headline number. Value is nil when the metric is undefined
// for the input (an empty population), never a fabricated zero.
type Metric struct {
	Value *float64  `json:"value"`
	Count int       `json:"count"`
	Unit  string    `json:"unit"`
	CI    *Interval `json:"ci,omitempty"`
}

// MetricsOptions holds metric computation parameters
type MetricsOptions struct {
	// CountActiveQuestions treats question nodes with dated log entries as
	// claimed in the conversion rate
	CountActiveQuestions bool
}

// ConversionDetail breaks down the conversion rate
type ConversionDetail struct {
	Questions       int `json:"questions"`
	ActiveQuestions int `json:"active_questions"`
	WorkNodes       int `json:"work_nodes"`
	Claimed         int `json:"claimed"`
	Explicit        int `json:"explicit"`
	Inferred        int `json:"inferred"`
	Unclaimed       int `json:"unclaimed"`
	Numerator       int `json:"numerator"`
	Denominator     int `json:"denominator"`
}

// BreadthDetail describes contributor breadth over claimed work nodes
type BreadthDetail struct {
	Distribution map[int]int `json:"distribution"`
	Multi        int         `json:"multi"`
	Single       int         `json:"single"`
}

// CrossPersonDetail breaks down the cross-person rate
type CrossPersonDetail struct {
	Cross       int `json:"cross"`
	Self        int `json:"self"`
	PartlyKnown int `json:"partly_known"`
}

// ClaimMetrics are the per-record values behind the aggregates
type ClaimMetrics struct {
	DaysToClaim       *float64
	DaysToFirstResult *float64
	Breadth           int
	Negative          bool
}

// Metrics is the output of the Metrics Engine
type Metrics struct {
	Headline map[string]Metric `json:"headline"`

	Conversion        ConversionDetail  `json:"conversion"`
	TimeToClaim       Summary           `json:"time_to_claim"`
	TimeToFirstResult Summary           `json:"time_to_first_result"`
	Breadth           BreadthDetail     `json:"contributor_breadth"`
	CrossPerson       CrossPersonDetail `json:"cross_person"`
	Exchange          *ExchangeReport   `json:"exchange"`

	PerClaim map[string]ClaimMetrics `json:"-"`
}

// ComputeMetrics derives every metric from the reconciled snapshot, its
// attribution and its links. Inputs are not modified.
func ComputeMetrics(snap *Snapshot, attr *Attribution, links Links, opts *MetricsOptions) *Metrics {
	if opts == nil {
		opts = &MetricsOptions{}
	}
	m := &Metrics{
		Headline: make(map[string]Metric, 5),
		PerClaim: make(map[string]ClaimMetrics, len(attr.Claims)),
	}

	m.Headline[MetricConversionRate] = m.conversion(snap, attr, opts)

	var toClaim, toResult, breadths []float64
	for _, c := range attr.Claims {
		pc := ClaimMetrics{}

		if d, ok := DaysBetween(c.CreatedAt, c.ClaimedAt); ok {
			toClaim = append(toClaim, d)
			pc.DaysToClaim = &d
			pc.Negative = pc.Negative || d < 0
		}

		link := links[c.WorkID]
		if link != nil && len(link.Results) > 0 {
			ref := c.ClaimedAt
			if c.Type == ClaimInferred {
				ref = c.CreatedAt
			}
			if d, ok := DaysBetween(ref, link.EarliestResultAt); ok {
				toResult = append(toResult, d)
				pc.DaysToFirstResult = &d
				pc.Negative = pc.Negative || d < 0
			}
		}

		pc.Breadth = breadth(c, link)
		breadths = append(breadths, float64(pc.Breadth))

		m.PerClaim[c.WorkID] = pc
	}

	m.TimeToClaim = Summarize(toClaim)
	m.Headline[MetricTimeToClaim] = summaryMetric(m.TimeToClaim)
	m.TimeToFirstResult = Summarize(toResult)
	m.Headline[MetricTimeToFirstResult] = summaryMetric(m.TimeToFirstResult)

	m.Breadth = BreadthDetail{Distribution: make(map[int]int)}
	for _, b := range breadths {
		n := int(b)
		m.Breadth.Distribution[n]++
		switch {
		case n > 1:
			m.Breadth.Multi++
		case n == 1:
			m.Breadth.Single++
		}
	}
	bm := Metric{Count: len(breadths), Unit: "identities"}
	if len(breadths) > 0 {
		mean := Summarize(breadths).Mean
		bm.Value = &mean
	}
	m.Headline[MetricContributorBreadth] = bm

	m.Headline[MetricCrossPersonRate] = m.crossPerson(attr)
	m.Exchange = ComputeExchange(attr.Claims)

	return m
}

func (m *Metrics) conversion(snap *Snapshot, attr *Attribution, opts *MetricsOptions) Metric {
	d := &m.Conversion
	d.Questions = snap.Count(pattern.RoleQuestion)
	d.ActiveQuestions = len(attr.ActiveQuestions)
	d.WorkNodes = snap.Count(pattern.RoleWork)
	d.Claimed = len(attr.Claims)
	d.Unclaimed = len(attr.Unclaimed)
	for _, c := range attr.Claims {
		if c.Type == ClaimExplicit {
			d.Explicit++
		} else {
			d.Inferred++
		}
	}

	// Every question is a work node that was never claimed, so the question
	// population is the unclaimed questions plus all work nodes.
	d.Numerator = d.Claimed
	if opts.CountActiveQuestions {
		d.Numerator += d.ActiveQuestions
	}
	d.Denominator = d.Questions + d.WorkNodes

	return rateMetric(d.Numerator, d.Denominator)
}

func (m *Metrics) crossPerson(attr *Attribution) Metric {
	d := &m.CrossPerson
	for _, c := range attr.Claims {
		switch {
		case !c.BothKnown():
			d.PartlyKnown++
		case c.CrossPerson():
			d.Cross++
		default:
			d.Self++
		}
	}
	return rateMetric(d.Cross, d.Cross+d.Self)
}

func rateMetric(part, whole int) Metric {
	metric := Metric{Count: whole, Unit: "percent"}
	if v, ok := Percent(part, whole); ok {
		metric.Value = &v
		ci, _ := WilsonInterval(part, whole)
		metric.CI = &ci
	}
	return metric
}

func summaryMetric(s Summary) Metric {
	metric := Metric{Count: s.Count, Unit: "days"}
	if s.Count > 0 {
		mean := s.Mean
		metric.Value = &mean
	}
	return metric
}

// breadth counts distinct known identities among the creator, the claimer
// and the creators of linked results
func breadth(c *Claim, link *Link) int {
	seen := make(map[Identity]struct{})
	add := func(id Identity) {
		if id.Known() {
			seen[id] = struct{}{}
		}
	}
	add(c.Creator)
	add(c.Claimer)
	if link != nil {
		for _, r := range link.Results {
			add(r.Creator)
		}
	}
	return len(seen)
}

// MetricNames returns the headline metric names in report order
func MetricNames() []string {
	return []string{
		MetricConversionRate,
		MetricTimeToClaim,
		MetricTimeToFirstResult,
		MetricContributorBreadth,
		MetricCrossPersonRate,
	}
}

// rankIdentities orders identities by count descending, then by name
func rankIdentities(m map[Identity]int) []Identity {
	ids := make([]Identity, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if m[ids[i]] != m[ids[j]] {
			return m[ids[i]] > m[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
