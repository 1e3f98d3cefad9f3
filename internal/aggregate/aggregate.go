// Package aggregate turns raw per-region results into health summaries.
// Everything here is a pure function over model types; nothing talks to the
// network or mutates jobs.
package aggregate

import (
	"github.com/raysh454/kakunin/internal/model"
)

// Classification boundaries. Reachability below DownThreshold dominates
// every other signal.
const (
	DownThreshold       = 60.0
	PerfectReachability = 100.0
	PerfectUsability    = 91.0
	GoodUsability       = 76.0
)

// vitalThresholds holds the good/poor boundaries per vital. Values at or
// below good rate good, at or below poor rate needs-improvement, above
// poor rate poor.
var vitalThresholds = map[model.VitalName]struct{ good, poor float64 }{
	model.VitalLCP:  {2500, 4000},
	model.VitalFCP:  {1800, 3000},
	model.VitalTTFB: {800, 1800},
	model.VitalCLS:  {0.1, 0.25},
	model.VitalTTI:  {3800, 7300},
}

// ClassifyHealth maps a reachability/usability pair onto a health state.
// The down check wins over everything else, so a reachability of 55 is down
// no matter how usable the page was. Nil reachability means no completed
// signal at all, which also classifies as down.
func ClassifyHealth(reachability, usability *float64) model.HealthState {
	if reachability == nil {
		return model.HealthDown
	}
	if *reachability < DownThreshold {
		return model.HealthDown
	}
	if *reachability == PerfectReachability && usability != nil {
		if *usability >= PerfectUsability {
			return model.HealthPerfect
		}
		if *usability >= GoodUsability {
			return model.HealthGood
		}
	}
	return model.HealthDegraded
}

// RateVital grades one vital measurement against its thresholds. Names
// without a threshold table entry rate good.
func RateVital(name model.VitalName, value float64) model.VitalRating {
	t, ok := vitalThresholds[name]
	if !ok {
		return model.RatingGood
	}
	switch {
	case value <= t.good:
		return model.RatingGood
	case value <= t.poor:
		return model.RatingNeedsImprovement
	default:
		return model.RatingPoor
	}
}

// RateVitals grades every vital present in v. Absent vitals are omitted
// from the result, never defaulted to zero.
func RateVitals(v *model.WebVitals) map[model.VitalName]model.VitalRating {
	if v == nil {
		return nil
	}
	ratings := make(map[model.VitalName]model.VitalRating)
	for _, name := range model.VitalNames {
		if val := v.Value(name); val != nil {
			ratings[name] = RateVital(name, *val)
		}
	}
	if len(ratings) == 0 {
		return nil
	}
	return ratings
}

// Aggregate condenses a job's region results into a Summary. Averages run
// over completed regions that actually reported the score; a region with an
// absent score neither drags the average down nor counts toward it. When
// the server supplied a state label for a region it is kept as-is, the
// classifier only fills gaps.
func Aggregate(job *model.Job) *model.Summary {
	if job == nil {
		return nil
	}

	summary := &model.Summary{
		JobID:      job.ID,
		URL:        job.URL,
		TotalCount: len(job.Regions),
	}

	var reachSum, usabSum float64
	var reachN, usabN int

	for _, region := range model.AllRegions {
		rr, ok := job.RegionResults[region]
		if !ok {
			continue
		}

		assessment := model.RegionAssessment{
			Region:       region,
			Status:       rr.Status,
			State:        model.HealthState(rr.State),
			Reachability: rr.Reachability,
			Usability:    rr.Usability,
			VitalRatings: RateVitals(rr.WebVitals),
		}
		if assessment.State == "" && rr.Status == model.RegionCompleted {
			assessment.State = ClassifyHealth(rr.Reachability, rr.Usability)
		}
		summary.Regions = append(summary.Regions, assessment)

		if rr.Status != model.RegionCompleted {
			continue
		}
		summary.CompletedCount++
		if rr.Reachability != nil {
			reachSum += *rr.Reachability
			reachN++
		}
		if rr.Usability != nil {
			usabSum += *rr.Usability
			usabN++
		}
	}

	if reachN > 0 {
		avg := reachSum / float64(reachN)
		summary.AvgReachability = &avg
	}
	if usabN > 0 {
		avg := usabSum / float64(usabN)
		summary.AvgUsability = &avg
	}

	summary.State = ClassifyHealth(summary.AvgReachability, summary.AvgUsability)

	return summary
}

// DiffSummaries compares two summaries of the same URL, typically from
// consecutive verification runs. Regions present on either side produce a
// delta entry; a score absent on one side leaves that delta nil rather
// than pretending it was zero.
func DiffSummaries(base, head *model.Summary) *model.SummaryDiff {
	if base == nil && head == nil {
		return &model.SummaryDiff{}
	}
	if base == nil {
		base = &model.Summary{}
	}
	if head == nil {
		head = &model.Summary{}
	}

	diff := &model.SummaryDiff{
		URL:                  head.URL,
		StateBase:            base.State,
		StateHead:            head.State,
		StateChanged:         base.State != head.State,
		AvgReachabilityDelta: deltaPtr(base.AvgReachability, head.AvgReachability),
		AvgUsabilityDelta:    deltaPtr(base.AvgUsability, head.AvgUsability),
	}
	if diff.URL == "" {
		diff.URL = base.URL
	}

	baseRegions := make(map[model.Region]model.RegionAssessment, len(base.Regions))
	for _, ra := range base.Regions {
		baseRegions[ra.Region] = ra
	}
	headRegions := make(map[model.Region]model.RegionAssessment, len(head.Regions))
	for _, ra := range head.Regions {
		headRegions[ra.Region] = ra
	}

	for _, region := range model.AllRegions {
		b, inBase := baseRegions[region]
		h, inHead := headRegions[region]
		if !inBase && !inHead {
			continue
		}
		delta := model.RegionDelta{
			Region:    region,
			StateBase: b.State,
			StateHead: h.State,
		}
		if inBase && inHead {
			delta.ReachabilityDelta = deltaPtr(b.Reachability, h.Reachability)
			delta.UsabilityDelta = deltaPtr(b.Usability, h.Usability)
		}
		diff.RegionDeltas = append(diff.RegionDeltas, delta)
	}

	return diff
}

// deltaPtr returns head-base when both sides are present, nil otherwise.
func deltaPtr(base, head *float64) *float64 {
	if base == nil || head == nil {
		return nil
	}
	d := *head - *base
	return &d
}
