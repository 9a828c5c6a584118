package lesson

import (
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/typedrill/internal/generator"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/stats"
)

// Remedy identifies the remediation branch chosen for a failed attempt.
type Remedy int

// Remediation branches, in evaluation order.
const (
	RemedyAnchor Remedy = iota + 1
	RemedyAccuracy
	RemedySpeed
	RemedyRerun
)

func (r Remedy) String() string {
	switch r {
	case RemedyAnchor:
		return "anchor"
	case RemedyAccuracy:
		return "accuracy"
	case RemedySpeed:
		return "speed"
	case RemedyRerun:
		return "rerun"
	default:
		return "unknown"
	}
}

// minRemedialQueue is the queue size below which the original exercises are
// appended again after the remedial drills.
const minRemedialQueue = 3

// anchorEase scales the lesson difficulty for remedial anchor drills.
const anchorEase = 0.8

// Evaluate applies the pass rule to the exercises run in one attempt. Earned
// XP is 100 scaled by the lesson multiplier on a pass and 0 otherwise.
func Evaluate(l model.Lesson, wpms, accuracies []float64) model.LessonVerdict {
	v := model.LessonVerdict{
		AvgWPM:      stats.Mean(wpms),
		AvgAccuracy: stats.Mean(accuracies),
		Exercises:   len(wpms),
	}
	req := l.PassingRequirements
	v.Passed = v.AvgWPM >= req.MinWPM && v.AvgAccuracy >= req.MinAccuracy
	if v.Passed {
		v.EarnedXP = int(math.Round(100 * l.XPMultiplier()))
	}
	return v
}

// SelectRemedy picks the remediation branch for a failed verdict. Required
// keys that normalize to nothing (whitespace only) fall back to the accuracy
// drill, since no anchor drill can be built over them.
func SelectRemedy(l model.Lesson, v model.LessonVerdict) Remedy {
	req := l.PassingRequirements
	switch {
	case v.AvgAccuracy < req.MinAccuracy && len(generator.NormalizeKeys(l.RequiredKeys)) > 0:
		return RemedyAnchor
	case v.AvgAccuracy < req.MinAccuracy:
		return RemedyAccuracy
	case v.AvgWPM < req.MinWPM:
		return RemedySpeed
	default:
		return RemedyRerun
	}
}

// RemediationInput carries what BuildRemediation needs besides the branch.
type RemediationInput struct {
	Lesson         model.Lesson
	Original       []model.Exercise
	Corpus         []string
	AnchorDuration time.Duration
}

// BuildRemediation assembles the queue for the next attempt. Remedial drills
// come first; a queue shorter than three exercises gets the full original set
// appended.
func BuildRemediation(gen *generator.Generator, remedy Remedy, in RemediationInput) []model.Exercise {
	l := in.Lesson
	var queue []model.Exercise
	switch remedy {
	case RemedyAnchor:
		ex := gen.AnchorDrill(l.RequiredKeys, l.Difficulty*anchorEase, in.AnchorDuration, in.Corpus)
		queue = append(queue, markRemedial(ex))
	case RemedyAccuracy:
		ex := gen.AccuracyDrill(remedialContent(l, in.Original), l.PassingRequirements.MinAccuracy, l.Difficulty)
		queue = append(queue, markRemedial(ex))
	case RemedySpeed:
		ex := gen.SpeedSprint(remedialContent(l, in.Original), l.PassingRequirements.MinWPM, l.Difficulty)
		queue = append(queue, markRemedial(ex))
	default:
		queue = append(queue, in.Original...)
	}
	if len(queue) < minRemedialQueue {
		queue = append(queue, in.Original...)
	}
	return queue
}

func markRemedial(ex model.Exercise) model.Exercise {
	ex.Remedial = true
	return ex
}

// remedialContent is the lesson's content pattern, or the last original
// exercise's content when the lesson defines none.
func remedialContent(l model.Lesson, original []model.Exercise) string {
	if p := strings.TrimSpace(l.ContentPattern); p != "" {
		return p
	}
	for i := len(original) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(original[i].Content); c != "" {
			return c
		}
	}
	return string(l.RequiredKeys)
}
