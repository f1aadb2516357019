package gamification

import (
	"fmt"
	"math"
	"sort"

	"github.com/skillforge/backend/internal/models"
)

const (
	strengthThreshold = 80.0
	weaknessThreshold = 50.0
	typeThreshold     = 60.0
	maxWeaknessNotes  = 3
)

// AnalyzePerformance aggregates scored questions per type and topic and
// derives strengths, weaknesses and recommendations. Strengths are ordered
// strongest first, weaknesses weakest first; ties keep first-seen order.
func AnalyzePerformance(questions []models.ScoredQuestion) models.PerformanceAnalysis {
	byType := map[string]models.Tally{}
	byTopic := map[string]models.Tally{}
	var typeOrder, topicOrder []string

	for _, q := range questions {
		qtype := string(q.Type)
		if _, seen := byType[qtype]; !seen {
			typeOrder = append(typeOrder, qtype)
		}
		byType[qtype] = tally(byType[qtype], q.IsCorrect)

		topic := topicOf(q.AnsweredQuestion)
		if _, seen := byTopic[topic]; !seen {
			topicOrder = append(topicOrder, topic)
		}
		byTopic[topic] = tally(byTopic[topic], q.IsCorrect)
	}

	strengths := []models.TopicScore{}
	weaknesses := []models.TopicScore{}
	for _, topic := range topicOrder {
		t := byTopic[topic]
		if t.Total == 0 {
			continue
		}
		score := rate(t)
		entry := models.TopicScore{Topic: topic, Score: round1(score), Questions: t.Total}
		switch {
		case score >= strengthThreshold:
			strengths = append(strengths, entry)
		case score < weaknessThreshold:
			weaknesses = append(weaknesses, entry)
		}
	}
	sort.SliceStable(strengths, func(i, j int) bool { return strengths[i].Score > strengths[j].Score })
	sort.SliceStable(weaknesses, func(i, j int) bool { return weaknesses[i].Score < weaknesses[j].Score })

	recs := []string{}
	for i, w := range weaknesses {
		if i == maxWeaknessNotes {
			break
		}
		recs = append(recs, fmt.Sprintf("Reinforce %s (current score: %.1f%%)", w.Topic, w.Score))
	}
	if len(strengths) > 0 {
		recs = append(recs, fmt.Sprintf("Great work on %s! Keep it up.", strengths[0].Topic))
	}
	for _, qtype := range typeOrder {
		t := byType[qtype]
		if t.Total > 0 && rate(t) < typeThreshold {
			recs = append(recs, fmt.Sprintf("Practice more '%s' questions", qtype))
		}
	}

	return models.PerformanceAnalysis{
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		ByType:          byType,
		ByTopic:         byTopic,
		Recommendations: recs,
	}
}

func topicOf(q models.AnsweredQuestion) string {
	if q.Topic == "" {
		return models.DefaultTopic
	}
	return q.Topic
}

func tally(t models.Tally, correct bool) models.Tally {
	t.Total++
	if correct {
		t.Correct++
	}
	return t
}

func rate(t models.Tally) float64 {
	return float64(t.Correct) / float64(t.Total) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
