package analytics

import (
	"sort"

	"github.com/gorkemtikic/shotlib/internal/catalog"
)

// SliceCount is one name/count pair in a distribution.
type SliceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LibraryStats is the catalog summary for the dashboard: totals plus
// topic and language distributions, optionally enriched with external
// interaction data.
type LibraryStats struct {
	TotalItems      int          `json:"totalItems"`
	TotalFeedbacks  int          `json:"totalFeedbacks"`
	ActiveFeedbacks int          `json:"activeFeedbacks"`
	Topics          []SliceCount `json:"topics"`
	Languages       []SliceCount `json:"languages"`

	// Interactions is nil when the tracking endpoint reported no data.
	Interactions *InteractionStats `json:"interactions,omitempty"`
}

// ComputeLibraryStats builds the summary from the current collections.
// Topic distribution is sorted by name, language distribution by count
// descending (then name), matching the historical dashboard ordering.
func ComputeLibraryStats(items []catalog.Item, feedbacks []catalog.Feedback, interactions *InteractionStats) LibraryStats {
	topicCounts := make(map[string]int)
	langCounts := make(map[string]int)
	for _, it := range items {
		topic := it.Topic
		if topic == "" {
			topic = "Uncategorized"
		}
		topicCounts[topic]++

		lang := it.Language
		if lang == "" {
			lang = "Unknown"
		}
		langCounts[lang]++
	}

	stats := LibraryStats{
		TotalItems:   len(items),
		Topics:       toSlices(topicCounts),
		Languages:    toSlices(langCounts),
		Interactions: interactions,
	}
	sort.Slice(stats.Topics, func(i, j int) bool {
		return stats.Topics[i].Name < stats.Topics[j].Name
	})
	sort.Slice(stats.Languages, func(i, j int) bool {
		a, b := stats.Languages[i], stats.Languages[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})

	for _, f := range feedbacks {
		stats.TotalFeedbacks++
		if f.Status == catalog.FeedbackActive {
			stats.ActiveFeedbacks++
		}
	}

	return stats
}

func toSlices(counts map[string]int) []SliceCount {
	out := make([]SliceCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, SliceCount{Name: name, Count: count})
	}
	return out
}
