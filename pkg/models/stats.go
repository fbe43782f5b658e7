package models

import "strconv"

// RecentActivityLimit is how many records the dashboard lists as recent.
const RecentActivityLimit = 10

// Stats summarizes a snapshot of analysis records for the dashboard.
type Stats struct {
	TotalProcessed int               `json:"totalProcessed"`
	HighPriority   int               `json:"highPriority"`
	AvgSentiment   string            `json:"avgSentiment"`
	Sentiment      map[Sentiment]int `json:"sentimentDistribution"`
	Priority       map[Priority]int  `json:"priorityLevels"`
	Recent         []AnalysisResult  `json:"recentActivity"`
}

// ComputeStats aggregates records. Unrecognized sentiment or priority values
// are counted in the totals but not in any distribution bucket.
func ComputeStats(records []AnalysisResult) Stats {
	s := Stats{
		TotalProcessed: len(records),
		Sentiment:      make(map[Sentiment]int, len(Sentiments)),
		Priority:       make(map[Priority]int, len(Priorities)),
	}
	for _, v := range Sentiments {
		s.Sentiment[v] = 0
	}
	for _, v := range Priorities {
		s.Priority[v] = 0
	}

	for _, r := range records {
		if _, ok := s.Sentiment[r.Sentiment]; ok {
			s.Sentiment[r.Sentiment]++
		}
		if _, ok := s.Priority[r.Priority]; ok {
			s.Priority[r.Priority]++
		}
	}
	s.HighPriority = s.Priority[PriorityHigh]
	s.AvgSentiment = averageSentiment(s.Sentiment[SentimentPositive], len(records))

	n := min(len(records), RecentActivityLimit)
	s.Recent = append([]AnalysisResult(nil), records[:n]...)
	return s
}

// averageSentiment scores the positive share on a 0-10 scale, one decimal.
func averageSentiment(positive, total int) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(positive)/float64(total)*10, 'f', 1, 64)
}
