//nolint:tagliatelle // superior snake-case yo.
package posts

import (
	"context"
	"math"
)

// Statistics aggregates engagement over every registered table.
type Statistics struct {
	TotalPosts    int     `json:"total_posts"`
	TotalViews    int64   `json:"total_views"`
	TotalLikes    int64   `json:"total_likes"`
	TotalComments int64   `json:"total_comments"`
	AvgViews      float64 `json:"avg_views"`
	AvgLikes      float64 `json:"avg_likes"`
	AvgComments   float64 `json:"avg_comments"`

	// Tables lists the tables that contributed; failing tables are skipped.
	Tables  []string `json:"tables"`
	Skipped []string `json:"skipped,omitempty"`
}

// Statistics sums views, likes and comments across all tables. Tables that
// cannot be read are skipped and listed in the result.
func (s *Service) Statistics(ctx context.Context) Statistics {
	stats := Statistics{Tables: make([]string, 0)}

	for _, cache := range s.registry.Caches() {
		posts, err := cache.GetPosts(ctx, 0)
		if err != nil {
			s.log.WithError(err).WithField("table", cache.Name()).Warn("Skipping table in statistics")

			stats.Skipped = append(stats.Skipped, cache.Name())

			continue
		}

		stats.Tables = append(stats.Tables, cache.Name())

		for _, p := range posts {
			stats.TotalPosts++
			stats.TotalViews += p.Views
			stats.TotalLikes += p.Likes
			stats.TotalComments += p.CommentCount
		}
	}

	if stats.TotalPosts > 0 {
		n := float64(stats.TotalPosts)
		stats.AvgViews = roundTenth(float64(stats.TotalViews) / n)
		stats.AvgLikes = roundTenth(float64(stats.TotalLikes) / n)
		stats.AvgComments = roundTenth(float64(stats.TotalComments) / n)
	}

	return stats
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
