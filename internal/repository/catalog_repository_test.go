package repository

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// The ranker sorts only the rows a tier query returns, so every tier
// query must order by its score before applying LIMIT; otherwise the
// database truncates an arbitrary subset and the strongest candidates
// can vanish before ranking.
func TestTierQueriesOrderByScoreBeforeLimit(t *testing.T) {
    queries := map[string]string{
        "popular_in_event":      popularInEventQuery,
        "popular_in_event_type": popularInEventTypeQuery,
        "trending_since":        trendingSinceQuery,
    }
    for name, q := range queries {
        t.Run(name, func(t *testing.T) {
            order := strings.Index(q, "ORDER BY score DESC")
            limit := strings.Index(q, "LIMIT ?")
            require.NotEqual(t, -1, order, "tier query must order by its score")
            require.NotEqual(t, -1, limit, "tier query must be limited")
            assert.Less(t, order, limit, "ORDER BY must precede LIMIT")

            // Ties resolve the same way the ranker breaks them.
            assert.Contains(t, q, "c.ranking DESC, c.likes_count DESC, c.title")
        })
    }
}
