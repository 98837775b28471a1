// Package suggest produces reason-tagged song recommendations for
// guests. It is an ordered list of scoring tiers evaluated in priority
// order; each tier yields candidates carrying a single reason, and a
// song keeps the reason of the first (highest) tier that produced it.
package suggest

import (
    "context"
    "sort"
    "strings"
    "time"

    "github.com/encorehq/encore/internal/model"
)

// Reason tags attached to suggestions, highest priority first. The
// per-event-type tag is derived at runtime ("popular_in_wedding").
const (
    ReasonSimilar      = "similar_to_your_picks"
    ReasonPopularEvent = "popular_in_this_event"
    ReasonTrending     = "trending_now"
)

// defaultTrendingWindow bounds the completion-velocity fallback tier.
const defaultTrendingWindow = 7 * 24 * time.Hour

// Candidate is one song proposed by a tier. Score is the tier's own
// metric (request count, completion velocity, ...); higher sorts first.
// Ties break by descending ranking, then descending likes.
type Candidate struct {
    Song  model.CatalogSong
    Score int
}

// Suggestion is one ranked output entry. Each song appears at most once
// with its single best-matching reason.
type Suggestion struct {
    Song   model.CatalogSong `json:"song"`
    Reason string            `json:"reason"`
}

// Source supplies the candidates for each tier. Implementations only
// return active catalog songs; ordering is not required, the ranker
// sorts.
type Source interface {
    // EventType returns the category of the event ("wedding", ...).
    EventType(ctx context.Context, eventID uint64) (string, error)

    // GuestArtists lists the artists of the guest's own queued and
    // completed picks at this event.
    GuestArtists(ctx context.Context, eventID, guestID uint64) ([]string, error)

    // SongsByArtists returns songs sharing one of the given artists.
    SongsByArtists(ctx context.Context, artists []string, limit int) ([]Candidate, error)

    // PopularInEvent ranks songs by request count within the event.
    PopularInEvent(ctx context.Context, eventID uint64, limit int) ([]Candidate, error)

    // PopularInEventType ranks songs by aggregate request count across
    // past events of the same type, excluding the current event.
    PopularInEventType(ctx context.Context, eventType string, excludeEventID uint64, limit int) ([]Candidate, error)

    // TrendingSince ranks songs by completions across all events since
    // the given time.
    TrendingSince(ctx context.Context, since time.Time, limit int) ([]Candidate, error)
}

// Ranker merges the tiers into one deduplicated, truncated list.
type Ranker struct {
    src    Source
    window time.Duration
    now    func() time.Time // overridable in tests
}

// NewRanker constructs a Ranker over the given source.
func NewRanker(src Source) *Ranker {
    if src == nil {
        panic("nil source passed to suggest.NewRanker")
    }
    return &Ranker{src: src, window: defaultTrendingWindow, now: time.Now}
}

// Suggest returns up to limit suggestions for the guest at the event.
// guestID may be zero for anonymous callers, which skips the
// similar-to-your-picks tier. The output is truncated to limit and
// never padded with duplicates.
func (r *Ranker) Suggest(ctx context.Context, eventID, guestID uint64, limit int) ([]Suggestion, error) {
    if limit <= 0 {
        return nil, nil
    }
    out := make([]Suggestion, 0, limit)
    seen := make(map[uint64]bool)

    merge := func(cands []Candidate, reason string) {
        sortCandidates(cands)
        for _, c := range cands {
            if len(out) >= limit {
                return
            }
            if seen[c.Song.ID] {
                continue
            }
            seen[c.Song.ID] = true
            out = append(out, Suggestion{Song: c.Song, Reason: reason})
        }
    }

    if guestID != 0 {
        artists, err := r.src.GuestArtists(ctx, eventID, guestID)
        if err != nil {
            return nil, err
        }
        if len(artists) > 0 {
            cands, err := r.src.SongsByArtists(ctx, artists, limit)
            if err != nil {
                return nil, err
            }
            merge(cands, ReasonSimilar)
        }
    }

    if len(out) < limit {
        cands, err := r.src.PopularInEvent(ctx, eventID, limit)
        if err != nil {
            return nil, err
        }
        merge(cands, ReasonPopularEvent)
    }

    if len(out) < limit {
        eventType, err := r.src.EventType(ctx, eventID)
        if err != nil {
            return nil, err
        }
        if eventType != "" {
            cands, err := r.src.PopularInEventType(ctx, eventType, eventID, limit)
            if err != nil {
                return nil, err
            }
            merge(cands, typeReason(eventType))
        }
    }

    if len(out) < limit {
        cands, err := r.src.TrendingSince(ctx, r.now().Add(-r.window), limit)
        if err != nil {
            return nil, err
        }
        merge(cands, ReasonTrending)
    }

    return out, nil
}

// sortCandidates orders a tier: score desc, ranking desc, likes desc,
// then title for a stable output.
func sortCandidates(cands []Candidate) {
    sort.SliceStable(cands, func(i, j int) bool {
        a, b := cands[i], cands[j]
        if a.Score != b.Score {
            return a.Score > b.Score
        }
        if a.Song.Ranking != b.Song.Ranking {
            return a.Song.Ranking > b.Song.Ranking
        }
        if a.Song.LikesCount != b.Song.LikesCount {
            return a.Song.LikesCount > b.Song.LikesCount
        }
        return a.Song.Title < b.Song.Title
    })
}

// typeReason builds the per-event-type reason tag, e.g.
// "popular_in_wedding".
func typeReason(eventType string) string {
    slug := strings.ToLower(strings.TrimSpace(eventType))
    slug = strings.ReplaceAll(slug, " ", "_")
    return "popular_in_" + slug
}
