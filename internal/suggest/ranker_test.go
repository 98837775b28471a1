package suggest

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/encorehq/encore/internal/model"
)

type fakeSource struct {
    eventType    string
    guestArtists []string
    byArtist     []Candidate
    inEvent      []Candidate
    inType       []Candidate
    trending     []Candidate
}

func (f *fakeSource) EventType(context.Context, uint64) (string, error) {
    return f.eventType, nil
}

func (f *fakeSource) GuestArtists(context.Context, uint64, uint64) ([]string, error) {
    return f.guestArtists, nil
}

func (f *fakeSource) SongsByArtists(context.Context, []string, int) ([]Candidate, error) {
    return f.byArtist, nil
}

func (f *fakeSource) PopularInEvent(context.Context, uint64, int) ([]Candidate, error) {
    return f.inEvent, nil
}

func (f *fakeSource) PopularInEventType(context.Context, string, uint64, int) ([]Candidate, error) {
    return f.inType, nil
}

func (f *fakeSource) TrendingSince(context.Context, time.Time, int) ([]Candidate, error) {
    return f.trending, nil
}

func song(id uint64, title string, ranking uint8, likes uint32) model.CatalogSong {
    return model.CatalogSong{ID: id, Title: title, Artist: "artist", Ranking: ranking, LikesCount: likes, IsActive: true}
}

func TestFirstReasonWins(t *testing.T) {
    src := &fakeSource{
        eventType:    "wedding",
        guestArtists: []string{"queen"},
        byArtist:     []Candidate{{Song: song(1, "Don't Stop Me Now", 5, 10)}},
        inEvent: []Candidate{
            {Song: song(1, "Don't Stop Me Now", 5, 10), Score: 9},
            {Song: song(2, "Dancing Queen", 4, 8), Score: 5},
        },
        inType:   []Candidate{{Song: song(2, "Dancing Queen", 4, 8), Score: 20}},
        trending: []Candidate{{Song: song(3, "Wonderwall", 3, 2), Score: 7}},
    }
    r := NewRanker(src)

    got, err := r.Suggest(context.Background(), 1, 42, 10)
    require.NoError(t, err)
    require.Len(t, got, 3)
    assert.Equal(t, uint64(1), got[0].Song.ID)
    assert.Equal(t, ReasonSimilar, got[0].Reason, "song 1 keeps its highest-tier reason")
    assert.Equal(t, uint64(2), got[1].Song.ID)
    assert.Equal(t, ReasonPopularEvent, got[1].Reason)
    assert.Equal(t, uint64(3), got[2].Song.ID)
    assert.Equal(t, ReasonTrending, got[2].Reason)
}

func TestAnonymousGuestSkipsSimilarTier(t *testing.T) {
    src := &fakeSource{
        guestArtists: []string{"queen"},
        byArtist:     []Candidate{{Song: song(1, "a", 5, 1)}},
        inEvent:      []Candidate{{Song: song(2, "b", 4, 1), Score: 3}},
    }
    r := NewRanker(src)

    got, err := r.Suggest(context.Background(), 1, 0, 10)
    require.NoError(t, err)
    require.Len(t, got, 1)
    assert.Equal(t, uint64(2), got[0].Song.ID)
    assert.Equal(t, ReasonPopularEvent, got[0].Reason)
}

func TestEventTypeReasonTag(t *testing.T) {
    src := &fakeSource{
        eventType: "Corporate Party",
        inType:    []Candidate{{Song: song(5, "e", 3, 1), Score: 4}},
    }
    r := NewRanker(src)

    got, err := r.Suggest(context.Background(), 1, 0, 10)
    require.NoError(t, err)
    require.Len(t, got, 1)
    assert.Equal(t, "popular_in_corporate_party", got[0].Reason)
}

func TestTieBreaksByRankingThenLikes(t *testing.T) {
    src := &fakeSource{
        inEvent: []Candidate{
            {Song: song(1, "low rank", 2, 50), Score: 5},
            {Song: song(2, "high rank few likes", 5, 1), Score: 5},
            {Song: song(3, "high rank many likes", 5, 9), Score: 5},
            {Song: song(4, "top score", 1, 0), Score: 6},
        },
    }
    r := NewRanker(src)

    got, err := r.Suggest(context.Background(), 1, 0, 10)
    require.NoError(t, err)
    require.Len(t, got, 4)
    assert.Equal(t, uint64(4), got[0].Song.ID, "score beats all tie-breaks")
    assert.Equal(t, uint64(3), got[1].Song.ID, "ranking desc, then likes desc")
    assert.Equal(t, uint64(2), got[2].Song.ID)
    assert.Equal(t, uint64(1), got[3].Song.ID)
}

func TestTruncatesToLimitWithoutPadding(t *testing.T) {
    src := &fakeSource{
        inEvent: []Candidate{
            {Song: song(1, "a", 5, 1), Score: 9},
            {Song: song(2, "b", 5, 1), Score: 8},
            {Song: song(3, "c", 5, 1), Score: 7},
        },
        trending: []Candidate{
            {Song: song(1, "a", 5, 1), Score: 9}, // duplicate, must not pad
        },
    }
    r := NewRanker(src)

    got, err := r.Suggest(context.Background(), 1, 0, 2)
    require.NoError(t, err)
    require.Len(t, got, 2)
    assert.Equal(t, uint64(1), got[0].Song.ID)
    assert.Equal(t, uint64(2), got[1].Song.ID)

    got, err = r.Suggest(context.Background(), 1, 0, 0)
    require.NoError(t, err)
    assert.Empty(t, got)
}
