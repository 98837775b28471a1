package model

import "time"

// CatalogSong is one entry in the shared song catalog. Popularity
// counters are maintained asynchronously from the catalog-activity feed
// and may lag behind the queue; lost increments are acceptable at this
// granularity.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – song title.
//  Artist         – performing artist.
//  TimesRequested – how often the song was admitted to a queue.
//  TimesCompleted – how often a performance of it finished.
//  LikesCount     – number of guests currently liking the song.
//  Difficulty     – free-form difficulty label ("easy", "hard", ...).
//  Ranking        – editorial quality score, 1 (worst) to 5 (best).
//  IsActive       – whether the song may be suggested or requested.
//  CreatedAt      – creation timestamp.
type CatalogSong struct {
    ID             uint64    // catalog_songs.id
    Title          string    // catalog_songs.title
    Artist         string    // catalog_songs.artist
    TimesRequested uint32    // catalog_songs.times_requested
    TimesCompleted uint32    // catalog_songs.times_completed
    LikesCount     uint32    // catalog_songs.likes_count
    Difficulty     string    // catalog_songs.difficulty
    Ranking        uint8     // catalog_songs.ranking (1-5)
    IsActive       bool      // catalog_songs.is_active
    CreatedAt      time.Time // catalog_songs.created_at
}

// SongLike records that a guest likes a catalog song. The (guest, song)
// pair is unique, which is what makes the like toggle idempotent.
//
// Fields:
//  ID            – primary key identifier.
//  GuestID       – guest who likes the song.
//  CatalogSongID – liked song.
//  CreatedAt     – creation timestamp.
type SongLike struct {
    ID            uint64    // song_likes.id
    GuestID       uint64    // song_likes.guest_id
    CatalogSongID uint64    // song_likes.catalog_song_id
    CreatedAt     time.Time // song_likes.created_at
}
