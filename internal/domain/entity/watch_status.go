package entity

import (
	"fmt"
	"time"
)

// WatchStatus is the state of an anime in a user's collection.
type WatchStatus string

const (
	StatusWantToWatch WatchStatus = "wantToWatch"
	StatusWatching    WatchStatus = "watching"
	StatusWatched     WatchStatus = "watched"
	StatusDropped     WatchStatus = "dropped"
)

// WatchStatuses lists every status in display order.
var WatchStatuses = []WatchStatus{StatusWantToWatch, StatusWatching, StatusWatched, StatusDropped}

// ParseWatchStatus accepts the exact wire values only.
func ParseWatchStatus(s string) (WatchStatus, error) {
	for _, status := range WatchStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid watch status %q", s)
}

// UserAnimeStatus is one entry of a user's collection. Title, TitleCn, Image
// and Episodes are copied from the client when the entry is added, so the
// collection renders without the catalog.
type UserAnimeStatus struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	UserID             uint        `gorm:"not null;uniqueIndex:idx_user_anime_status_user_anime" json:"userId"`
	AnimeID            uint        `gorm:"not null;uniqueIndex:idx_user_anime_status_user_anime" json:"animeId"`
	Title              string      `gorm:"size:255;not null" json:"title"`
	TitleCn            string      `gorm:"size:255" json:"titleCn"`
	Image              string      `gorm:"size:512" json:"image"`
	Episodes           *int        `json:"episodes"`
	Status             WatchStatus `gorm:"size:20;not null" json:"status"`
	Progress           int         `gorm:"not null;default:0" json:"progress"`
	LastWatchedEpisode *int        `json:"lastWatchedEpisode"`
	Rating             *float64    `json:"rating"`
	Notes              string      `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserAnimeStatus) TableName() string {
	return "user_anime_status"
}

// NormalizeProgress makes Progress consistent with Status. Want-to-watch and
// dropped entries have no progress, a watching entry has seen at least one
// episode, and a watched entry has seen all of them (or at least one when
// the episode count is unknown).
func (s *UserAnimeStatus) NormalizeProgress(requested *int) {
	switch s.Status {
	case StatusWantToWatch, StatusDropped:
		s.Progress = 0
	case StatusWatching:
		s.Progress = 1
		if requested != nil && *requested > 1 {
			s.Progress = *requested
		}
		if s.Episodes != nil && *s.Episodes > 0 && s.Progress > *s.Episodes {
			s.Progress = *s.Episodes
		}
	case StatusWatched:
		switch {
		case requested == nil && s.Episodes != nil:
			s.Progress = *s.Episodes
		case requested == nil:
			s.Progress = 1
		case s.Episodes != nil:
			s.Progress = min(*requested, *s.Episodes)
		default:
			s.Progress = max(1, *requested)
		}
	}
}
