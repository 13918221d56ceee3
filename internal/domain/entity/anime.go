package entity

import "time"

// AnimeTypeTV is the catalog type of TV series.
const AnimeTypeTV = 2

// Anime is a catalog entry mirrored from Bangumi. This service only reads
// the catalog; the mirror runs outside of it.
type Anime struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	BangumiID   int        `gorm:"not null;uniqueIndex" json:"bangumiId"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	NameCn      string     `gorm:"size:255" json:"nameCn"`
	Image       string     `gorm:"size:512" json:"image"`
	Score       float64    `gorm:"not null;default:0" json:"score"`
	Rank        int        `gorm:"not null;default:0" json:"rank"`
	Tags        string     `gorm:"type:text" json:"tags"`
	Type        int        `gorm:"not null" json:"type"`
	AirDate     *time.Time `gorm:"type:date" json:"airDate,omitempty"`
	Episodes    int        `gorm:"not null;default:0" json:"episodes"`
	Description string     `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Anime) TableName() string {
	return "anime"
}

// AirsOn reports whether a weekly series airs on weekday, taking the
// weekday of its first air date.
func (a *Anime) AirsOn(weekday time.Weekday) bool {
	return a.AirDate != nil && a.AirDate.Weekday() == weekday
}
