package dto

import "time"

// Collection and catalog bodies use the camelCase keys of the web client.

// AddToCollectionRequest is the body of POST /api/collection/add.
type AddToCollectionRequest struct {
	AnimeID            uint     `json:"animeId" binding:"required"`
	Title              string   `json:"title" binding:"required,max=255"`
	TitleCn            string   `json:"titleCn" binding:"max=255"`
	Image              string   `json:"image" binding:"max=512"`
	Episodes           *int     `json:"episodes" binding:"omitempty,min=0"`
	Status             string   `json:"status"`
	Progress           *int     `json:"progress" binding:"omitempty,min=0"`
	LastWatchedEpisode *int     `json:"lastWatchedEpisode" binding:"omitempty,min=0"`
	Rating             *float64 `json:"rating" binding:"omitempty,min=0,max=10"`
	Notes              string   `json:"notes" binding:"max=2000"`
}

// UpdateCollectionRequest is the body of POST /api/collection/update.
type UpdateCollectionRequest struct {
	AnimeID  uint   `json:"animeId" binding:"required"`
	Status   string `json:"status" binding:"required"`
	Progress *int   `json:"progress" binding:"omitempty,min=0"`
}

// RemoveFromCollectionRequest is the body of POST /api/collection/remove.
type RemoveFromCollectionRequest struct {
	AnimeID uint `json:"animeId" binding:"required"`
}

// WatchStatusRequest is the query or body of POST /api/user-anime-status/update-status.
type WatchStatusRequest struct {
	AnimeID uint   `form:"animeId" json:"animeId" binding:"required"`
	Status  string `form:"status" json:"status" binding:"required"`
}

// WatchProgressRequest is the query or body of POST /api/user-anime-status/update-progress.
type WatchProgressRequest struct {
	AnimeID  uint `form:"animeId" json:"animeId" binding:"required"`
	Progress *int `form:"progress" json:"progress" binding:"required,min=0"`
}

// CollectionItemDTO is one collected anime.
type CollectionItemDTO struct {
	AnimeID            uint      `json:"animeId"`
	Title              string    `json:"title"`
	TitleCn            string    `json:"titleCn,omitempty"`
	Image              string    `json:"image,omitempty"`
	Episodes           *int      `json:"episodes,omitempty"`
	Status             string    `json:"status"`
	Progress           int       `json:"progress"`
	LastWatchedEpisode *int      `json:"lastWatchedEpisode,omitempty"`
	Rating             *float64  `json:"rating,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CollectionsResponse groups a collection by status.
type CollectionsResponse struct {
	WantToWatch []CollectionItemDTO `json:"wantToWatch"`
	Watching    []CollectionItemDTO `json:"watching"`
	Watched     []CollectionItemDTO `json:"watched"`
	Dropped     []CollectionItemDTO `json:"dropped"`
}

// AnimeDTO is a catalog entry.
type AnimeDTO struct {
	ID          uint    `json:"id"`
	BangumiID   int     `json:"bangumiId"`
	Name        string  `json:"name"`
	NameCn      string  `json:"nameCn,omitempty"`
	Image       string  `json:"image,omitempty"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank,omitempty"`
	Tags        string  `json:"tags,omitempty"`
	AirDate     string  `json:"airDate,omitempty"`
	Episodes    int     `json:"episodes"`
	Description string  `json:"description,omitempty"`
}
