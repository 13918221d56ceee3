package helper

import (
	"time"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/handler/dto"
)

// ToUserDTO strips the credential and lockout fields from an account.
func ToUserDTO(user *entity.User) dto.UserDTO {
	if user == nil {
		return dto.UserDTO{}
	}
	return dto.UserDTO{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		LastLoginTime: user.LastLoginTime,
		CreatedAt:     user.CreatedAt,
	}
}

func ToCollectionItemDTO(row *entity.UserAnimeStatus) dto.CollectionItemDTO {
	return dto.CollectionItemDTO{
		AnimeID:            row.AnimeID,
		Title:              row.Title,
		TitleCn:            row.TitleCn,
		Image:              row.Image,
		Episodes:           row.Episodes,
		Status:             string(row.Status),
		Progress:           row.Progress,
		LastWatchedEpisode: row.LastWatchedEpisode,
		Rating:             row.Rating,
		Notes:              row.Notes,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

// ToCollectionItemDTOs never returns nil, so empty lists encode as [].
func ToCollectionItemDTOs(rows []entity.UserAnimeStatus) []dto.CollectionItemDTO {
	list := make([]dto.CollectionItemDTO, len(rows))
	for i := range rows {
		list[i] = ToCollectionItemDTO(&rows[i])
	}
	return list
}

func ToCollectionsResponse(grouped map[entity.WatchStatus][]entity.UserAnimeStatus) dto.CollectionsResponse {
	return dto.CollectionsResponse{
		WantToWatch: ToCollectionItemDTOs(grouped[entity.StatusWantToWatch]),
		Watching:    ToCollectionItemDTOs(grouped[entity.StatusWatching]),
		Watched:     ToCollectionItemDTOs(grouped[entity.StatusWatched]),
		Dropped:     ToCollectionItemDTOs(grouped[entity.StatusDropped]),
	}
}

// ToAnimeDTOs formats air dates as YYYY-MM-DD.
func ToAnimeDTOs(list []entity.Anime) []dto.AnimeDTO {
	out := make([]dto.AnimeDTO, len(list))
	for i, a := range list {
		out[i] = dto.AnimeDTO{
			ID:          a.ID,
			BangumiID:   a.BangumiID,
			Name:        a.Name,
			NameCn:      a.NameCn,
			Image:       a.Image,
			Score:       a.Score,
			Rank:        a.Rank,
			Tags:        a.Tags,
			Episodes:    a.Episodes,
			Description: a.Description,
		}
		if a.AirDate != nil {
			out[i].AirDate = a.AirDate.Format(time.DateOnly)
		}
	}
	return out
}
