package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

// AnimeRepo serves a fixed catalog held in memory. It is read-only after
// construction.
type AnimeRepo struct {
	entries []entity.Anime
}

// NewAnimeRepo keeps the TV entries of catalog, best scored first.
func NewAnimeRepo(catalog ...entity.Anime) *AnimeRepo {
	var entries []entity.Anime
	for _, a := range catalog {
		if a.Type == entity.AnimeTypeTV {
			entries = append(entries, a)
		}
	}
	slices.SortStableFunc(entries, func(a, b entity.Anime) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return &AnimeRepo{entries: entries}
}

func (r *AnimeRepo) TopRated(_ context.Context, limit int) ([]entity.Anime, error) {
	return page(r.entries, limit, 0), nil
}

func (r *AnimeRepo) AiringOn(_ context.Context, weekday time.Weekday, limit int) ([]entity.Anime, error) {
	var matched []entity.Anime
	for i := range r.entries {
		if r.entries[i].AirsOn(weekday) {
			matched = append(matched, r.entries[i])
		}
	}
	return page(matched, limit, 0), nil
}

func (r *AnimeRepo) Search(_ context.Context, keyword string, limit, offset int) ([]entity.Anime, error) {
	keyword = strings.ToLower(keyword)
	var matched []entity.Anime
	for _, a := range r.entries {
		if strings.Contains(strings.ToLower(a.Name), keyword) || strings.Contains(strings.ToLower(a.NameCn), keyword) {
			matched = append(matched, a)
		}
	}
	return page(matched, limit, offset), nil
}

func page(entries []entity.Anime, limit, offset int) []entity.Anime {
	if offset >= len(entries) {
		return []entity.Anime{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return slices.Clone(entries)
}
