package postgres

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

// AnimeRepo reads the anime catalog table.
type AnimeRepo struct {
	db *gorm.DB
}

func NewAnimeRepo(db *gorm.DB) *AnimeRepo {
	return &AnimeRepo{db: db}
}

func (r *AnimeRepo) TopRated(ctx context.Context, limit int) ([]entity.Anime, error) {
	return r.find(r.tv(ctx).Limit(limit))
}

// AiringOn compares the day of week of air_date; Postgres DOW numbers
// Sunday as 0 like time.Weekday.
func (r *AnimeRepo) AiringOn(ctx context.Context, weekday time.Weekday, limit int) ([]entity.Anime, error) {
	return r.find(r.tv(ctx).
		Where("air_date IS NOT NULL AND EXTRACT(DOW FROM air_date) = ?", int(weekday)).
		Limit(limit))
}

func (r *AnimeRepo) Search(ctx context.Context, keyword string, limit, offset int) ([]entity.Anime, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	return r.find(r.tv(ctx).
		Where("(name ILIKE ? OR name_cn ILIKE ?)", pattern, pattern).
		Limit(limit).
		Offset(offset))
}

func (r *AnimeRepo) tv(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("type = ?", entity.AnimeTypeTV).
		Order("score DESC, id ASC")
}

func (r *AnimeRepo) find(query *gorm.DB) ([]entity.Anime, error) {
	rows := []entity.Anime{}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes keyword match literally inside a LIKE pattern.
func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}
