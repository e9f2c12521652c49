package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/internal/infrastructure/database/models"
)

type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// Save persists one accepted entity. Re-delivery of a guid that already
// exists is a no-op returning the stored row.
func (r *EntityRepository) Save(ctx context.Context, received domain.ReceivedEntity) (domain.ReceivedEntity, error) {

	model := models.ReceivedEntity{
		EntityType: received.EntityType,
		GUID:       received.GUID,
		Author:     received.Author,
		Body:       received.Body,
		Private:    received.Private,
		ReceivedAt: received.ReceivedAt,
	}

	tx := r.db.WithContext(ctx)
	if model.GUID != "" {
		tx = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guid"}},
			DoNothing: true,
		})
	}
	if err := tx.Create(&model).Error; err != nil {
		return domain.ReceivedEntity{}, err
	}

	if model.ID == 0 && model.GUID != "" {
		if err := r.db.WithContext(ctx).First(&model, "guid = ?", model.GUID).Error; err != nil {
			return domain.ReceivedEntity{}, err
		}
	}

	return entityFromModel(model), nil
}

// Recent returns the latest accepted entities, newest first.
func (r *EntityRepository) Recent(ctx context.Context, limit int) ([]domain.ReceivedEntity, error) {

	var rows []models.ReceivedEntity
	err := r.db.WithContext(ctx).
		Where("private = ?", false).
		Order("received_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]domain.ReceivedEntity, 0, len(rows))
	for _, row := range rows {
		results = append(results, entityFromModel(row))
	}
	return results, nil
}

func entityFromModel(model models.ReceivedEntity) domain.ReceivedEntity {
	return domain.ReceivedEntity{
		ID:         model.ID,
		EntityType: model.EntityType,
		GUID:       model.GUID,
		Author:     model.Author,
		Body:       model.Body,
		Private:    model.Private,
		ReceivedAt: model.ReceivedAt,
	}
}
