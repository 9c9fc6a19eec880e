package implementation

import (
	"context"
	"errors"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/mapper"
	"nutria-assistant-be/internal/model"
	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApiCredentialRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CatalogMapper
}

func NewApiCredentialRepository(db *gorm.DB) contract.ApiCredentialRepository {
	return &ApiCredentialRepositoryImpl{db: db, mapper: mapper.NewCatalogMapper()}
}

func (r *ApiCredentialRepositoryImpl) Create(ctx context.Context, credential *entity.ApiCredential) error {
	m := r.mapper.CredentialToModel(credential)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if _, unique := uniqueViolation(err); unique {
			return contract.ErrDuplicate
		}
		return err
	}
	*credential = *r.mapper.CredentialToEntity(m)
	return nil
}

func (r *ApiCredentialRepositoryImpl) FindLeastUsed(ctx context.Context) (*entity.ApiCredential, error) {
	var m model.ApiCredential
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("active = ?", true).
		Order("uses ASC, id ASC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.CredentialToEntity(&m), nil
}

func (r *ApiCredentialRepositoryImpl) IncrementUses(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.ApiCredential{}).
		Where("id = ?", id).
		UpdateColumn("uses", gorm.Expr("uses + 1")).Error
}

func (r *ApiCredentialRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ApiCredential, error) {
	var models []*model.ApiCredential
	if err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.ApiCredential, len(models))
	for i, m := range models {
		out[i] = r.mapper.CredentialToEntity(m)
	}
	return out, nil
}
