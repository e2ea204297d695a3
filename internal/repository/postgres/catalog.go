package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/internal/repository"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
)

// catalogRepository reads the catalog tables owned by the parts/catalog
// collaborator. Price and stock are read-only to the engine.
type catalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetProductPrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error) {
	query := `
		SELECT id, name, price, is_active
		FROM products
		WHERE id = $1
	`
	var price model.ProductPrice
	err := r.db.GetContext(ctx, &price, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product price: %w", err)
	}
	return &price, nil
}

func (r *catalogRepository) GetService(ctx context.Context, id uuid.UUID) (*model.ServiceRef, error) {
	query := `
		SELECT id, name, is_active
		FROM services
		WHERE id = $1
	`
	var svc model.ServiceRef
	err := r.db.GetContext(ctx, &svc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("service")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &svc, nil
}

func (r *catalogRepository) GetServiceStation(ctx context.Context, id uuid.UUID) (*model.ServiceStationRef, error) {
	query := `
		SELECT id, name, is_active
		FROM service_stations
		WHERE id = $1
	`
	var station model.ServiceStationRef
	err := r.db.GetContext(ctx, &station, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("service station")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service station: %w", err)
	}
	return &station, nil
}

func (r *catalogRepository) GetMaster(ctx context.Context, id uuid.UUID) (*model.MasterRef, error) {
	query := `
		SELECT id, name, role
		FROM users
		WHERE id = $1 AND role = 'MASTER'
	`
	var master model.MasterRef
	err := r.db.GetContext(ctx, &master, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("master")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master: %w", err)
	}
	return &master, nil
}
