package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// GormPort implements Port on a gorm connection
type GormPort struct {
	db *gorm.DB
}

// NewGormPort creates a port over db
func NewGormPort(db *gorm.DB) *GormPort {
	return &GormPort{db: db}
}

// OpenPostgres opens the database once with lib/pq and hands the same pool to gorm,
// so migrations and queries share connections.
func OpenPostgres(databaseURL string) (*sql.DB, *gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("open gorm: %w", err)
	}
	return sqlDB, db, nil
}

func (p *GormPort) Insert(ctx context.Context, e Entity) error {
	if err := p.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert %s %s: %w", e.TableName(), e.GetID(), err)
	}
	return nil
}

func (p *GormPort) Update(ctx context.Context, e Entity, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	res := p.db.WithContext(ctx).Model(e).Select(fields).Updates(e)
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", e.TableName(), e.GetID(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s %s: %w", e.TableName(), e.GetID(), ErrNotFound)
	}
	return nil
}

func (p *GormPort) Delete(ctx context.Context, e Entity) error {
	res := p.db.WithContext(ctx).Delete(e)
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", e.TableName(), e.GetID(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s %s: %w", e.TableName(), e.GetID(), ErrNotFound)
	}
	return nil
}

func (p *GormPort) GetAll(ctx context.Context, dest any) error {
	if err := p.db.WithContext(ctx).Find(dest).Error; err != nil {
		return fmt.Errorf("get all: %w", err)
	}
	return nil
}

// RunAtomic runs work inside one database transaction
func (p *GormPort) RunAtomic(ctx context.Context, work func(tx Port) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return work(&GormPort{db: tx})
	})
}
