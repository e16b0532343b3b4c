package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vogiaan1904/ticketbottle-gateway/config"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

// Open connects to the configured database. sqlite databases are migrated on
// open since nothing else owns their schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Driver == "sqlite" {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &ServerMember{}, &MusicConfig{})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type Store struct {
	db *gorm.DB
	l  logger.Logger
}

func New(db *gorm.DB, l logger.Logger) *Store {
	return &Store{db: db, l: l}
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UserProfile{}, ErrNotFound
		}
		s.l.Errorf(ctx, "store.GetUserProfile: %v", err)
		return models.UserProfile{}, err
	}
	return u.toProfile(), nil
}

func (s *Store) GetServerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&ServerMember{}).
		Where("user_id = ?", userID).
		Order("server_id").
		Pluck("server_id", &ids).Error; err != nil {
		s.l.Errorf(ctx, "store.GetServerIDs: %v", err)
		return nil, err
	}
	return ids, nil
}

func (s *Store) GetMusicConfig(ctx context.Context, serverID string) (models.MusicConfig, error) {
	var m MusicConfig
	if err := s.db.WithContext(ctx).Where("server_id = ?", serverID).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MusicConfig{}, ErrNotFound
		}
		s.l.Errorf(ctx, "store.GetMusicConfig: %v", err)
		return models.MusicConfig{}, err
	}
	return m.toModel(), nil
}

func (s *Store) UpdateMusicConfig(ctx context.Context, cfg models.MusicConfig) error {
	row := fromMusicConfig(cfg)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "allowed_platforms", "max_queue_size", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		s.l.Errorf(ctx, "store.UpdateMusicConfig: %v", err)
		return err
	}
	return nil
}
