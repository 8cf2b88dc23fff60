package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RoomKV is one row of a room's keyspace.
type RoomKV struct {
	RoomCode string `gorm:"primaryKey;size:6"`
	Key      string `gorm:"primaryKey;size:128;column:entry_key"`
	Value    []byte `gorm:"type:jsonb"`
}

// TableName keeps the table name explicit.
func (RoomKV) TableName() string { return "room_kv" }

// GormStore persists room keyspaces in Postgres so rooms survive process
// restarts, not just actor passivation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the room_kv table.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&RoomKV{}); err != nil {
		return nil, fmt.Errorf("migrate room_kv: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get unmarshals the value at (roomCode, key) into v.
func (s *GormStore) Get(ctx context.Context, roomCode, key string, v any) (bool, error) {
	var row RoomKV
	err := s.db.WithContext(ctx).
		Where("room_code = ? AND entry_key = ?", roomCode, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s/%s: %w", roomCode, key, err)
	}
	if err := json.Unmarshal(row.Value, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", roomCode, key, err)
	}
	return true, nil
}

// Put marshals v and upserts it at (roomCode, key).
func (s *GormStore) Put(ctx context.Context, roomCode, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", roomCode, key, err)
	}
	row := RoomKV{RoomCode: roomCode, Key: key, Value: raw}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_code"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&row).Error
}

// Delete removes (roomCode, key).
func (s *GormStore) Delete(ctx context.Context, roomCode, key string) error {
	return s.db.WithContext(ctx).
		Where("room_code = ? AND entry_key = ?", roomCode, key).
		Delete(&RoomKV{}).Error
}

// List returns raw values for every key under (roomCode, prefix).
func (s *GormStore) List(ctx context.Context, roomCode, prefix string) (map[string][]byte, error) {
	var rows []RoomKV
	q := s.db.WithContext(ctx).Where("room_code = ?", roomCode)
	if prefix != "" {
		q = q.Where("entry_key LIKE ?", escapeLike(prefix)+"%")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s/%s*: %w", roomCode, prefix, err)
	}
	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// DeleteRoom removes the room's entire keyspace.
func (s *GormStore) DeleteRoom(ctx context.Context, roomCode string) error {
	return s.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Delete(&RoomKV{}).Error
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
