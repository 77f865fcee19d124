// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus はマイグレーション適用後のスキーマ状態。
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations は未適用のマイグレーションをすべて適用する。
// すでに最新の場合はエラーなしで返る。
func RunMigrations(databaseURL string) error {
	_, err := Migrate(databaseURL, 0)
	return err
}

// Migrate はstepsに応じてマイグレーションを適用し、適用後のバージョンを返す。
// stepsが0なら最新まで適用し、負数なら指定数だけロールバックする。
func Migrate(databaseURL string, steps int) (*MigrationStatus, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &MigrationStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migration version: %w", err)
	}

	return &MigrationStatus{Version: version, Dirty: dirty}, nil
}
