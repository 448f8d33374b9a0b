package gorm

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectToSQLite func - Opens a file backed sqlite database, creating its directory if needed.
// The pool is limited to one connection so writes never race on the file lock.
func ConnectToSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Error(err)
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		logrus.Error(err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	logrus.Info("Connected to sqlite database: ", path)
	return &DB{Conn: db}, nil
}
