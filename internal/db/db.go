package db

import (
	"fmt"
	"time"

	"roomchat/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 支持的数据库驱动。
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Connect 负责建立数据库连接，并带有简单的重试来等待容器就绪。
// TranslateError 打开后，唯一约束和外键冲突会变成 gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated。
func Connect(driver, dsn string) (*gorm.DB, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	attempts := 10
	if driver == DriverSQLite {
		attempts = 1
	}
	var gdb *gorm.DB
	for i := 0; i < attempts; i++ {
		gdb, err = gorm.Open(d, &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, err2 := gdb.DB()
			if err2 == nil {
				if driver == DriverSQLite {
					// SQLite 只允许单写者，串行化连接避免 database is locked。
					sqlDB.SetMaxOpenConns(1)
					sqlDB.SetMaxIdleConns(1)
				} else {
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetMaxOpenConns(20)
					sqlDB.SetConnMaxLifetime(time.Hour)
				}
				return gdb, nil
			}
			err = err2
		}
		if i < attempts-1 {
			time.Sleep(time.Duration(500+i*200) * time.Millisecond)
		}
	}
	return nil, err
}

// Migrate 自动迁移全部表结构，messages.room_id 带 ON DELETE CASCADE 外键。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{})
}
