package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	hierarchyModel "sekolahku_backend/internals/features/materials/hierarchy/model"
	progressModel "sekolahku_backend/internals/features/materials/progress/model"
)

var DB *gorm.DB

// DSN merakit connection string dari ENV DB_*.
func DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=sekolahku&options=-c statement_timeout=3000",
		configs.GetEnv("DB_USER"),
		configs.GetEnv("DB_PASSWORD"),
		configs.GetEnv("DB_HOST", "localhost"),
		configs.GetEnv("DB_PORT", "5432"),
		configs.GetEnv("DB_NAME"),
		configs.GetEnv("DB_SSLMODE", "require"),
	)
}

// Open membuka koneksi gorm ke PostgreSQL tanpa menyentuh variabel global.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // cocok untuk PgBouncer (transaction pooling)
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
	})
}

func ConnectDB() {
	log.Println("[INFO] Koneksi ke PostgreSQL...")
	db, err := Open(DSN())
	if err != nil {
		log.Fatalf("[ERROR] Gagal konek DB: %v", err)
	}
	DB = db
	log.Println("[INFO] DB connected.")
}

func TunePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("[ERROR] pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// Models daftar semua tabel yang dikelola repo ini, urut dari parent ke child.
func Models() []any {
	return []any{
		&hierarchyModel.SubjectModel{},
		&hierarchyModel.ProfileModel{},
		&hierarchyModel.MaterialModel{},
		&hierarchyModel.ChapterModel{},
		&hierarchyModel.SubChapterModel{},
		&progressModel.SubChapterProgressModel{},
		&progressModel.MaterialProgressModel{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Println("[INFO] AutoMigrate selesai")
	return nil
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
