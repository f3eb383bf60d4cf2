package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/stock-app/internal/models"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectAndMigrate opens the database and brings the schema up to date.
// With MIGRATIONS=1 the SQL files under ./migrations run via golang-migrate;
// otherwise AutoMigrate keeps the dev loop simple.
func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Print masked DSN once for diagnostics.
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"entreprises", "products", "orders", "order_histories", "order_counters"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (development) via DB_SEED=1|true.
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// AutoMigrate creates or updates the schema from the models. Shared with the
// test fixtures so they migrate exactly what production migrates.
func AutoMigrate(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.Entreprise{}, &models.Product{}, &models.Order{}, &models.OrderHistory{}, &models.OrderCounter{},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func seed(db *gorm.DB) {
	var ent models.Entreprise
	if err := db.Where("name = ?", "Entreprise Démo").First(&ent).Error; err == gorm.ErrRecordNotFound {
		ent = models.Entreprise{Name: "Entreprise Démo"}
		db.Create(&ent)
	}
	baseProducts := []models.Product{
		{EntrepriseID: ent.ID, Name: "Tomates", Category: "légumes", Unit: "kg", PurchasePrice: 1.2, SalePrice: 2.5, Stock: 100, MinStock: 10},
		{EntrepriseID: ent.ID, Name: "Pommes", Category: "fruits", Unit: "kg", PurchasePrice: 1.8, SalePrice: 3.2, Stock: 80, MinStock: 10},
		{EntrepriseID: ent.ID, Name: "Huile d'olive", Category: "épicerie", Unit: "litre", PurchasePrice: 6.5, SalePrice: 9.9, Stock: 40, MinStock: 5},
	}
	for _, p := range baseProducts {
		var existing models.Product
		if err := db.Where("entreprise_id = ? AND name = ?", ent.ID, p.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&p)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
