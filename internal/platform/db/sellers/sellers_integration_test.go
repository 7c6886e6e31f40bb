//go:build integration

package sellersdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/domain/sellers"
	"github.com/agrolink/geo-discovery-service/internal/errs"
	"github.com/agrolink/geo-discovery-service/internal/platform/db"
)

var (
	testDB      *sqlx.DB
	testDBURL   string
	terminateFn func(context.Context) error
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var err error
	testDB, testDBURL, terminateFn, err = setupDB(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "integration setup failed:", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Close()

	if terminateFn != nil {
		tdCtx, tdCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer tdCancel()
		_ = terminateFn(tdCtx)
	}

	os.Exit(code)
}

func setupDB(ctx context.Context) (*sqlx.DB, string, func(context.Context) error, error) {
	if dsn := os.Getenv("TEST_DB_URL"); dsn != "" {
		dbx, err := db.Open(ctx, db.Config{URL: dsn, PingTimeout: 10 * time.Second})
		if err != nil {
			return nil, "", nil, err
		}
		if err := applyMigrations(dsn); err != nil {
			_ = dbx.Close()
			return nil, "", nil, err
		}
		if err := db.StatusCheck(ctx, dbx); err != nil {
			_ = dbx.Close()
			return nil, "", nil, err
		}

		return dbx, dsn, nil, nil
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "discovery_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(90 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", nil, fmt.Errorf("start container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, "", nil, fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, "", nil, fmt.Errorf("container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/discovery_test?sslmode=disable", host, port.Port())

	dbx, err := db.Open(ctx, db.Config{URL: dsn, PingTimeout: 15 * time.Second})
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, "", nil, err
	}

	if err := db.StatusCheck(ctx, dbx); err != nil {
		_ = dbx.Close()
		_ = c.Terminate(context.Background())
		return nil, "", nil, err
	}

	if err := applyMigrations(dsn); err != nil {
		_ = dbx.Close()
		_ = c.Terminate(context.Background())
		return nil, "", nil, err
	}

	terminateFn := func(ctx context.Context) error {
		return c.Terminate(ctx)
	}
	return dbx, dsn, terminateFn, nil
}

func applyMigrations(dbURL string) error {
	migrationsDir, err := findMigrationsDir()
	if err != nil {
		return err
	}

	srcURL := "file://" + filepath.ToSlash(migrationsDir)

	m, err := migrate.New(srcURL, dbURL)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func findMigrationsDir() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}

	dir := filepath.Dir(thisFile)
	for i := 0; i < 10; i++ {
		candidate := filepath.Join(dir, "..", "..", "..", "..", "migrations")
		candidate = filepath.Clean(candidate)

		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, nil
		}

		dir = filepath.Dir(dir)
	}
	return "", fmt.Errorf("migrations dir not found")
}

func withTx(t *testing.T) (context.Context, *sqlx.Tx) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	tx, err := testDB.BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback() })

	return ctx, tx
}

func seedSeller(t *testing.T, ctx context.Context, tx *sqlx.Tx, name, city string, p *geo.Point) int64 {
	t.Helper()

	var id int64
	var err error
	if p != nil {
		err = tx.GetContext(ctx, &id, `
            INSERT INTO sellers (name, city, location)
            VALUES ($1, $2, ST_MakePoint($3, $4)::geography)
            RETURNING id;
        `, name, city, p.Lon, p.Lat)
	} else {
		err = tx.GetContext(ctx, &id, `
            INSERT INTO sellers (name, city)
            VALUES ($1, $2)
            RETURNING id;
        `, name, city)
	}
	if err != nil {
		t.Fatalf("seed seller %s: %v", name, err)
	}
	return id
}

func seedProduct(t *testing.T, ctx context.Context, tx *sqlx.Tx, sellerID int64, name string, price float64, organic bool) {
	t.Helper()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO products (seller_id, name, price, organic)
        VALUES ($1, $2, $3, $4);
    `, sellerID, name, price, organic); err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
}

var (
	connaught = geo.Point{Lat: 28.6139, Lon: 77.2090}
	rohini    = geo.Point{Lat: 28.7041, Lon: 77.1025}
)

func TestRepository_FindNearby_RadiusAndOrder(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	nearID := seedSeller(t, ctx, tx, "near farm", "Delhi", &rohini)
	seedSeller(t, ctx, tx, "far farm", "Mumbai", &geo.Point{Lat: 19.0760, Lon: 72.8777})
	seedSeller(t, ctx, tx, "no location farm", "Delhi", nil)

	items, err := repo.FindNearby(ctx, connaught, 50, 0)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 seller within 50km, got %d", len(items))
	}
	if items[0].ID != nearID {
		t.Fatalf("expected id=%d, got id=%d", nearID, items[0].ID)
	}
	if items[0].DistanceKm < 13 || items[0].DistanceKm > 16 {
		t.Fatalf("unexpected distance: %v", items[0].DistanceKm)
	}

	items, err = repo.FindNearby(ctx, connaught, 1, 0)
	if err != nil {
		t.Fatalf("FindNearby small radius: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no sellers within 1km, got %d", len(items))
	}
}

func TestRepository_SearchByLocation_CityMatchWithProductCount(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	id := seedSeller(t, ctx, tx, "city farm", "Pune", &connaught)
	seedSeller(t, ctx, tx, "other farm", "Chennai", nil)
	seedProduct(t, ctx, tx, id, "tomato", 20, false)
	seedProduct(t, ctx, tx, id, "spinach", 15, true)

	items, err := repo.SearchByLocation(ctx, "pun", 0)
	if err != nil {
		t.Fatalf("SearchByLocation: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	if items[0].ID != id || items[0].ProductCount != 2 {
		t.Fatalf("unexpected result: %+v", items[0])
	}
}

func TestRepository_PopularCities_TieBreakAlphabetical(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	seedSeller(t, ctx, tx, "a", "Zurich", nil)
	seedSeller(t, ctx, tx, "b", "Agra", nil)
	seedSeller(t, ctx, tx, "c", "Agra", nil)
	seedSeller(t, ctx, tx, "d", "Bhopal", nil)

	items, err := repo.PopularCities(ctx, 10)
	if err != nil {
		t.Fatalf("PopularCities: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 cities, got %d", len(items))
	}
	if items[0].City != "Agra" || items[0].SellerCount != 2 {
		t.Fatalf("expected Agra first: %+v", items)
	}
	if items[1].City != "Bhopal" || items[2].City != "Zurich" {
		t.Fatalf("tie should break alphabetically: %+v", items)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	_, err := repo.GetByID(ctx, 999999)
	if err == nil {
		t.Fatalf("expected error")
	}

	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindNotFound {
		t.Fatalf("expected kind=%s, got %T: %v", errs.KindNotFound, err, err)
	}
}

func TestRepository_Stats(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	id := seedSeller(t, ctx, tx, "stats farm", "Goa", nil)
	seedProduct(t, ctx, tx, id, "mango", 100, true)
	seedProduct(t, ctx, tx, id, "banana", 50, false)

	stats, err := repo.Stats(ctx, id)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ProductCount != 2 || stats.OrganicCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AvgPrice != 75 {
		t.Fatalf("expected avg_price=75, got %v", stats.AvgPrice)
	}
}

func TestRepository_UpdateLocation(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	id := seedSeller(t, ctx, tx, "moving farm", "Delhi", nil)

	updated, err := repo.UpdateLocation(ctx, sellers.UpdateLocation{
		SellerID:   id,
		Coordinate: rohini,
		Address:    "Sector 3",
		City:       "Delhi",
		State:      "DL",
		Country:    "IN",
		PostalCode: "110085",
	})
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if updated.Coordinate == nil {
		t.Fatalf("expected coordinate to be set")
	}
	if diff := updated.Coordinate.Lat - rohini.Lat; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("unexpected lat: %v", updated.Coordinate.Lat)
	}
	if updated.City != "Delhi" || updated.PostalCode != "110085" {
		t.Fatalf("unexpected result: %+v", updated)
	}
}

func TestRepository_UpdateLocation_NotFound(t *testing.T) {
	ctx, tx := withTx(t)
	repo := New(tx)

	_, err := repo.UpdateLocation(ctx, sellers.UpdateLocation{
		SellerID:   999999,
		Coordinate: connaught,
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindNotFound {
		t.Fatalf("expected not_found, got %T: %v", err, err)
	}
}
