package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"floorcurl/internal"
	"floorcurl/internal/config"
	"floorcurl/internal/matches"
	"floorcurl/internal/profiles"
	"floorcurl/internal/settings"
	"floorcurl/internal/shop"
	"floorcurl/internal/stores"
	"floorcurl/internal/wallet"
)

// SessionCookieName is the expected cookie name for session cookies in tests.
// This should match the pattern used in routes.go: cfg.AppName + "_session"
const SessionCookieName = "floorcurl_session"

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with floorcurl's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all floorcurl models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&profiles.Profile{},
		&stores.Store{},
		&settings.Setting{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&matches.Match{},
		&matches.Participant{},
		&shop.Product{},
	}
}

// SetupTestDB creates a test database with all floorcurl models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	if err := settings.SetupDefaultSettings(db); err != nil {
		t.Fatalf("testsupport: failed to seed default settings: %v", err)
	}
	stores.SetupActiveCache(db, GetLogger())

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set FLOORCURL_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	var tables []string
	for _, name := range tableNames {
		if name != "migrations" && name != "schema_migrations" {
			tables = append(tables, name)
		}
	}

	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestStore creates an active store, reusing one with the same name.
func CreateTestStore(t *testing.T, db *gorm.DB, name string) *stores.Store {
	t.Helper()

	var store stores.Store
	if db.Where("name = ?", name).First(&store).Error == nil {
		return &store
	}

	store = stores.Store{Name: name, Active: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&store).Error)
	return &store
}

// CreateTestProfile creates a profile with the given role and store binding.
// The password hash is not valid for login; use CreateTestProfileForAuth when
// the test exercises the login flow.
func CreateTestProfile(t *testing.T, db *gorm.DB, email string, role profiles.Role, storeID *uint) *profiles.Profile {
	t.Helper()

	var profile profiles.Profile
	if db.Where("email = ?", email).First(&profile).Error == nil {
		return &profile
	}

	profile = profiles.Profile{
		PublicID:          uuid.NewString(),
		Email:             email,
		EncryptedPassword: "not-a-real-hash",
		DisplayName:       strings.Split(email, "@")[0],
		Role:              role,
		StoreID:           storeID,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(&profile).Error)
	return &profile
}

// CreateTestProfileForAuth creates a profile with a properly hashed password
// for auth testing
func CreateTestProfileForAuth(t *testing.T, db *gorm.DB, email, password string, role profiles.Role) *profiles.Profile {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	profile := &profiles.Profile{
		PublicID:          uuid.NewString(),
		Email:             email,
		EncryptedPassword: string(hashedPassword),
		DisplayName:       strings.Split(email, "@")[0],
		Role:              role,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreateTestElder creates an elder profile registered at the given store.
func CreateTestElder(t *testing.T, db *gorm.DB, email string, storeID uint) *profiles.Profile {
	t.Helper()
	return CreateTestProfile(t, db, email, profiles.RoleElder, &storeID)
}

// CreateTestProduct creates an active product for the given store
// (nil = program-wide).
func CreateTestProduct(t *testing.T, db *gorm.DB, name string, pricePoints, stock int, storeID *uint) *shop.Product {
	t.Helper()

	product := &shop.Product{
		Name:        name,
		PricePoints: pricePoints,
		Stock:       stock,
		StoreID:     storeID,
		Active:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}

// NewBrowserRequest builds a request carrying the headers a browser sends.
// CSRF protection validates the Sec-Fetch-Site header on state-changing
// methods, so every test request that writes must go through here.
func NewBrowserRequest(method, path string, body io.Reader) *nethttp.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	return req
}

// LoginTestUser logs in through the real login route and returns the session
// cookie value for subsequent requests.
func LoginTestUser(t *testing.T, app *fiber.App, email, password, expectedHome string) string {
	t.Helper()

	loginData := url.Values{}
	loginData.Add("email", email)
	loginData.Add("password", password)

	req := NewBrowserRequest("POST", "/login", strings.NewReader(loginData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, expectedHome, resp.Header.Get("Location"))

	var sessionValue string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			sessionValue = cookie.Value
			break
		}
	}
	require.NotEmpty(t, sessionValue)

	return sessionValue
}
