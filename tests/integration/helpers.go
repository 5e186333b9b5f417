package integration

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/app"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/config"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/identity"
)

const (
	testDBName     = "taskboard_test"
	testDBUser     = "test_user"
	testDBPassword = "test_password"
	testJWTSecret  = "test-identity-secret-for-integration-tests"
	testIssuer     = "taskboard-integration"
)

// TestEnvironment содержит все ресурсы необходимые для интеграционных тестов
type TestEnvironment struct {
	PostgresContainer *postgres.PostgresContainer
	App               *app.App
	BaseURL           string
	DB                *pgxpool.Pool
	Signer            *identity.Signer
	ctx               context.Context
}

// SetupTestEnvironment поднимает PostgreSQL, применяет схему и запускает приложение.
// Ресурсы освобождаются автоматически по завершении теста
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	// Пул для прямых запросов из тестов, через него же применяется схема
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "Failed to connect to PostgreSQL")
	applyMigrations(t, pool)
	t.Log("Migrations applied")

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := newTestConfig(host, port.Port(), freePort(t))

	application, err := app.New(cfg)
	require.NoError(t, err, "Failed to create application")
	require.NoError(t, application.Initialize(ctx), "Failed to initialize application")

	go func() {
		if err := application.Run(); err != nil && err != http.ErrServerClosed {
			t.Logf("Server error: %v", err)
		}
	}()

	// Токены подписываются тем же секретом, что проверяет приложение
	signer, err := identity.NewSigner(identity.Options{Secret: testJWTSecret, Issuer: testIssuer})
	require.NoError(t, err)

	env := &TestEnvironment{
		PostgresContainer: pgContainer,
		App:               application,
		BaseURL:           fmt.Sprintf("http://%s:%s", cfg.Server.Host, cfg.Server.Port),
		DB:                pool,
		Signer:            signer,
		ctx:               ctx,
	}
	t.Cleanup(env.teardown)
	env.waitHealthy(t)

	return env
}

// newTestConfig собирает конфигурацию приложения для контейнера PostgreSQL
func newTestConfig(dbHost, dbPort, serverPort string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           serverPort,
			RequestTimeout: 30 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:       config.DriverPostgres,
			Host:         dbHost,
			Port:         dbPort,
			User:         testDBUser,
			Password:     testDBPassword,
			Name:         testDBName,
			SSLMode:      "disable",
			MaxConns:     25,
			MinConns:     5,
			QueryTimeout: 5 * time.Second,
		},
		Identity: config.IdentityConfig{
			Secret: testJWTSecret,
			Issuer: testIssuer,
			Leeway: 30 * time.Second,
		},
		Realtime: config.RealtimeConfig{
			SendBuffer:  64,
			RoomQueue:   256,
			WriteWait:   10 * time.Second,
			PongWait:    60 * time.Second,
			JoinTimeout: 5 * time.Second,
		},
		Invite: config.InviteConfig{
			MaxAttempts: 5,
		},
	}
}

// freePort находит свободный локальный порт для HTTP сервера
func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	return fmt.Sprint(l.Addr().(*net.TCPAddr).Port)
}

// teardown освобождает ресурсы окружения в обратном порядке создания
func (te *TestEnvironment) teardown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if te.App != nil {
		_ = te.App.Shutdown(shutdownCtx)
	}
	if te.DB != nil {
		te.DB.Close()
	}
	if te.PostgresContainer != nil {
		_ = te.PostgresContainer.Terminate(te.ctx)
	}
}

// applyMigrations применяет все up-миграции по порядку имен
func applyMigrations(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to locate helpers source")

	files, err := filepath.Glob(filepath.Join(filepath.Dir(file), "..", "..", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "No migrations found")
	sort.Strings(files)

	for _, name := range files {
		schema, err := os.ReadFile(name)
		require.NoError(t, err, "Failed to read %s", filepath.Base(name))

		// Без параметров pgx выполняет несколько выражений одним запросом
		_, err = pool.Exec(context.Background(), string(schema))
		require.NoError(t, err, "Failed to apply %s", filepath.Base(name))
	}
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// MakeRequest выполняет запрос к приложению от имени владельца токена
func (te *TestEnvironment) MakeRequest(t *testing.T, method, path string, body io.Reader, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(te.ctx, method, te.BaseURL+path, body)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err, "%s %s failed", method, path)
	return resp
}

// Token выпускает токен провайдера идентификации для субъекта
func (te *TestEnvironment) Token(t *testing.T, subject string) string {
	t.Helper()

	token, err := te.Signer.Sign(subject, subject, subject+"@example.com")
	require.NoError(t, err, "Failed to sign token")
	return token
}

// Dial открывает живое соединение с токеном в query параметре
func (te *TestEnvironment) Dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(te.BaseURL, "http") + "/ws?access_token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "Failed to open live connection")
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// waitHealthy ждет пока /health начнет отвечать 200
func (te *TestEnvironment) waitHealthy(t *testing.T) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := httpClient.Get(te.BaseURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "Application did not become healthy in time")
}
