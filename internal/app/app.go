package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/config"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/handler"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/identity"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/middleware"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/realtime"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository/memory"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository/postgres"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/service"
)

// App представляет приложение со всеми зависимостями
type App struct {
	config   *config.Config
	db       *pgxpool.Pool
	server   *http.Server
	handler  http.Handler
	hub      *realtime.Hub
	registry *prometheus.Registry
	logger   *slog.Logger
}

// repositories набор хранилищ, выбранный по DB_DRIVER
type repositories struct {
	users    repository.UserRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
}

// New создает новый экземпляр приложения
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Инициализируем структурированный логгер (JSON формат)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	app := &App{
		config: cfg,
		logger: logger,
	}

	return app, nil
}

// Initialize инициализирует все компоненты приложения
func (a *App) Initialize(ctx context.Context) error {
	if a.config.Database.Driver == config.DriverPostgres {
		// Подключаемся к базе данных
		if err := a.connectDB(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	// Настраиваем HTTP сервер и роутинг
	if err := a.setupServer(); err != nil {
		return fmt.Errorf("failed to set up server: %w", err)
	}

	a.logger.Info("Application initialized successfully", "db_driver", a.config.Database.Driver)
	return nil
}

// connectDB устанавливает подключение к PostgreSQL с connection pool
func (a *App) connectDB(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	// Настраиваем размеры connection pool
	poolConfig.MaxConns = a.config.Database.MaxConns
	poolConfig.MinConns = a.config.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверяем подключение к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.logger.Info("Connected to database")
	return nil
}

// newRepositories создает слой репозиториев под выбранный драйвер
func (a *App) newRepositories() repositories {
	if a.db == nil {
		store := memory.NewStore()
		a.logger.Warn("Using in-memory storage, data is lost on restart")
		return repositories{
			users:    store.Users(),
			projects: store.Projects(),
			tasks:    store.Tasks(),
		}
	}

	timeout := a.config.Database.QueryTimeout
	return repositories{
		users:    postgres.NewUserRepository(a.db, timeout),
		projects: postgres.NewProjectRepository(a.db, timeout),
		tasks:    postgres.NewTaskRepository(a.db, timeout),
	}
}

// setupServer инициализирует HTTP роутер и обработчики
func (a *App) setupServer() error {
	repos := a.newRepositories()

	// Метрики процесса и хаба живых соединений
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Проверка токенов провайдера идентификации
	verifier, err := identity.NewJWTVerifier(identity.Options{
		Secret:   a.config.Identity.Secret,
		Issuer:   a.config.Identity.Issuer,
		Audience: a.config.Identity.Audience,
		Leeway:   a.config.Identity.Leeway,
	})
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	// Хаб проверяет права просмотра через сервис проектов, который
	// создается ниже, т.к. сам получает хаб как Broadcaster
	var projectService *service.ProjectService
	a.hub = realtime.NewHub(
		realtime.AuthorizerFunc(func(ctx context.Context, projectID, userID string) error {
			return projectService.AuthorizeView(ctx, projectID, userID)
		}),
		realtime.NewMetrics(a.registry),
		a.logger,
		realtime.Options{
			SendBuffer: a.config.Realtime.SendBuffer,
			RoomQueue:  a.config.Realtime.RoomQueue,
		},
	)

	// Инициализируем слой сервисов (бизнес-логика)
	resolver := service.NewIdentityResolver(repos.users, a.logger)
	invites := service.NewInviteRegistry(repos.projects, a.config.Invite.MaxAttempts)
	projectService = service.NewProjectService(repos.projects, repos.users, invites, a.hub)
	taskService := service.NewTaskService(repos.tasks, repos.projects, a.hub)

	// Инициализируем HTTP обработчики
	userHandler := handler.NewUserHandler()
	projectHandler := handler.NewProjectHandler(projectService)
	taskHandler := handler.NewTaskHandler(taskService)
	liveHandler := handler.NewLiveHandler(a.hub, handler.LiveOptions{
		WriteWait:      a.config.Realtime.WriteWait,
		PongWait:       a.config.Realtime.PongWait,
		MaxMessageSize: a.config.Realtime.MaxMessageSize,
		JoinTimeout:    a.config.Realtime.JoinTimeout,
		AllowedOrigins: a.config.Realtime.AllowedOrigins,
	}, a.logger)

	// Инициализируем middleware авторизации
	authMiddleware := middleware.AuthMiddleware(verifier, resolver)

	// Настраиваем роутер
	r := chi.NewRouter()

	// Глобальные middleware (применяются ко всем запросам)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Health check для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			a.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	// Защищенные эндпоинты (требуют токен провайдера идентификации)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		// Живое соединение не ограничивается таймаутом запроса
		r.Get("/ws", liveHandler.Serve)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(a.config.Server.RequestTimeout))

			r.Get("/me", userHandler.Me)

			// Эндпоинты проектов
			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.CreateProject)
				r.Get("/", projectHandler.ListProjects)
				r.Post("/join", projectHandler.JoinProject)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", projectHandler.GetProject)
					r.Put("/", projectHandler.UpdateProject)
					r.Delete("/", projectHandler.DeleteProject)
					r.Delete("/members/{memberID}", projectHandler.RemoveMember)

					r.Get("/tasks", taskHandler.ListProjectTasks)
					r.Post("/tasks", taskHandler.CreateTask)
				})
			})

			// Эндпоинты задач
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/assigned", taskHandler.ListAssigned)
				r.Patch("/{taskID}/status", taskHandler.UpdateTaskStatus)
				r.Put("/{taskID}", taskHandler.UpdateTask)
				r.Delete("/{taskID}", taskHandler.DeleteTask)
			})
		})
	})

	a.handler = r

	// Создаем HTTP сервер с настройками таймаутов
	// WriteTimeout не задается: он оборвал бы долгоживущие WebSocket соединения
	addr := fmt.Sprintf("%s:%s", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("HTTP server configured", "addr", addr)
	return nil
}

// Handler возвращает корневой HTTP обработчик (используется в тестах)
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run запускает HTTP сервер
func (a *App) Run() error {
	a.logger.Info("Starting HTTP server", "addr", a.server.Addr)
	return a.server.ListenAndServe()
}

// Shutdown корректно останавливает приложение
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application")

	// Закрываем живые соединения: Server.Shutdown не ждет hijacked соединения
	if a.hub != nil {
		a.hub.Close()
	}

	// Останавливаем HTTP сервер (ждем завершения текущих запросов)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	// Закрываем подключения к базе данных
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}
