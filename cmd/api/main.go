package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/app"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/config"
)

// shutdownTimeout ограничивает время на завершение текущих запросов
const shutdownTimeout = 30 * time.Second

func main() {
	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	// Контекст отменяется по Ctrl+C или SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Не удалось создать приложение: %v", err)
	}

	// Подключение к БД (если DB_DRIVER=postgres), хаб комнат и роутинг
	if err := application.Initialize(ctx); err != nil {
		log.Fatalf("Не удалось инициализировать приложение: %v", err)
	}

	// Ошибка запуска (например, занятый порт) завершает процесс
	serverErr := make(chan error, 1)
	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	fmt.Printf("Сервер запущен на порту %s (хранилище: %s)\n", cfg.Server.Port, cfg.Database.Driver)
	fmt.Println("Нажмите Ctrl+C для остановки")

	select {
	case err, ok := <-serverErr:
		if ok {
			log.Printf("Ошибка сервера: %v", err)
		}
	case <-ctx.Done():
		fmt.Println("\nОстановка сервера...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Закрываем живые соединения, HTTP сервер и пул БД
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("Не удалось корректно остановить сервер: %v", err)
		os.Exit(1)
	}

	fmt.Println("Сервер остановлен")
}
