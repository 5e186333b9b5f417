package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/config"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/identity"
)

// Выпускает токен для локальной разработки, подписанный тем же секретом,
// что проверяет API (IDENTITY_JWT_SECRET)
func main() {
	subject := flag.String("sub", "", "subject пользователя у провайдера идентификации")
	name := flag.String("name", "", "отображаемое имя")
	email := flag.String("email", "", "email пользователя")
	ttl := flag.Duration("ttl", time.Hour, "время жизни токена")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -sub <subject> [-name <name>] [-email <email>] [-ttl 1h]")
		os.Exit(2)
	}

	// Читаем только настройки идентификации, БД здесь не нужна
	var cfg config.IdentityConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	signer, err := identity.NewSigner(identity.Options{
		Secret:   cfg.Secret,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      *ttl,
	})
	if err != nil {
		log.Fatalf("Не удалось создать подписчика токенов: %v", err)
	}

	token, err := signer.Sign(*subject, *name, *email)
	if err != nil {
		log.Fatalf("Не удалось подписать токен: %v", err)
	}

	fmt.Println(token)
}
