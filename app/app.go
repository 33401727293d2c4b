package app

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"library-lending/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config Config
}

// Config 从环境变量读取
type Config struct {
	RedisAddr string
	RedisPwd  string
	WebOrigin string

	JWTSecret      string
	AccessTokenTTL time.Duration

	FirstSuperuserEmail    string
	FirstSuperuserPassword string

	RateLimitEnabled bool
}

func MustNew() *App {
	cfg := loadConfig()

	// --- DB: Postgres ---
	dbConn := db.ConnectDB()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)

	return &App{Router: r, DB: dbConn, RDB: rdb, Config: cfg}
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	ttl := 8 * time.Hour
	if sec, err := strconv.Atoi(get("ACCESS_TOKEN_TTL_SECONDS", "")); err == nil && sec > 0 {
		ttl = time.Duration(sec) * time.Second
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	rateLimit := !strings.EqualFold(get("RATE_LIMIT_ENABLED", "true"), "false")

	return Config{
		RedisAddr:              get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:               os.Getenv("REDIS_PASSWORD"),
		WebOrigin:              get("WEB_ORIGIN", "http://localhost:3000"),
		JWTSecret:              secret,
		AccessTokenTTL:         ttl,
		FirstSuperuserEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("FIRST_SUPERUSER"))),
		FirstSuperuserPassword: os.Getenv("FIRST_SUPERUSER_PASSWORD"),
		RateLimitEnabled:       rateLimit,
	}
}
