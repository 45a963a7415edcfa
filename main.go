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

	"github.com/178inaba/attendance-sheet-bot/attendance"
	"github.com/178inaba/attendance-sheet-bot/config"
	"github.com/178inaba/attendance-sheet-bot/handler"
	"github.com/178inaba/attendance-sheet-bot/lock"
	"github.com/178inaba/attendance-sheet-bot/metrics"
	"github.com/178inaba/attendance-sheet-bot/repository"
	"github.com/178inaba/attendance-sheet-bot/sheet"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/slack-go/slack"
	"google.golang.org/api/option"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Load .env: %v.", err)
	}

	cfg, err := config.Load(ctx, newSSMClient)
	if err != nil {
		log.Fatalf("Load config: %v.", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Load location: %v.", err)
	}

	members, err := newMemberFinder(ctx, cfg)
	if err != nil {
		log.Fatalf("New member finder: %v.", err)
	}

	backends := sheet.NewProvider(func(ctx context.Context) (sheet.Backend, error) {
		return newSheetsBackend(ctx, cfg)
	})
	// Credential problems are reported to users per command; only warn here.
	if _, err := backends.Backend(ctx); err != nil {
		log.Printf("Build sheets backend: %v.", err)
	}

	locker, redisClient := newLocker(cfg)

	svc := attendance.NewService(
		members,
		backends,
		locker,
		metrics.New(prometheus.DefaultRegisterer),
		attendance.Config{
			SpreadsheetID:      cfg.SpreadsheetID,
			TemplateSheetID:    cfg.TemplateSheetID,
			Location:           loc,
			ExplicitSheetCheck: cfg.ExplicitSheetCheck,
			Defaults: attendance.Defaults{
				TimeIn:      cfg.DefaultTimeIn,
				TimeOut:     cfg.DefaultTimeOut,
				TimeOutLate: cfg.DefaultTimeOutLate,
			},
		},
	)

	h := handler.NewHandler(
		svc,
		handler.WebhookResponder{},
		slack.New(cfg.SlackToken),
		cfg.SlackSigningSecret,
		cfg.CommandTimeout,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Post("/commands", h.ReceiveCommand)
	r.Post("/events", h.ReceiveEvent)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				log.Printf("Ping redis: %v.", err)
				return
			}
		}
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on port %s.", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("End listen and serve: %v.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown server: %v.", err)
	}
	// Let commands already acknowledged post their replies.
	h.Wait()
}

func newSSMClient(ctx context.Context) (config.ParameterGetter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return ssm.NewFromConfig(awsCfg), nil
}

func newMemberFinder(ctx context.Context, cfg *config.Config) (attendance.MemberFinder, error) {
	if cfg.MemberStore == "mysql" {
		db, err := openSqlxDB(cfg.MySQLUser, cfg.MySQLPassword, cfg.MySQLProtocol, cfg.MySQLAddress, cfg.MySQLDBName)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}

		return repository.NewMemberRepository(db), nil
	}

	bucket, key, ok := repository.ParseS3URL(cfg.MemberCSVPath)
	if !ok {
		return repository.NewMemberCSVRepository(repository.FileSource(cfg.MemberCSVPath)), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return repository.NewMemberCSVRepository(repository.NewS3Source(s3.NewFromConfig(awsCfg), bucket, key)), nil
}

func newSheetsBackend(ctx context.Context, cfg *config.Config) (sheet.Backend, error) {
	if cfg.SheetsBackend == "xlsx" {
		return sheet.NewXLSXBackend(), nil
	}

	var opts []option.ClientOption
	switch {
	case cfg.GoogleCredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GoogleCredentialsJSON)))
	case cfg.GoogleCredentialsFile != "":
		if _, err := os.Stat(cfg.GoogleCredentialsFile); err != nil {
			return nil, fmt.Errorf("stat credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}

	b, err := sheet.NewGoogleBackend(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func newLocker(cfg *config.Config) (lock.Locker, *redis.Client) {
	switch cfg.LockBackend {
	case "none":
		return lock.Nop{}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
		})
		return lock.NewRedis(client, cfg.LockTTL), client
	default:
		return lock.NewLocal(), nil
	}
}

func openSqlxDB(user, passwd, net, addr, dbName string) (*sqlx.DB, error) {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = passwd
	c.Net = net
	c.Addr = addr
	c.DBName = dbName
	c.Collation = "utf8mb4_bin"
	c.ParseTime = true

	db, err := sqlx.Open("mysql", c.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlx: %w", err)
	}

	return db, nil
}
