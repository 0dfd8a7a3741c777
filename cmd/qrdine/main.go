package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrdine/qrdine/internal/api"
	"github.com/qrdine/qrdine/internal/db"
	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/pos/square"
	"github.com/qrdine/qrdine/internal/possync"
	"github.com/qrdine/qrdine/internal/store"
	"github.com/qrdine/qrdine/internal/vault"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: qrdine <init|serve>")
		os.Exit(1)
	}

	// .env is optional; real deployments set env vars directly.
	godotenv.Load()

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\nUsage: qrdine <init|serve>\n", os.Args[1])
		os.Exit(1)
	}
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := fs.String("db", "qrdine.sqlite3", "path to SQLite database file")
	name := fs.String("name", "", "restaurant name")
	slug := fs.String("slug", "", "restaurant slug used at login")
	currency := fs.String("currency", "EUR", "ISO 4217 currency code")
	fs.Parse(args)

	if *name == "" || *slug == "" {
		fmt.Fprintln(os.Stderr, "Error: -name and -slug are required")
		os.Exit(1)
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	password, err := initTenant(ctx, database, *name, *slug, *currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database ready: %s\n", *dbPath)
	fmt.Printf("Tenant created: %s (slug: %s)\n", *name, *slug)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: admin\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "qrdine.sqlite3", "path to SQLite database file")
	addr := fs.String("addr", ":8080", "listen address")
	logPath := fs.String("log", "", "log file path (default: stdout/stderr only)")
	fs.Parse(args)

	closeLog, err := setupLogger(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	v, err := vault.FromEnv("QRDINE_VAULT_KEY")
	if err != nil {
		slog.Error("failed to load vault key", "error", err)
		os.Exit(1)
	}

	jwtSecret := os.Getenv("QRDINE_JWT_SECRET")
	if jwtSecret == "" {
		secret, err := generatePassword(32)
		if err != nil {
			slog.Error("failed to generate JWT secret", "error", err)
			os.Exit(1)
		}
		jwtSecret = secret
		slog.Warn("JWT secret auto-generated, tokens will be invalidated on restart")
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "path", *dbPath)

	engine := possync.NewEngine(database, v)
	runner := possync.NewRunner(engine)

	var origins []string
	if raw := os.Getenv("QRDINE_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}

	handler := api.LoggingMiddleware(api.NewRouter(api.Config{
		DB:        database,
		JWTSecret: jwtSecret,
		Vault:     v,
		Runner:    runner,
		SquareOAuth: square.OAuthConfig{
			ClientID:     os.Getenv("SQUARE_CLIENT_ID"),
			ClientSecret: os.Getenv("SQUARE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("SQUARE_REDIRECT_URL"),
		},
		SquareSignatureKey: os.Getenv("SQUARE_WEBHOOK_SIGNATURE_KEY"),
		SquareNotifyURL:    os.Getenv("SQUARE_WEBHOOK_URL"),
		ToastSecret:        os.Getenv("TOAST_WEBHOOK_SECRET"),
		AllowedOrigins:     origins,
	}))

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", *addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// initTenant creates a tenant and its admin user, returning the
// generated admin password.
func initTenant(ctx context.Context, database *sql.DB, name, slug, currency string) (string, error) {
	existing, err := store.GetTenantBySlug(ctx, database, slug)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("tenant %q already exists", slug)
	}

	tenant, err := store.CreateTenant(ctx, database, name, slug, currency)
	if err != nil {
		return "", fmt.Errorf("creating tenant: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, tenant.ID, "admin", string(hash), model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}

	return password, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
