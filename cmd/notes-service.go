package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/mrshanahan/notes-service/internal/auth"
	"github.com/mrshanahan/notes-service/internal/cache"
	"github.com/mrshanahan/notes-service/internal/middleware"
	"github.com/mrshanahan/notes-service/internal/notes"
	"github.com/mrshanahan/notes-service/internal/store"
	"github.com/mrshanahan/notes-service/internal/utils"
)

var (
	TokenCookieName          string = "id_token"
	PolicyLocalName          string = "policy"
	NotesConfigDirectory     string = path.Join(os.Getenv("HOME"), ".notes")
	DefaultPort              int    = 3333
	DefaultTableName         string = "notes"
	DefaultRedisAddr         string = "localhost:6379"
	DefaultClientID          string = "notes-service"
	DefaultNotesDatabaseName string = "notes.sqlite"
)

// Config is the environment-derived process configuration, read once
// at startup and immutable afterwards.
type Config struct {
	Port        int
	StoreKind   string
	TableName   string
	RedisAddr   string
	DBDir       string
	Region      string
	ProviderURL string
	ClientID    string
	RedirectURL string
	DisableAuth bool
}

func main() {
	exitCode := Run()
	os.Exit(exitCode)
}

func Run() int {
	if len(os.Args) > 1 && utils.Any(os.Args[1:], func(x string) bool { return x == "-h" || x == "--help" || x == "-?" }) {
		printHelp()
		return 0
	}

	config := loadConfig()
	if config.Region != "" {
		slog.Info("deployment region", "region", config.Region)
	}

	noteStore, err := buildStore(config)
	if err != nil {
		slog.Error("failed to initialize store",
			"store", config.StoreKind,
			"err", err)
		return 1
	}
	defer noteStore.Close()

	var authorizer *auth.Authorizer
	var authConfig *auth.Config
	if !config.DisableAuth {
		if config.ProviderURL == "" {
			slog.Error("required value for NOTES_API_AUTH_PROVIDER_URL but none provided")
			return 1
		}
		authConfig, err = auth.BuildAuthConfig(context.Background(), config.ClientID, config.ProviderURL, config.RedirectURL)
		if err != nil {
			slog.Error("failed to initialize auth configuration",
				"providerUrl", config.ProviderURL,
				"err", err)
			return 1
		}
		keys := auth.NewRemoteKeySet(context.Background(), authConfig.JWKSURL)
		authorizer = auth.NewAuthorizer(keys, authConfig.Issuer, config.ClientID)
	} else {
		slog.Warn("disabling authorization framework - THIS SHOULD ONLY BE RUN FOR TESTING!")
	}

	api := notes.NewAPI(noteStore)

	app := fiber.New()
	app.Use(requestid.New(), logger.New(), recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:4444",
	}))
	app.Route("/notes", func(r fiber.Router) {
		if !config.DisableAuth {
			r.Use(middleware.RequireAuthorization(authorizer, PolicyLocalName, TokenCookieName))
		} else {
			slog.Warn("skipping registration of authorization middleware", "disableAuth", config.DisableAuth)
		}
		api.RegisterRoutes(r)
	})
	if !config.DisableAuth {
		registerAuthRoutes(app, config, authConfig, authorizer)
	} else {
		slog.Warn("skipping registration of authentication-related endpoints", "disableAuth", config.DisableAuth)
	}

	slog.Info("listening for requests", "port", config.Port)
	err = app.Listen(fmt.Sprintf(":%d", config.Port))
	if err != nil {
		slog.Error("failed to initialize HTTP server",
			"err", err)
		return 1
	}
	return 0
}

// registerAuthRoutes wires up the browser login flow. The flow needs
// a redirect URL to build a usable authorization code URL; without one
// the endpoints are left unregistered and bearer tokens remain the
// only way in.
func registerAuthRoutes(app *fiber.App, config *Config, authConfig *auth.Config, authorizer *auth.Authorizer) {
	if config.RedirectURL == "" {
		slog.Warn("no value provided for NOTES_API_REDIRECT_URL; login flow endpoints disabled")
		return
	}
	controller := newAuthController(authConfig, authorizer)
	app.Route("/auth", func(r fiber.Router) {
		r.Get("/login", controller.Login)
		r.Get("/logout", controller.Logout)
		r.Get("/callback", controller.AuthCallback)
	})
}

func loadConfig() *Config {
	config := &Config{
		StoreKind:   "sqlite",
		TableName:   DefaultTableName,
		RedisAddr:   DefaultRedisAddr,
		ClientID:    DefaultClientID,
		Region:      os.Getenv("NOTES_API_REGION"),
		ProviderURL: os.Getenv("NOTES_API_AUTH_PROVIDER_URL"),
		RedirectURL: os.Getenv("NOTES_API_REDIRECT_URL"),
		DBDir:       os.Getenv("NOTES_API_DB_DIR"),
	}

	portStr := os.Getenv("NOTES_API_PORT")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = DefaultPort
		slog.Info("no valid port provided via NOTES_API_PORT, using default",
			"portStr", portStr,
			"defaultPort", port)
	} else {
		slog.Info("using custom port",
			"port", port)
	}
	config.Port = port

	if kind := strings.TrimSpace(os.Getenv("NOTES_API_STORE")); kind != "" {
		config.StoreKind = kind
	}
	if table := strings.TrimSpace(os.Getenv("NOTES_API_TABLE_NAME")); table != "" {
		config.TableName = table
	}
	if addr := strings.TrimSpace(os.Getenv("NOTES_API_REDIS_ADDR")); addr != "" {
		config.RedisAddr = addr
	}
	if clientID := strings.TrimSpace(os.Getenv("NOTES_API_AUTH_CLIENT_ID")); clientID != "" {
		config.ClientID = clientID
	}
	if strings.TrimSpace(os.Getenv("NOTES_API_DISABLE_AUTH")) != "" {
		config.DisableAuth = true
	}

	return config
}

func buildStore(config *Config) (store.Store, error) {
	switch config.StoreKind {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("could not connect to redis (%s): %w", config.RedisAddr, err)
		}
		slog.Info("using redis store", "addr", config.RedisAddr, "table", config.TableName)
		return store.NewRedisStore(client, config.TableName), nil
	case "memory":
		slog.Warn("using in-memory store; data will not survive a restart")
		return store.NewMemoryStore(), nil
	case "sqlite":
		dbDir := config.DBDir
		if dbDir == "" {
			dbDir = NotesConfigDirectory
			slog.Info("no path provided for DB; using default", "dir", dbDir)
		} else {
			slog.Info("given DB directory", "dir", dbDir)
		}
		if err := os.MkdirAll(dbDir, 0777); err != nil {
			return nil, fmt.Errorf("failed to create notes DB directory %s: %w", dbDir, err)
		}
		dbPath := path.Join(dbDir, DefaultNotesDatabaseName)
		slog.Info("using sqlite store", "path", dbPath)
		return store.NewSQLiteStore(dbPath)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", config.StoreKind)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `
notes-service [-h|--help|-?]

OPTIONS:
	-h|--help|-?	Display this help message and exit

ENVIRONMENT VARIABLES:
	NOTES_API_AUTH_PROVIDER_URL: (required) Base URL of the identity provider (token issuer)
	NOTES_API_AUTH_CLIENT_ID:    (optional) Client ID / expected token audience (default: %s)
	NOTES_API_REDIRECT_URL:      (optional) OAuth2 callback URL; if unset the login flow endpoints are disabled
	NOTES_API_STORE:             (optional) Backing store: sqlite, redis or memory (default: sqlite)
	NOTES_API_TABLE_NAME:        (optional) Store table name / key prefix (default: %s)
	NOTES_API_DB_DIR:            (optional) Path to directory where notes.sqlite is located (default: %s)
	NOTES_API_REDIS_ADDR:        (optional) Redis address for the redis store (default: %s)
	NOTES_API_REGION:            (optional) Deployment region label, logged at startup
	NOTES_API_PORT:              (optional) Port on which API should be hosted (default: %d)
	NOTES_API_DISABLE_AUTH:      (optional) Disable the authorization framework - TESTING ONLY
`,
		DefaultClientID,
		DefaultTableName,
		NotesConfigDirectory,
		DefaultRedisAddr,
		DefaultPort)
}

// Auth-related controllers

type authController struct {
	config     *auth.Config
	authorizer *auth.Authorizer
	nonces     *cache.TimedCache[string]
}

func newAuthController(config *auth.Config, authorizer *auth.Authorizer) *authController {
	return &authController{
		config:     config,
		authorizer: authorizer,
		nonces:     cache.NewTimedCache[string](5*time.Minute, 100),
	}
}

func (a *authController) createNonce() (string, error) {
	randomBytes := make([]byte, 32)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}
	nonce := base64.StdEncoding.EncodeToString(randomBytes)
	a.nonces.Insert(nonce)
	return nonce, nil
}

func (a *authController) Login(c *fiber.Ctx) error {
	cameFromParam := c.Query("came_from")
	var cameFrom string
	if cameFromParam != "" {
		cameFromBytes, err := base64.URLEncoding.DecodeString(cameFromParam)
		if err == nil {
			cameFrom = string(cameFromBytes)
		}
	}

	state := &auth.State{CameFrom: cameFrom}
	nonce, err := a.createNonce()
	if err != nil {
		return err
	}

	stateParam, err := state.Encode(nonce)
	if err != nil {
		return err
	}
	url := a.config.LoginConfig.AuthCodeURL(stateParam)

	c.Status(fiber.StatusSeeOther)
	c.Redirect(url)
	return c.JSON(url)
}

func (a *authController) Logout(c *fiber.Ctx) error {
	// TODO: Invalidate token(s)
	c.ClearCookie(TokenCookieName)
	return c.SendString("Logout successful")
}

func (a *authController) AuthCallback(c *fiber.Ctx) error {
	stateParam := c.Query("state")
	state, nonce, err := auth.ParseState(stateParam)
	if err != nil {
		c.Status(fiber.StatusUnauthorized)
		return c.SendString(fmt.Sprintf("state is invalid: %s", err))
	}
	if _, ok := a.nonces.GetAndRemove(nonce); !ok {
		c.Status(fiber.StatusUnauthorized)
		return c.SendString("state is invalid: nonce not found in cache")
	}

	code := c.Query("code")
	token, err := a.config.LoginConfig.Exchange(context.Background(), code)
	if err != nil {
		c.Status(fiber.StatusUnauthorized)
		return c.SendString("Code-Token Exchange Failed")
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		c.Status(fiber.StatusUnauthorized)
		return c.SendString("token response did not include an id token")
	}

	policy := a.authorizer.Authorize(c.Context(), idToken, c.Path())
	if !policy.Allowed() {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Cookie(&fiber.Cookie{
		Name:  TokenCookieName,
		Value: idToken,
	})

	if state.CameFrom != "" {
		c.Redirect(state.CameFrom)
	}
	return c.SendString("Login successful")
}
