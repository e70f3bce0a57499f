package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"conversational-rag/internal/config"
)

type Deps struct {
	Chat          Chatter
	Ingest        Ingester
	Users         UserStore
	Conversations ConversationStore
}

type Server struct {
	app        *fiber.App
	listenAddr string
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	fiberCfg := fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	}
	if cfg.Server.BodyLimitMB > 0 {
		fiberCfg.BodyLimit = cfg.Server.BodyLimitMB * 1024 * 1024
	}

	var (
		app                 = fiber.New(fiberCfg)
		checkHandler        = NewCheckHandler()
		chatHandler         = NewChatHandler(deps.Chat)
		documentHandler     = NewDocumentHandler(deps.Ingest, cfg.RAG.UploadDir)
		userHandler         = NewUserHandler(deps.Users)
		conversationHandler = NewConversationHandler(deps.Conversations)
	)
	app.Use(RequestLogger())

	check := app.Group("/check")
	apiv1 := app.Group("/api/v1")

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Post("/documents", documentHandler.HandleUpload)

	apiv1.Post("/users", userHandler.HandleCreateUser)
	apiv1.Get("/users/:id", userHandler.HandleGetUser)
	apiv1.Put("/users/:id", userHandler.HandleUpdateUser)
	apiv1.Get("/users/:id/conversations", conversationHandler.HandleListForUser)

	apiv1.Post("/conversations", conversationHandler.HandleAppend)
	apiv1.Get("/conversations/:id", conversationHandler.HandleGet)

	return &Server{app: app, listenAddr: cfg.Server.Addr}
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run blocks until the server stops.
func (s *Server) Run() error {
	log.Info().Str("addr", s.listenAddr).Msg("Starting server")
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Server stopped")
	return s.app.ShutdownWithContext(ctx)
}
