package api

import (
	"log/slog"

	"github.com/bdu-chat/campus-chat/internal/auth"
	"github.com/bdu-chat/campus-chat/internal/health"
	"github.com/bdu-chat/campus-chat/internal/settings"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators of the HTTP routes
type Deps struct {
	Chat      Chat
	Settings  SettingsReader
	Faculties Catalog
	Users     auth.UserLookup
	WebSocket gin.HandlerFunc
	// DevSessions enables POST /api/dev/session/:userId
	DevSessions bool
	Logger      *slog.Logger
}

// Register mounts every route on r. The session middleware must already be
// installed on r.
func Register(r *gin.Engine, d Deps) {
	r.GET("/health", gin.WrapF(health.Handler))

	// Public endpoints
	public := r.Group("/api")
	public.GET("/faculties", ListFacultiesHandler(d.Faculties))
	public.GET("/topic-of-day", SettingHandler(d.Settings, settings.KeyTopicOfDay, "topic", d.Logger))
	public.GET("/rules", SettingHandler(d.Settings, settings.KeyRules, "rules", d.Logger))
	public.GET("/about", SettingHandler(d.Settings, settings.KeyAbout, "about", d.Logger))
	if d.DevSessions {
		public.POST("/dev/session/:userId", auth.HandleDevSession(d.Users, d.Logger))
	}

	// Protected endpoints
	protected := r.Group("/api")
	protected.Use(auth.RequireAuth())
	{
		protected.GET("/messages/:faculty", ListRoomHandler(d.Chat, d.Logger))
		protected.GET("/private-messages/:userId", ListDirectHandler(d.Chat, d.Logger))
		protected.POST("/block/:userId", BlockHandler(d.Chat, d.Logger))
		protected.POST("/report/:userId", ReportHandler(d.Chat, d.Logger))
		protected.POST("/logout", auth.HandleLogout(d.Logger))
	}

	if d.WebSocket != nil {
		r.GET("/ws", auth.RequireAuth(), d.WebSocket)
	}
}
