// Package api serves the HTTP management API of the settings daemon.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celerix-dev/celerix-settings/internal/engine"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

type Handler struct {
	Store engine.SettingsStore
}

// NewRouter returns a gin engine with the API mounted under /api and
// Prometheus metrics at /metrics.
func NewRouter(h *Handler, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), cors())

	h.Register(r.Group("/api"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

// Register mounts every API route on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/plugins", h.GetPlugins)
	g.GET("/plugins/:plugin/:scope/commands", h.GetCommands)
	g.GET("/plugins/:plugin/:scope/entries", h.GetEntries)
	g.GET("/plugins/:plugin/:scope/entries/:key", h.GetEntry)
	g.POST("/plugins/:plugin/:scope/entries/:key", h.SetEntry)
	g.DELETE("/plugins/:plugin/:scope/entries/:key", h.DeleteEntry)
	g.GET("/plugins/:plugin/modified", h.Modified)
	g.POST("/plugins/:plugin/write", h.Write)
	g.POST("/migrate", h.Migrate)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrPluginNotFound), errors.Is(err, engine.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrVetoed):
		return http.StatusConflict
	case errors.Is(err, settings.ErrInvalidScope):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// scopeParam parses the :scope path parameter, answering 400 when it is invalid.
func scopeParam(c *gin.Context) (settings.Scope, bool) {
	scope, err := settings.ParseScope(c.Param("scope"))
	if err != nil {
		abort(c, err)
		return 0, false
	}
	return scope, true
}

func (h *Handler) GetPlugins(c *gin.Context) {
	plugins, err := h.Store.Plugins()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, plugins)
}

func (h *Handler) GetCommands(c *gin.Context) {
	scope, ok := scopeParam(c)
	if !ok {
		return
	}
	commands, err := h.Store.Commands(c.Param("plugin"), scope)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, commands)
}

func (h *Handler) GetEntries(c *gin.Context) {
	scope, ok := scopeParam(c)
	if !ok {
		return
	}
	entries, err := h.Store.Dump(c.Param("plugin"), scope, c.Query("command"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetEntry(c *gin.Context) {
	scope, ok := scopeParam(c)
	if !ok {
		return
	}
	entry, err := h.Store.Get(c.Param("plugin"), scope, c.Query("command"), c.Param("key"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) SetEntry(c *gin.Context) {
	scope, ok := scopeParam(c)
	if !ok {
		return
	}

	var input struct {
		Value   *string `json:"value" binding:"required"`
		Default bool    `json:"default"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plugin, command, key := c.Param("plugin"), c.Query("command"), c.Param("key")
	var err error
	if input.Default {
		err = h.Store.SetDefault(plugin, scope, command, key, *input.Value)
	} else {
		err = h.Store.Set(plugin, scope, command, key, *input.Value)
	}
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	scope, ok := scopeParam(c)
	if !ok {
		return
	}
	if err := h.Store.Delete(c.Param("plugin"), scope, c.Query("command"), c.Param("key")); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Modified(c *gin.Context) {
	modified, err := h.Store.Modified(c.Param("plugin"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modified": modified})
}

func (h *Handler) Write(c *gin.Context) {
	written, err := h.Store.Write(c.Param("plugin"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": written})
}

func (h *Handler) Migrate(c *gin.Context) {
	var input struct {
		Plugin string `json:"plugin" binding:"required"`
		From   string `json:"from" binding:"required"`
		To     string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from, err := settings.ParseScope(input.From)
	if err != nil {
		abort(c, err)
		return
	}
	to, err := settings.ParseScope(input.To)
	if err != nil {
		abort(c, err)
		return
	}

	copied, err := engine.Migrate(h.Store, h.Store, input.Plugin, from, to)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"copied": copied})
}
