package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
)

type RecordHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewRecordHandler(s store.Store, logger *slog.Logger) *RecordHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordHandler{store: s, logger: logger}
}

func (h *RecordHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/records/:kind", h.Add)
	rg.GET("/records/:kind", h.List)
	rg.GET("/records/:kind/lookup", h.Lookup)
	rg.DELETE("/records/:kind", h.Erase)

	rg.GET("/chapter-files/by-file-id/:id", h.ChapterFileByID)

	rg.GET("/users/:user_id/subscriptions", h.Subscriptions)
	rg.DELETE("/users/:user_id/subscriptions", h.EraseSubscriptions)
}

// Health answers /healthz by pinging the store.
func (h *RecordHandler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("health_check_failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *RecordHandler) Add(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}
	if err := h.store.Add(c.Request.Context(), rec); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *RecordHandler) List(c *gin.Context) {
	kind, err := records.ParseKind(c.Param("kind"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	list, err := h.store.GetAll(c.Request.Context(), kind)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// Lookup takes ?key=<value> for kinds with a natural key, and one query
// parameter per field for subscriptions.
func (h *RecordHandler) Lookup(c *gin.Context) {
	kind, err := records.ParseKind(c.Param("kind"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var key records.Key
	if kind.KeyField() != "" {
		value, ok := c.GetQuery("key")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing key query parameter"})
			return
		}
		key = records.Scalar(value)
	} else {
		filter := records.Filter{}
		for name, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				filter[name] = values[0]
			}
		}
		key = filter
	}

	rec, err := h.store.Get(c.Request.Context(), kind, key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": kind.String() + " not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordHandler) Erase(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}
	if err := h.store.Erase(c.Request.Context(), rec); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecordHandler) ChapterFileByID(c *gin.Context) {
	file, err := h.store.GetChapterFileByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if file == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter file not found"})
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *RecordHandler) Subscriptions(c *gin.Context) {
	names, err := h.store.GetSubs(c.Request.Context(), c.Param("user_id"), c.QueryArray("filter")...)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": names, "total": len(names)})
}

func (h *RecordHandler) EraseSubscriptions(c *gin.Context) {
	n, err := h.store.EraseSubs(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// bindRecord decodes the JSON body into a record of the :kind path param.
// On failure it has already written the response.
func (h *RecordHandler) bindRecord(c *gin.Context) (records.Record, bool) {
	kind, err := records.ParseKind(c.Param("kind"))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	rec, err := kind.New()
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	if err := c.ShouldBindJSON(rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return rec, true
}

func (h *RecordHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, records.ErrUnsupportedType), errors.Is(err, records.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrClosed):
		h.logger.Warn("store_unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("store_request_failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
