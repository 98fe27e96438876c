package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/handlers"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/storage"
)

// storageHandler serves the blobs the service writes: archived snapshots
// and the general rules document.
type storageHandler struct {
	store    storage.System
	rulesKey string
	logger   *slog.Logger
}

func newStorageHandler(store storage.System, rulesKey string, logger *slog.Logger) *storageHandler {
	return &storageHandler{
		store:    store,
		rulesKey: rulesKey,
		logger:   logger.With("handler", "storage"),
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/rules", Handler: h.rules},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
		},
	}
}

func (h *storageHandler) rules(w http.ResponseWriter, r *http.Request) {
	text, err := storage.ReadString(r.Context(), h.store, h.rulesKey)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(key, ".json"):
		contentType = "application/json"
	case strings.HasSuffix(key, ".md"):
		contentType = "text/markdown; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
