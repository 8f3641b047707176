// Package server exposes the HTTP API handlers: token retrieval, network
// discovery, file upload/download/listing, and the WebSocket upgrade.
package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lanshare/lanshare/internal/store"
	"github.com/lanshare/lanshare/internal/token"
)

// API bundles the shared state every request handler needs: the token
// authority, the file store, and the session hub.
type API struct {
	cfg      Config
	auth     *token.Authority
	files    *store.FileStore
	hub      *Hub
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewAPI wires the handlers to their collaborators. A nil logger falls back
// to a nop logger.
func NewAPI(cfg Config, auth *token.Authority, files *store.FileStore, hub *Hub, log *zap.SugaredLogger) *API {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	oc := newOriginChecker(cfg.AllowedOrigins, log)
	return &API{
		cfg:   cfg,
		auth:  auth,
		files: files,
		hub:   hub,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     oc.check,
		},
	}
}

// Token hands out the process auth token, but only to loopback callers. This
// is how the QR pairing flow works: the local browser fetches the token and
// embeds it in the URL a phone scans.
func (a *API) Token(c *gin.Context) {
	if !a.auth.IsLoopback(c.ClientIP()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": a.auth.Token()})
}

// Network lists every non-internal IPv4 address bound to the host so the UI
// can offer candidate URLs for peers on the LAN.
func (a *API) Network(c *gin.Context) {
	addresses := make([]string, 0, 4)

	ifaces, err := net.Interfaces()
	if err != nil {
		a.log.Warnw("listing network interfaces failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
		return
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				addresses = append(addresses, ip4.String())
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// HostIP reports the operator-configured host address, if any.
func (a *API) HostIP(c *gin.Context) {
	if a.cfg.HostIP != "" {
		c.JSON(http.StatusOK, gin.H{"ip": a.cfg.HostIP})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ip":      "",
		"message": "Enter your computer's IP address manually.",
	})
}

// Upload accepts a multipart form with a token field and one or more file
// parts under "files" (or a single legacy "file" part). Each part is stored
// and announced to authenticated sessions in submission order. The first
// storage failure aborts the request with 500; parts stored before the
// failure remain stored.
func (a *API) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid files or token"})
		return
	}

	candidate := ""
	if vals := form.Value["token"]; len(vals) > 0 {
		candidate = vals[0]
	}

	parts := form.File["files"]
	if len(parts) == 0 {
		parts = form.File["file"]
	}

	if len(parts) == 0 || !a.auth.Validate(candidate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid files or token"})
		return
	}

	for _, part := range parts {
		if part.Size > a.cfg.MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file %q exceeds the %d byte limit", part.Filename, a.cfg.MaxUploadBytes),
			})
			return
		}
	}

	uploaded := make([]UploadedFileSummary, 0, len(parts))
	for _, part := range parts {
		f, err := a.storePart(part)
		if err != nil {
			a.log.Errorw("storing upload failed", "filename", part.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}

		uploaded = append(uploaded, NewUploadedFileSummary(f))
		a.hub.Broadcast(fileUploadedPayload(f))
		a.log.Infow("file stored", "id", f.ID, "filename", f.Filename, "size", f.Size)
	}

	c.JSON(http.StatusOK, gin.H{"files": uploaded})
}

func (a *API) storePart(part *multipart.FileHeader) (store.StoredFile, error) {
	src, err := part.Open()
	if err != nil {
		return store.StoredFile{}, fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return store.StoredFile{}, fmt.Errorf("read part: %w", err)
	}

	return a.files.Put(part.Filename, data)
}

// Download streams a stored blob back with its original filename as the
// attachment name.
func (a *API) Download(c *gin.Context) {
	f, err := a.files.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	c.File(f.Path)
}

// List returns every stored file in upload order.
func (a *API) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"files": a.files.List()})
}

// WebSocket upgrades the request and hands the connection to the hub. A
// connection from a trusted origin (loopback, or a configured prefix such as
// the Docker bridge) is authenticated immediately and receives the file
// history; everyone else must send an auth message with the token.
func (a *API) WebSocket(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, a.hub, c.Request.RemoteAddr, a.auth, a.files, a.cfg)
	a.hub.StartClient(client)

	if a.auth.IsTrustedOrigin(c.Request.RemoteAddr) {
		a.log.Infow("client auto-authenticated", "client", client.id, "addr", client.addr)
		client.grantAuth()
	}
}
