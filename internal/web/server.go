// Package web serves the speech panel to browsers over HTTP and a websocket.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"speakpanel/internal/panel"
)

//go:embed static/index.html
var indexHTML []byte

const shutdownTimeout = 5 * time.Second

// Panel is the part of panel.Panel the server drives.
type Panel interface {
	Handle(ctx context.Context, ev panel.Event) error
	State() panel.ViewState
}

// Loop is the panel's execution context. Every Panel call goes through it.
type Loop interface {
	Post(fn func())
	Call(ctx context.Context, fn func()) error
}

type Server struct {
	panel   Panel
	loop    Loop
	hub     *Hub
	router  *gin.Engine
	metrics http.Handler
	log     *logrus.Entry

	// base is the context panel events run under; it outlives any single
	// websocket connection.
	base context.Context
}

// NewServer builds the router. metrics may be nil.
func NewServer(p Panel, loop Loop, hub *Hub, metrics http.Handler) *Server {
	s := &Server{
		panel:   p,
		loop:    loop,
		hub:     hub,
		metrics: metrics,
		log:     logrus.WithField("component", "web"),
		base:    context.Background(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	r.GET("/ws", s.handleSocket)
	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.base = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("panel listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.hub.Len(),
	})
}

func (s *Server) handleSocket(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()
	cl := newClient()
	// Registered first so a client the loop adds after this handler has
	// given up is removed rather than left in the hub.
	defer s.hub.remove(cl)

	// Registering on the loop orders the initial snapshot before any later
	// render.
	added := false
	err = s.loop.Call(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		if added = s.hub.add(cl); added {
			cl.send <- stateMessage(s.panel.State())
		}
	})
	if err != nil || !added {
		return
	}

	go s.writePump(ctx, conn, cl)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.WithError(err).Debug("websocket read ended")
			}
			return
		}

		var ev panel.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.WithError(err).Warn("malformed panel message")
			continue
		}

		s.loop.Post(func() {
			if err := s.panel.Handle(s.base, ev); err != nil {
				s.log.WithError(err).Warn("panel event rejected")
			}
		})
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, cl *client) {
	for b := range cl.send {
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			conn.CloseNow()
			return
		}
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
