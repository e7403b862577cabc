// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/rmvbconv/internal/logger"
)

// NewRouter registers the status routes. metrics may be nil.
func NewRouter(handler *Handler, metrics http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), cors.Default())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/skills", handler.Skills)
		v1.POST("/skills/reload", handler.ReloadSkills)
		v1.GET("/qualities", handler.Qualities)

		v1.GET("/tasks", handler.ListTasks)
		v1.GET("/tasks/:id", handler.GetTask)
		v1.DELETE("/tasks/:id", handler.DeleteTask)
		v1.GET("/tasks/:id/state", handler.GetState)
		v1.GET("/tasks/:id/report", handler.GetReport)
	}

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}

// Server serves the status API in the background while conversions run
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger logger.Logger
	done   chan struct{}
}

// Listen binds addr and starts serving
func Listen(addr string, router http.Handler, log logger.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		srv: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:     ln,
		logger: log,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server: %v", err)
		}
	}()

	s.logger.Info("status API listening on %s", ln.Addr())
	return s, nil
}

// Addr is the bound address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server and waits for it to exit
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
