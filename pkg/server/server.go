/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server assembles the control plane: configuration, database
// client, durable scheduler with the hourly retention cron, and the HTTP
// API server.
package server

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonconfig "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/config"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/retention"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/scheduler"
)

// Server is the control-plane process: one HTTP server plus the background
// scheduler driving erasure steps and retention sweeps.
type Server struct {
	configPath string
	httpServer *http.Server
	dbClient   *dbclient.Client
	sched      *scheduler.Scheduler
	sweeper    *retention.Sweeper
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

// NewServer creates and initializes a Server instance.
func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{ctx: ctx, cancel: cancel}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// init parses flags, loads and validates configuration, connects the
// database and builds the scheduler with its cron entry.
func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	klog.InitFlags(nil)
	flag.StringVar(&s.configPath, "config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if err := commonconfig.ValidateStartup(); err != nil {
		klog.ErrorS(err, "invalid startup configuration")
		return err
	}
	if s.dbClient = dbclient.NewClient(); s.dbClient == nil {
		return commonerrors.NewInternalError("failed to init db client")
	}

	pollInterval := time.Duration(commonconfig.GetSchedulerPollIntervalMs()) * time.Millisecond
	s.sched = scheduler.NewScheduler(s.dbClient, pollInterval)
	s.sweeper = retention.NewSweeper(s.dbClient, s.sched)
	err := s.sched.AddCron(commonconfig.GetRetentionCronSpec(), func() {
		if err := s.sweeper.Kick(s.ctx, "cron.hourly"); err != nil {
			klog.ErrorS(err, "failed to kick retention sweep")
		}
	})
	if err != nil {
		klog.ErrorS(err, "failed to add retention cron entry")
		return err
	}
	s.isInited = true
	return nil
}

// Start runs the scheduler and the HTTP server until a shutdown signal
// arrives.
func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the server first")
		return
	}
	klog.Infof("starting control-plane server")
	s.sched.Start(s.ctx)

	go func() {
		if err := s.startHttpServer(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http-server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

// Stop gracefully shuts down the HTTP server and the scheduler.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	klog.Info("shutting down http server...")
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			klog.ErrorS(err, "failed to shutdown http server")
		}
	}
	s.sched.Stop()
	if s.dbClient != nil {
		s.dbClient.Close()
	}
	s.cancel()
	klog.Info("control-plane server is stopped")
	klog.Flush()
}

// initConfig loads the configuration file named by the -config flag.
func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.configPath)
	if err != nil {
		return err
	}
	if err = commonconfig.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

// startHttpServer builds the gin engine and listens on the configured port.
func (s *Server) startHttpServer() error {
	if commonconfig.GetServerPort() <= 0 {
		return fmt.Errorf("the server port is not defined")
	}
	handler, err := handlers.InitHttpHandlers(s.dbClient, s.sched)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", commonconfig.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	klog.Infof("http-server listen port: %d", commonconfig.GetServerPort())
	return s.httpServer.ListenAndServe()
}
