/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	commonconfig "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/config"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/utils"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

var (
	once     sync.Once
	instance *Client
)

// Client is the database client of the control plane. Reads and batch
// deletes go through sqlx + squirrel; transactional read-modify-write
// sections (leases, rate-limit buckets, upserts) go through gorm.
type Client struct {
	db   *sqlx.DB
	gorm *gorm.DB
	*utils.DBConfig
}

// NewClient creates a singleton instance of the database Client.
// It initializes the database configuration from the shared configuration,
// validates the parameters and establishes both connections. The
// initialization happens only once even if called multiple times.
func NewClient() *Client {
	once.Do(func() {
		cfg := &utils.DBConfig{
			DBName:         commonconfig.GetDBName(),
			Username:       commonconfig.GetDBUser(),
			Password:       commonconfig.GetDBPassword(),
			Host:           commonconfig.GetDBHost(),
			Port:           commonconfig.GetDBPort(),
			SSLMode:        commonconfig.GetDBSslMode(),
			MaxOpenConns:   commonconfig.GetDBMaxOpenConns(),
			MaxIdleConns:   commonconfig.GetDBMaxIdleConns(),
			MaxLifetime:    time.Duration(commonconfig.GetDBMaxLifetimeSecond()) * time.Second,
			MaxIdleTime:    time.Duration(commonconfig.GetDBMaxIdleTimeSecond()) * time.Second,
			ConnectTimeout: commonconfig.GetDBConnectTimeoutSecond(),
			RequestTimeout: time.Duration(commonconfig.GetDBRequestTimeoutSecond()) * time.Second,
		}
		if err := checkParams(cfg); err != nil {
			klog.ErrorS(err, "failed to check db params")
			return
		}
		db, err := utils.Connect(cfg, utils.PgDriver)
		if err != nil {
			klog.Errorf("%s", err.Error())
			return
		}
		if err = db.Ping(); err != nil {
			klog.ErrorS(err, "failed to ping db")
			return
		}
		gormDb, err := utils.ConnectGorm(cfg)
		if err != nil {
			klog.ErrorS(err, "failed to connect gorm")
			return
		}
		instance = &Client{db: db, gorm: gormDb, DBConfig: cfg}
		klog.Infof("init db-client successfully! conn-timeout: %d(s), request-timeout: %d(s)",
			cfg.ConnectTimeout, commonconfig.GetDBRequestTimeoutSecond())
	})
	return instance
}

// Close performs the Close operation.
func (c *Client) Close() {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		klog.ErrorS(err, "failed to close db connection")
	}
}

// getDB retrieves the sqlx handle for internal use.
func (c *Client) getDB() (*sqlx.DB, error) {
	if c.db == nil {
		return nil, commonerrors.NewInternalError("the client of db has not been initialized")
	}
	return c.db.Unsafe(), nil
}

// getGorm retrieves the gorm handle for internal use.
func (c *Client) getGorm() (*gorm.DB, error) {
	if c.gorm == nil {
		return nil, commonerrors.NewInternalError("the gorm client of db has not been initialized")
	}
	return c.gorm, nil
}

// checkParams checks Params and returns the result.
func checkParams(cfg *utils.DBConfig) error {
	var errs []error
	if cfg.DBName == "" {
		errs = append(errs, fmt.Errorf("dbname not found"))
	}
	if cfg.Username == "" {
		errs = append(errs, fmt.Errorf("username not found"))
	}
	if cfg.Password == "" {
		errs = append(errs, fmt.Errorf("password not found"))
	}
	if cfg.Host == "" {
		errs = append(errs, fmt.Errorf("host not found"))
	}
	if cfg.SSLMode == "" {
		errs = append(errs, fmt.Errorf("ssl_mode not found"))
	}
	if cfg.Port == 0 {
		errs = append(errs, fmt.Errorf("port not found"))
	}
	return utilerrors.NewAggregate(errs)
}
