/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

// Configuration keys. Values are read through viper; every accessor in
// config.go carries its own default so a missing key never fails a caller.
const (
	deployMode = "deploy.mode"

	serverPort = "server.port"

	authDisable      = "auth.disable"
	authSSOEnable    = "auth.sso.enable"
	authSSOIssuer    = "auth.sso.issuer"
	authSSOClientId  = "auth.sso.clientId"
	authSSOSecret    = "auth.sso.clientSecret"
	authSSORedirect  = "auth.sso.redirectUrl"
	authServiceToken = "auth.serviceToken"

	dbName                 = "db.name"
	dbUser                 = "db.user"
	dbPassword             = "db.password"
	dbHost                 = "db.host"
	dbPort                 = "db.port"
	dbSslMode              = "db.sslMode"
	dbMaxOpenConns         = "db.maxOpenConns"
	dbMaxIdleConns         = "db.maxIdleConns"
	dbMaxLifetimeSecond    = "db.maxLifetimeSecond"
	dbMaxIdleTimeSecond    = "db.maxIdleTimeSecond"
	dbConnectTimeoutSecond = "db.connectTimeoutSecond"
	dbRequestTimeoutSecond = "db.requestTimeoutSecond"

	schedulerPollIntervalMs = "scheduler.pollIntervalMs"
	retentionCronSpec       = "retention.cronSpec"
)

// DeployModeDevelopment marks a development deployment; the auth bypass is
// only honored in this mode.
const DeployModeDevelopment = "development"
