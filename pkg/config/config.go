/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetValue sets a configuration value for the specified key.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified file path.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

// GetDeployMode returns the deployment mode (development or production).
func GetDeployMode() string {
	return getString(deployMode, "production")
}

// GetServerPort returns the API server port.
func GetServerPort() int {
	return getInt(serverPort, 8080)
}

// IsAuthDisabled returns whether the development auth bypass is set.
func IsAuthDisabled() bool {
	return getBool(authDisable, false)
}

// IsSSOEnable returns whether SSO token verification is enabled.
func IsSSOEnable() bool {
	return getBool(authSSOEnable, false)
}

// GetSSOIssuer returns the OIDC issuer URL.
func GetSSOIssuer() string {
	return getString(authSSOIssuer, "")
}

// GetSSOClientId returns the OIDC client id.
func GetSSOClientId() string {
	return getString(authSSOClientId, "")
}

// GetSSOClientSecret returns the OIDC client secret.
func GetSSOClientSecret() string {
	return getString(authSSOSecret, "")
}

// GetSSORedirectUrl returns the OIDC redirect URL.
func GetSSORedirectUrl() string {
	return getString(authSSORedirect, "")
}

// GetServiceToken returns the shared token protecting internal routes.
func GetServiceToken() string {
	return getString(authServiceToken, "")
}

// GetDBName returns the database name.
func GetDBName() string {
	return getString(dbName, "")
}

// GetDBUser returns the database user.
func GetDBUser() string {
	return getString(dbUser, "")
}

// GetDBPassword returns the database password.
func GetDBPassword() string {
	return getString(dbPassword, "")
}

// GetDBHost returns the database host.
func GetDBHost() string {
	return getString(dbHost, "")
}

// GetDBPort returns the database port.
func GetDBPort() int {
	return getInt(dbPort, 5432)
}

// GetDBSslMode returns the database SSL mode.
func GetDBSslMode() string {
	return getString(dbSslMode, "disable")
}

// GetDBMaxOpenConns returns the maximum number of open database connections.
func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 50)
}

// GetDBMaxIdleConns returns the maximum number of idle database connections.
func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

// GetDBMaxLifetimeSecond returns the maximum connection lifetime in seconds.
func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetimeSecond, 3600)
}

// GetDBMaxIdleTimeSecond returns the maximum connection idle time in seconds.
func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 600)
}

// GetDBConnectTimeoutSecond returns the database connect timeout in seconds.
func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

// GetDBRequestTimeoutSecond returns the database request timeout in seconds.
func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 30)
}

// GetSchedulerPollIntervalMs returns the scheduled-task poll interval.
func GetSchedulerPollIntervalMs() int {
	return getInt(schedulerPollIntervalMs, 250)
}

// GetRetentionCronSpec returns the cron spec for the retention sweep entry.
func GetRetentionCronSpec() string {
	return getString(retentionCronSpec, "@every 1h")
}

// ValidateStartup rejects configurations that must never reach a
// non-development deployment. Enabling the auth bypass outside development
// is a hard startup error.
func ValidateStartup() error {
	if IsAuthDisabled() && GetDeployMode() != DeployModeDevelopment {
		return fmt.Errorf("auth.disable is set but deploy.mode is %q; the auth bypass is only allowed in development", GetDeployMode())
	}
	if IsSSOEnable() && GetSSOIssuer() == "" {
		return fmt.Errorf("auth.sso.enable is set but auth.sso.issuer is empty")
	}
	return nil
}
