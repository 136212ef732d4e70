// File: utils/constants.go
package utils

import "time"

// ConfigCachePrefix is the prefix used for Redis keys caching organization configuration.
const ConfigCachePrefix = "orgcfg:"

// DefaultConfigCacheTTL applies when CONFIG_CACHE_TTL_SECONDS is unset.
const DefaultConfigCacheTTL = 5 * time.Minute

// Roles carried in access tokens.
const (
	RoleCitizen = "citizen"
	RoleAgent   = "agent"
	RoleAdmin   = "admin"
)
