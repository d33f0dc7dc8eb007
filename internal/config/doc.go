// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
Package config loads Shopfeed configuration with koanf v2.

Sources are layered, later ones winning:

 1. built-in defaults (defaultConfig)
 2. an optional YAML file: CONFIG_PATH, ./config.yaml, /etc/shopfeed/config.yaml
 3. environment variables

Environment variables come in two forms. Flat names kept for operators
(HTTP_PORT, DUCKDB_PATH, LOG_LEVEL, FEED_MODE, ...) map to fixed paths, and
any nested key can be set with the SHOPFEED_ prefix using a double
underscore as the separator:

	SHOPFEED_RECOMMEND__CLUSTER_COUNT=10
	SHOPFEED_EVENTS__TRANSPORT=nats

Comma-separated values are split for slice fields (CORS_ORIGINS,
TRENDING_ACTIONS). Settings left unset that depend on ENVIRONMENT are
filled next: logging.format becomes json in production and console
otherwise, and security.cors_origins becomes "*" outside production.
Validate then rejects unusable values with the offending key in the
message.

Example config.yaml:

	server:
	  port: 8080
	recommend:
	  cluster_count: 10
	  collaborative_strategy: cluster_popularity
	  feed_mode: blended
	  action_weights:
	    seen: 1.0
	    reorder: 1.5
	    order: 1.2
	    cancel: -2.0
*/
package config
