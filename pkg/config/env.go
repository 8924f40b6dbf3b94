package config

const (
	EnvPrefix = "TRIPMARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "TRIPMARKET_APP_ENV"
	EnvPort   = "TRIPMARKET_APP_PORT"

	EnvDBDSN  = "TRIPMARKET_DB_DSN"
	EnvDBHost = "TRIPMARKET_DB_HOST"
	EnvDBUser = "TRIPMARKET_DB_USER"
	EnvDBName = "TRIPMARKET_DB_NAME"

	EnvRedisURL = "TRIPMARKET_REDIS_URL"

	EnvJWTSecret  = "TRIPMARKET_JWT_SECRET"
	EnvJWTIssuer  = "TRIPMARKET_JWT_ISSUER"
	EnvJWTExpMins = "TRIPMARKET_JWT_EXPIRATION_MINUTES"

	EnvGatewayBaseURL       = "TRIPMARKET_GATEWAY_BASE_URL"
	EnvGatewayAPIKey        = "TRIPMARKET_GATEWAY_API_KEY"
	EnvGatewayWebhookSecret = "TRIPMARKET_GATEWAY_WEBHOOK_SECRET"
	EnvGatewayCallbackURL   = "TRIPMARKET_GATEWAY_CALLBACK_URL"
	EnvGatewayTimeout       = "TRIPMARKET_GATEWAY_TIMEOUT"

	EnvOrdersPendingTTL       = "TRIPMARKET_ORDERS_PENDING_TTL"
	EnvOrdersSweepRestoreMode = "TRIPMARKET_ORDERS_SWEEP_RESTORE_MODE"
	EnvOrdersRefundWindow     = "TRIPMARKET_ORDERS_REFUND_WINDOW"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
