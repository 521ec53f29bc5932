package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/spf13/viper"
)

const (
	ENV_PREFIX = "SYNC_CONNECTOR"

	URL_APP_NAME                   = "URL_App_Name"
	URL_PATH_PREFIX                = "URL_Path_Prefix"
	URL_BASE_PATH                  = "URL_Base_Path"
	OPENAPI_SPEC_FILE_PATH         = "OpenAPI_Spec_File_Path"
	HTTP_SHUTDOWN_TIMEOUT          = "HTTP_Shutdown_Timeout"
	SERVICE_TO_SERVICE_CREDENTIALS = "Service_To_Service_Credentials"
	PROFILE                        = "Enable_Profile"
	ENVIRONMENT                    = "Env"

	PROVIDER                  = "Provider"
	PROVIDER_HTTP_TIMEOUT     = "Provider_Http_Timeout"
	PROVIDER_CA_CERT          = "Provider_CA_Cert"
	STRIPE_API_BASE_URL       = "Stripe_Api_Base_Url"
	STRIPE_API_KEY            = "Stripe_Api_Key"
	STRIPE_WEBHOOK_SECRET     = "Stripe_Webhook_Secret"
	STRIPE_WEBHOOK_TOLERANCE  = "Stripe_Webhook_Tolerance"
	STRIPE_RATE_LIMIT         = "Stripe_Rate_Limit"
	STRIPE_RATE_BURST         = "Stripe_Rate_Burst"
	SHOPIFY_SHOP_DOMAIN       = "Shopify_Shop_Domain"
	SHOPIFY_API_VERSION       = "Shopify_Api_Version"
	SHOPIFY_ACCESS_TOKEN      = "Shopify_Access_Token"
	SHOPIFY_WEBHOOK_SECRET    = "Shopify_Webhook_Secret"
	SHOPIFY_RATE_LIMIT        = "Shopify_Rate_Limit"
	SHOPIFY_RATE_BURST        = "Shopify_Rate_Burst"
	SYNC_INTERVAL             = "Sync_Interval"
	SYNC_DEFAULT_RESOURCES    = "Sync_Default_Resources"
	SYNC_PARENT_FETCH_WORKERS = "Sync_Parent_Fetch_Workers"
	WEBHOOK_REDELIVERY_CACHE  = "Webhook_Redelivery_Cache_Size"
	WEBHOOK_MAX_BODY_BYTES    = "Webhook_Max_Body_Bytes"
	UPSERT_BATCH_SIZE         = "Upsert_Batch_Size"
	UPSERT_MAX_RETRIES        = "Upsert_Max_Retries"
	PAYLOAD_ARCHIVE_BUCKET    = "Payload_Archive_Bucket"
	PAYLOAD_ARCHIVE_REGION    = "Payload_Archive_Region"
	PAYLOAD_ARCHIVE_PREFIX    = "Payload_Archive_Prefix"
	PAYLOAD_ARCHIVE_ENDPOINT  = "Payload_Archive_Endpoint"
	BROKERS                   = "Kafka_Brokers"
	NOTIFICATIONS_TOPIC       = "Kafka_Notifications_Topic"
	NOTIFICATIONS_BATCH_SIZE  = "Kafka_Notifications_Batch_Size"
	NOTIFICATIONS_BATCH_BYTES = "Kafka_Notifications_Batch_Bytes"
	KAFKA_SASL_MECHANISM      = "Kafka_SASL_Mechanism"
	KAFKA_USERNAME            = "Kafka_Username"
	KAFKA_PASSWORD            = "Kafka_Password"
	KAFKA_CA                  = "Kafka_CA"
	DB_IMPL                   = "Connection_Database_Impl"
	DB_HOST                   = "Connection_Database_Host"
	DB_PORT                   = "Connection_Database_Port"
	DB_USER                   = "Connection_Database_User"
	DB_PASSWORD               = "Connection_Database_Password"
	DB_NAME                   = "Connection_Database_Name"
	DB_SSL_MODE               = "Connection_Database_SSL_Mode"
	DB_SSL_ROOT_CERT          = "Connection_Database_SSL_Root_Cert"
	DB_QUERY_TIMEOUT          = "Connection_Database_Query_Timeout"
	DB_MAX_OPEN_CONNECTIONS   = "Connection_Database_Max_Open_Connections"
	DB_MIGRATIONS_PATH        = "Connection_Database_Migrations_Path"
)

type Config struct {
	UrlAppName                  string
	UrlPathPrefix               string
	UrlBasePath                 string
	OpenApiSpecFilePath         string
	HttpShutdownTimeout         time.Duration
	ServiceToServiceCredentials map[string]interface{}
	Profile                     bool
	Environment                 string

	Provider               string
	ProviderHttpTimeout    time.Duration
	ProviderCACert         string
	StripeApiBaseUrl       string
	StripeApiKey           string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	StripeRateLimit        float64
	StripeRateBurst        int
	ShopifyShopDomain      string
	ShopifyApiVersion      string
	ShopifyAccessToken     string
	ShopifyWebhookSecret   string
	ShopifyRateLimit       float64
	ShopifyRateBurst       int

	SyncInterval               time.Duration
	SyncDefaultResources       []string
	SyncParentFetchWorkers     int
	WebhookRedeliveryCacheSize int
	WebhookMaxBodyBytes        int64
	UpsertBatchSize            int
	UpsertMaxRetries           int

	PayloadArchiveBucket   string
	PayloadArchiveRegion   string
	PayloadArchivePrefix   string
	PayloadArchiveEndpoint string

	KafkaBrokers                 []string
	KafkaNotificationsTopic      string
	KafkaNotificationsBatchSize  int
	KafkaNotificationsBatchBytes int
	KafkaSASLMechanism           string
	KafkaUsername                string
	KafkaPassword                string
	KafkaCA                      string

	ConnectionDatabaseImpl               string
	ConnectionDatabaseHost               string
	ConnectionDatabasePort               int
	ConnectionDatabaseUser               string
	ConnectionDatabasePassword           string
	ConnectionDatabaseName               string
	ConnectionDatabaseSslMode            string
	ConnectionDatabaseSslRootCert        string
	ConnectionDatabaseQueryTimeout       time.Duration
	ConnectionDatabaseMaxOpenConnections int
	ConnectionDatabaseMigrationsPath     string
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", URL_PATH_PREFIX, c.UrlPathPrefix)
	fmt.Fprintf(&b, "%s: %s\n", URL_APP_NAME, c.UrlAppName)
	fmt.Fprintf(&b, "%s: %s\n", URL_BASE_PATH, c.UrlBasePath)
	fmt.Fprintf(&b, "%s: %s\n", OPENAPI_SPEC_FILE_PATH, c.OpenApiSpecFilePath)
	fmt.Fprintf(&b, "%s: %s\n", HTTP_SHUTDOWN_TIMEOUT, c.HttpShutdownTimeout)
	fmt.Fprintf(&b, "%s: %t\n", PROFILE, c.Profile)
	fmt.Fprintf(&b, "%s: %s\n", ENVIRONMENT, c.Environment)
	fmt.Fprintf(&b, "%s: %s\n", PROVIDER, c.Provider)
	fmt.Fprintf(&b, "%s: %s\n", PROVIDER_HTTP_TIMEOUT, c.ProviderHttpTimeout)
	fmt.Fprintf(&b, "%s: %s\n", PROVIDER_CA_CERT, c.ProviderCACert)
	fmt.Fprintf(&b, "%s: %s\n", STRIPE_API_BASE_URL, c.StripeApiBaseUrl)
	fmt.Fprintf(&b, "%s: %s\n", STRIPE_WEBHOOK_TOLERANCE, c.StripeWebhookTolerance)
	fmt.Fprintf(&b, "%s: %f\n", STRIPE_RATE_LIMIT, c.StripeRateLimit)
	fmt.Fprintf(&b, "%s: %d\n", STRIPE_RATE_BURST, c.StripeRateBurst)
	fmt.Fprintf(&b, "%s: %s\n", SHOPIFY_SHOP_DOMAIN, c.ShopifyShopDomain)
	fmt.Fprintf(&b, "%s: %s\n", SHOPIFY_API_VERSION, c.ShopifyApiVersion)
	fmt.Fprintf(&b, "%s: %f\n", SHOPIFY_RATE_LIMIT, c.ShopifyRateLimit)
	fmt.Fprintf(&b, "%s: %d\n", SHOPIFY_RATE_BURST, c.ShopifyRateBurst)
	fmt.Fprintf(&b, "%s: %s\n", SYNC_INTERVAL, c.SyncInterval)
	fmt.Fprintf(&b, "%s: %s\n", SYNC_DEFAULT_RESOURCES, c.SyncDefaultResources)
	fmt.Fprintf(&b, "%s: %d\n", SYNC_PARENT_FETCH_WORKERS, c.SyncParentFetchWorkers)
	fmt.Fprintf(&b, "%s: %d\n", WEBHOOK_REDELIVERY_CACHE, c.WebhookRedeliveryCacheSize)
	fmt.Fprintf(&b, "%s: %d\n", WEBHOOK_MAX_BODY_BYTES, c.WebhookMaxBodyBytes)
	fmt.Fprintf(&b, "%s: %d\n", UPSERT_BATCH_SIZE, c.UpsertBatchSize)
	fmt.Fprintf(&b, "%s: %d\n", UPSERT_MAX_RETRIES, c.UpsertMaxRetries)
	fmt.Fprintf(&b, "%s: %s\n", PAYLOAD_ARCHIVE_BUCKET, c.PayloadArchiveBucket)
	fmt.Fprintf(&b, "%s: %s\n", PAYLOAD_ARCHIVE_REGION, c.PayloadArchiveRegion)
	fmt.Fprintf(&b, "%s: %s\n", PAYLOAD_ARCHIVE_PREFIX, c.PayloadArchivePrefix)
	fmt.Fprintf(&b, "%s: %s\n", PAYLOAD_ARCHIVE_ENDPOINT, c.PayloadArchiveEndpoint)
	fmt.Fprintf(&b, "%s: %s\n", BROKERS, c.KafkaBrokers)
	fmt.Fprintf(&b, "%s: %s\n", NOTIFICATIONS_TOPIC, c.KafkaNotificationsTopic)
	fmt.Fprintf(&b, "%s: %d\n", NOTIFICATIONS_BATCH_SIZE, c.KafkaNotificationsBatchSize)
	fmt.Fprintf(&b, "%s: %d\n", NOTIFICATIONS_BATCH_BYTES, c.KafkaNotificationsBatchBytes)
	fmt.Fprintf(&b, "%s: %s\n", KAFKA_SASL_MECHANISM, c.KafkaSASLMechanism)
	fmt.Fprintf(&b, "%s: %s\n", DB_IMPL, c.ConnectionDatabaseImpl)
	fmt.Fprintf(&b, "%s: %s\n", DB_HOST, c.ConnectionDatabaseHost)
	fmt.Fprintf(&b, "%s: %d\n", DB_PORT, c.ConnectionDatabasePort)
	fmt.Fprintf(&b, "%s: %s\n", DB_USER, c.ConnectionDatabaseUser)
	fmt.Fprintf(&b, "%s: %s\n", DB_NAME, c.ConnectionDatabaseName)
	fmt.Fprintf(&b, "%s: %s\n", DB_SSL_MODE, c.ConnectionDatabaseSslMode)
	fmt.Fprintf(&b, "%s: %s\n", DB_QUERY_TIMEOUT, c.ConnectionDatabaseQueryTimeout)
	fmt.Fprintf(&b, "%s: %d\n", DB_MAX_OPEN_CONNECTIONS, c.ConnectionDatabaseMaxOpenConnections)
	fmt.Fprintf(&b, "%s: %s\n", DB_MIGRATIONS_PATH, c.ConnectionDatabaseMigrationsPath)

	return b.String()
}

func GetConfig() *Config {
	if os.Getenv(ENV_PREFIX+"_ENV") != "production" {
		_ = godotenv.Load() // optional .env for local development
	}

	options := viper.New()

	options.SetDefault(URL_PATH_PREFIX, "api")
	options.SetDefault(URL_APP_NAME, "sync-connector")
	options.SetDefault(OPENAPI_SPEC_FILE_PATH, "/opt/app-root/src/api/openapi.json")
	options.SetDefault(HTTP_SHUTDOWN_TIMEOUT, 2)
	options.SetDefault(SERVICE_TO_SERVICE_CREDENTIALS, "")
	options.SetDefault(PROFILE, false)
	options.SetDefault(ENVIRONMENT, "development")

	options.SetDefault(PROVIDER, "stripe")
	options.SetDefault(PROVIDER_HTTP_TIMEOUT, 30)
	options.SetDefault(PROVIDER_CA_CERT, "")
	options.SetDefault(STRIPE_API_BASE_URL, "https://api.stripe.com")
	options.SetDefault(STRIPE_API_KEY, "")
	options.SetDefault(STRIPE_WEBHOOK_SECRET, "")
	options.SetDefault(STRIPE_WEBHOOK_TOLERANCE, 300)
	options.SetDefault(STRIPE_RATE_LIMIT, 25)
	options.SetDefault(STRIPE_RATE_BURST, 25)
	options.SetDefault(SHOPIFY_SHOP_DOMAIN, "")
	options.SetDefault(SHOPIFY_API_VERSION, "2024-07")
	options.SetDefault(SHOPIFY_ACCESS_TOKEN, "")
	options.SetDefault(SHOPIFY_WEBHOOK_SECRET, "")
	options.SetDefault(SHOPIFY_RATE_LIMIT, 2)
	options.SetDefault(SHOPIFY_RATE_BURST, 40)

	options.SetDefault(SYNC_INTERVAL, 0)
	options.SetDefault(SYNC_DEFAULT_RESOURCES, []string{})
	options.SetDefault(SYNC_PARENT_FETCH_WORKERS, 1)
	options.SetDefault(WEBHOOK_REDELIVERY_CACHE, 10000)
	options.SetDefault(WEBHOOK_MAX_BODY_BYTES, 1048576)
	options.SetDefault(UPSERT_BATCH_SIZE, 100)
	options.SetDefault(UPSERT_MAX_RETRIES, 3)

	options.SetDefault(PAYLOAD_ARCHIVE_BUCKET, "")
	options.SetDefault(PAYLOAD_ARCHIVE_REGION, "us-east-1")
	options.SetDefault(PAYLOAD_ARCHIVE_PREFIX, "webhook-payloads")
	options.SetDefault(PAYLOAD_ARCHIVE_ENDPOINT, "")

	options.SetDefault(BROKERS, []string{})
	options.SetDefault(NOTIFICATIONS_TOPIC, "platform.sync-connector.notifications")
	options.SetDefault(NOTIFICATIONS_BATCH_SIZE, 100)
	options.SetDefault(NOTIFICATIONS_BATCH_BYTES, 1048576)
	options.SetDefault(KAFKA_SASL_MECHANISM, "")
	options.SetDefault(KAFKA_USERNAME, "")
	options.SetDefault(KAFKA_PASSWORD, "")
	options.SetDefault(KAFKA_CA, "")

	options.SetDefault(DB_IMPL, "postgres")
	options.SetDefault(DB_HOST, "localhost")
	options.SetDefault(DB_PORT, 5432)
	options.SetDefault(DB_USER, "insights")
	options.SetDefault(DB_PASSWORD, "insights")
	options.SetDefault(DB_NAME, "sync-connector")
	options.SetDefault(DB_SSL_MODE, "disable")
	options.SetDefault(DB_SSL_ROOT_CERT, "db_ssl_root_cert.pem")
	options.SetDefault(DB_QUERY_TIMEOUT, 5)
	options.SetDefault(DB_MAX_OPEN_CONNECTIONS, 10)
	options.SetDefault(DB_MIGRATIONS_PATH, "file://db/migrations")

	if clowder.IsClowderEnabled() {
		cfg := clowder.LoadedConfig

		if cfg.Database != nil {
			options.SetDefault(DB_HOST, cfg.Database.Hostname)
			options.SetDefault(DB_PORT, cfg.Database.Port)
			options.SetDefault(DB_USER, cfg.Database.Username)
			options.SetDefault(DB_PASSWORD, cfg.Database.Password)
			options.SetDefault(DB_NAME, cfg.Database.Name)
		}

		if cfg.Kafka != nil && len(cfg.Kafka.Brokers) > 0 {
			brokers := make([]string, 0, len(cfg.Kafka.Brokers))
			for _, broker := range cfg.Kafka.Brokers {
				if broker.Port != nil {
					brokers = append(brokers, fmt.Sprintf("%s:%d", broker.Hostname, *broker.Port))
				} else {
					brokers = append(brokers, broker.Hostname)
				}
			}
			options.SetDefault(BROKERS, brokers)
		}
	}

	options.SetEnvPrefix(ENV_PREFIX)
	options.AutomaticEnv()

	return &Config{
		UrlPathPrefix:               options.GetString(URL_PATH_PREFIX),
		UrlAppName:                  options.GetString(URL_APP_NAME),
		UrlBasePath:                 buildUrlBasePath(options.GetString(URL_PATH_PREFIX), options.GetString(URL_APP_NAME)),
		OpenApiSpecFilePath:         options.GetString(OPENAPI_SPEC_FILE_PATH),
		HttpShutdownTimeout:         options.GetDuration(HTTP_SHUTDOWN_TIMEOUT) * time.Second,
		ServiceToServiceCredentials: options.GetStringMap(SERVICE_TO_SERVICE_CREDENTIALS),
		Profile:                     options.GetBool(PROFILE),
		Environment:                 options.GetString(ENVIRONMENT),

		Provider:               strings.ToLower(options.GetString(PROVIDER)),
		ProviderHttpTimeout:    options.GetDuration(PROVIDER_HTTP_TIMEOUT) * time.Second,
		ProviderCACert:         options.GetString(PROVIDER_CA_CERT),
		StripeApiBaseUrl:       options.GetString(STRIPE_API_BASE_URL),
		StripeApiKey:           options.GetString(STRIPE_API_KEY),
		StripeWebhookSecret:    options.GetString(STRIPE_WEBHOOK_SECRET),
		StripeWebhookTolerance: options.GetDuration(STRIPE_WEBHOOK_TOLERANCE) * time.Second,
		StripeRateLimit:        options.GetFloat64(STRIPE_RATE_LIMIT),
		StripeRateBurst:        options.GetInt(STRIPE_RATE_BURST),
		ShopifyShopDomain:      options.GetString(SHOPIFY_SHOP_DOMAIN),
		ShopifyApiVersion:      options.GetString(SHOPIFY_API_VERSION),
		ShopifyAccessToken:     options.GetString(SHOPIFY_ACCESS_TOKEN),
		ShopifyWebhookSecret:   options.GetString(SHOPIFY_WEBHOOK_SECRET),
		ShopifyRateLimit:       options.GetFloat64(SHOPIFY_RATE_LIMIT),
		ShopifyRateBurst:       options.GetInt(SHOPIFY_RATE_BURST),

		SyncInterval:               options.GetDuration(SYNC_INTERVAL) * time.Second,
		SyncDefaultResources:       options.GetStringSlice(SYNC_DEFAULT_RESOURCES),
		SyncParentFetchWorkers:     options.GetInt(SYNC_PARENT_FETCH_WORKERS),
		WebhookRedeliveryCacheSize: options.GetInt(WEBHOOK_REDELIVERY_CACHE),
		WebhookMaxBodyBytes:        options.GetInt64(WEBHOOK_MAX_BODY_BYTES),
		UpsertBatchSize:            options.GetInt(UPSERT_BATCH_SIZE),
		UpsertMaxRetries:           options.GetInt(UPSERT_MAX_RETRIES),

		PayloadArchiveBucket:   options.GetString(PAYLOAD_ARCHIVE_BUCKET),
		PayloadArchiveRegion:   options.GetString(PAYLOAD_ARCHIVE_REGION),
		PayloadArchivePrefix:   options.GetString(PAYLOAD_ARCHIVE_PREFIX),
		PayloadArchiveEndpoint: options.GetString(PAYLOAD_ARCHIVE_ENDPOINT),

		KafkaBrokers:                 options.GetStringSlice(BROKERS),
		KafkaNotificationsTopic:      options.GetString(NOTIFICATIONS_TOPIC),
		KafkaNotificationsBatchSize:  options.GetInt(NOTIFICATIONS_BATCH_SIZE),
		KafkaNotificationsBatchBytes: options.GetInt(NOTIFICATIONS_BATCH_BYTES),
		KafkaSASLMechanism:           options.GetString(KAFKA_SASL_MECHANISM),
		KafkaUsername:                options.GetString(KAFKA_USERNAME),
		KafkaPassword:                options.GetString(KAFKA_PASSWORD),
		KafkaCA:                      options.GetString(KAFKA_CA),

		ConnectionDatabaseImpl:               options.GetString(DB_IMPL),
		ConnectionDatabaseHost:               options.GetString(DB_HOST),
		ConnectionDatabasePort:               options.GetInt(DB_PORT),
		ConnectionDatabaseUser:               options.GetString(DB_USER),
		ConnectionDatabasePassword:           options.GetString(DB_PASSWORD),
		ConnectionDatabaseName:               options.GetString(DB_NAME),
		ConnectionDatabaseSslMode:            options.GetString(DB_SSL_MODE),
		ConnectionDatabaseSslRootCert:        options.GetString(DB_SSL_ROOT_CERT),
		ConnectionDatabaseQueryTimeout:       options.GetDuration(DB_QUERY_TIMEOUT) * time.Second,
		ConnectionDatabaseMaxOpenConnections: options.GetInt(DB_MAX_OPEN_CONNECTIONS),
		ConnectionDatabaseMigrationsPath:     options.GetString(DB_MIGRATIONS_PATH),
	}
}

func buildUrlBasePath(pathPrefix string, appName string) string {
	return fmt.Sprintf("/%s/%s/v1", pathPrefix, appName)
}
