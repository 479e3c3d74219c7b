package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultMongoDBName          = "courses_db"
	defaultMongoCollectionName  = "courses"
	defaultDownloadPath         = "./downloads"
	defaultMaxParsablePages     = 10
	defaultMaxSavedResults      = 20
	defaultPreferredFileLength  = "4-100"
	defaultMinFileLength        = 1
	defaultMaxFileLength        = 400
	defaultDownloadTimeout      = 5 * time.Minute
	defaultDownloadPollInterval = 5 * time.Second
	defaultClickTimeout         = 10 * time.Second
	defaultKVDBPath             = "./.coursefetch/ledger.db"
	defaultIndexPath            = "index.bleve"
	defaultStoragePath          = "./.coursefetch"
	defaultPort                 = "8080"
	defaultMinioBucket          = "course-pdfs"
	defaultLogLevel             = "INFO"
	defaultSearchBaseURL        = "https://www.scribd.com/search/query"
)

var defaultLangs = []string{"5"}
var defaultFileTypes = []string{"pdf"}

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func (c *Config) GetMongoURI() string {
	return c.getString("MONGODB_URI", "mongodb.uri", "")
}

func (c *Config) GetMongoDBName() string {
	return c.getString("MONGODB_DB_NAME", "mongodb.db_name", defaultMongoDBName)
}

func (c *Config) GetMongoCollectionName() string {
	return c.getString("MONGODB_COLLECTION_NAME", "mongodb.collection_name", defaultMongoCollectionName)
}

func (c *Config) GetDownloadPath() string {
	return c.getString("DOWNLOAD_PATH", "scrape.download_path", defaultDownloadPath)
}

func (c *Config) GetSearchTerm() string {
	return c.getString("SCRIBD_SEARCH_TERM", "scribd.search_term", "")
}

func (c *Config) GetSearchBaseURL() string {
	return c.getString("SCRIBD_API_BASE_URL", "scribd.api_base_url", defaultSearchBaseURL)
}

func (c *Config) GetMaxParsablePages() int {
	return c.getInt("SCRIBD_MAX_PARSABLE_PAGES", "scribd.max_parsable_pages", defaultMaxParsablePages)
}

func (c *Config) GetMaxSavedResults() int {
	return c.getInt("SCRIBD_MAX_SAVED_RESULTS", "scribd.max_saved_results", defaultMaxSavedResults)
}

func (c *Config) GetLangs() []string {
	return c.getList("SCRIBD_LANGS", "scribd.langs", defaultLangs)
}

func (c *Config) GetFileTypes() []string {
	return c.getList("SCRIBD_FILE_TYPES", "scribd.file_types", defaultFileTypes)
}

func (c *Config) GetPreferredFileLength() string {
	return c.getString("SCRIBD_PREFERRED_FILE_LENGTH", "scribd.preferred_file_length", defaultPreferredFileLength)
}

func (c *Config) GetMinFileLength() int {
	return c.getInt("SCRIBD_MIN_FILE_LENGTH", "scribd.min_file_length", defaultMinFileLength)
}

func (c *Config) GetMaxFileLength() int {
	return c.getInt("SCRIBD_MAX_FILE_LENGTH", "scribd.max_file_length", defaultMaxFileLength)
}

// GetCourseTags returns the tags stamped on every persisted document.
// An empty list means the search term is used as the only tag.
func (c *Config) GetCourseTags() []string {
	return c.getList("COURSE_TAGS", "scrape.tags", nil)
}

func (c *Config) GetExtractImages() bool {
	if c.config.IsSet("EXTRACT_IMAGES") {
		return c.config.GetBool("EXTRACT_IMAGES")
	}
	return c.config.GetBool("scrape.extract_images")
}

func (c *Config) GetDownloadTimeout() time.Duration {
	return c.getDuration("DOWNLOAD_TIMEOUT", "browser.download_timeout", defaultDownloadTimeout)
}

func (c *Config) GetDownloadPollInterval() time.Duration {
	return c.getDuration("DOWNLOAD_POLL_INTERVAL", "browser.poll_interval", defaultDownloadPollInterval)
}

func (c *Config) GetClickTimeout() time.Duration {
	return c.getDuration("CLICK_TIMEOUT", "browser.click_timeout", defaultClickTimeout)
}

func (c *Config) GetBrowserHeadless() bool {
	if c.config.IsSet("BROWSER_HEADLESS") {
		return c.config.GetBool("BROWSER_HEADLESS")
	}
	if c.config.IsSet("browser.headless") {
		return c.config.GetBool("browser.headless")
	}
	return true
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port", defaultPort)
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path", defaultKVDBPath)
}

func (c *Config) GetIndexPath() string {
	return c.getString("INDEX_PATH", "database.index_path", defaultIndexPath)
}

func (c *Config) GetStoragePath() string {
	return c.getString("STORAGE_PATH", "database.storage_path", defaultStoragePath)
}

func (c *Config) GetMinioEndpoint() string {
	return c.getString("MINIO_ENDPOINT", "minio.endpoint", "")
}

func (c *Config) GetMinioAccessKey() string {
	return c.getString("MINIO_ACCESS_KEY", "minio.access_key", "")
}

func (c *Config) GetMinioSecretKey() string {
	return c.getString("MINIO_SECRET_KEY", "minio.secret_key", "")
}

func (c *Config) GetMinioBucket() string {
	return c.getString("MINIO_BUCKET", "minio.bucket", defaultMinioBucket)
}

func (c *Config) GetMinioUseSSL() bool {
	if c.config.IsSet("MINIO_USE_SSL") {
		return c.config.GetBool("MINIO_USE_SSL")
	}
	return c.config.GetBool("minio.use_ssl")
}

func (c *Config) GetLogLevel() slog.Level {
	return parseLogLevel(c.getString("LOG_LEVEL", "log.level", defaultLogLevel))
}

func (c *Config) GetLogFile() string {
	return c.getString("LOG_FILE", "log.file", "")
}

// Set overrides a value for the lifetime of this Config, e.g. from a command line flag.
func (c *Config) Set(key string, value any) {
	c.config.Set(key, value)
}

func (c *Config) getString(envKey string, fileKey string, defaultValue string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}
	if len(value) == 0 {
		value = defaultValue
	}

	return value
}

func (c *Config) getInt(envKey string, fileKey string, defaultValue int) int {
	if c.config.IsSet(envKey) {
		return c.config.GetInt(envKey)
	}
	if c.config.IsSet(fileKey) {
		return c.config.GetInt(fileKey)
	}
	return defaultValue
}

func (c *Config) getDuration(envKey string, fileKey string, defaultValue time.Duration) time.Duration {
	if c.config.IsSet(envKey) {
		return c.config.GetDuration(envKey)
	}
	if c.config.IsSet(fileKey) {
		return c.config.GetDuration(fileKey)
	}
	return defaultValue
}

// Lists come from env vars as comma separated values and from yaml as sequences.
func (c *Config) getList(envKey string, fileKey string, defaultValue []string) []string {
	if raw := c.config.GetString(envKey); len(raw) > 0 {
		return splitList(raw)
	}
	if values := c.config.GetStringSlice(fileKey); len(values) > 0 {
		return values
	}
	return defaultValue
}

func splitList(raw string) []string {
	var values []string
	for _, value := range strings.Split(raw, ",") {
		if value = strings.TrimSpace(value); len(value) > 0 {
			values = append(values, value)
		}
	}
	return values
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
