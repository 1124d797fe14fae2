package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coursekit/coursekit/lib/logger"
	"github.com/coursekit/coursekit/lib/notify"
	"github.com/coursekit/coursekit/lib/notify/sqlstore"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("coursekit")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetLogger builds the CLI logger from the configured mode (dev, prod).
func GetLogger() (*logger.Logger, error) {
	return logger.New(viper.GetString("log"))
}

// GetStoreConfig reads the notification store bounds from viper.
func GetStoreConfig() notify.Config {
	return notify.Config{
		MaxBulkSize:    viper.GetInt("max-bulk-size"),
		MaxListSize:    viper.GetInt("max-list-size"),
		ArchiveEnabled: viper.GetBool("archive"),
	}
}

// OpenNotifyStore opens the sqlite-backed notification store at the
// configured database path.
func OpenNotifyStore(log *logger.Logger) (notify.Store, error) {
	db, err := gorm.Open(sqlite.Open(viper.GetString("db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db, GetStoreConfig(), log)
}
