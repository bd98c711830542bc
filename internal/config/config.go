package config

import "github.com/spf13/viper"

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Quota struct {
		DefaultPlanCode   string `mapstructure:"default_plan_code"`
		DefaultDailyLimit int    `mapstructure:"default_daily_limit"`
	} `mapstructure:"quota"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// Переопределение через ENV (APP_*)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("quota.default_plan_code", "free")
	v.SetDefault("quota.default_daily_limit", 10)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
