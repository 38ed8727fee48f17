package config

import (
	"errors"
	"os"
	"strconv"
)

// Config 汇总进程级运行配置，全部来自环境变量并带默认值。
type Config struct {
	Port string
	Env  string
	// AdminName 是特权身份的展示名，只有它能执行全局封禁。
	AdminName string
	// HistoryLimit 是单房间保留的历史条数上限，0 表示不限。
	HistoryLimit int
	// Announce 控制入房/离房系统通知。
	Announce bool
	// PersistentBans 打开后房间封禁名单在房间销毁后继续生效。
	PersistentBans bool
}

const defaultAdminName = "Geo"

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getenv(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		Port:           getenv("APP_PORT", "8080"),
		Env:            getenv("APP_ENV", "dev"),
		AdminName:      getenv("CHAT_ADMIN_NAME", defaultAdminName),
		HistoryLimit:   getenvInt("CHAT_HISTORY_LIMIT", 500),
		Announce:       getenvBool("CHAT_ANNOUNCE", true),
		PersistentBans: getenvBool("CHAT_PERSISTENT_BANS", false),
	}
}

// Validate 检查配置是否可用于当前环境；特权名在非 dev 环境必须改掉默认值。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port required")
	}
	if cfg.AdminName == "" {
		return errors.New("admin name required")
	}
	if cfg.Env != "dev" && cfg.AdminName == defaultAdminName {
		return errors.New("default admin name not allowed outside dev")
	}
	return nil
}
