package configs

import "os"

var Envs = struct {
	POSTGRES_URL    string
	ORACLE_API_KEY  string
	ORACLE_MODEL    string
	GATEWAY_WS_URL  string
	FRONTEND_ORIGIN string
	GIN_MODE        string
	LOG_DEBUG       string
}{
	POSTGRES_URL:    os.Getenv("POSTGRES_URL"),
	ORACLE_API_KEY:  os.Getenv("ORACLE_API_KEY"),
	ORACLE_MODEL:    os.Getenv("ORACLE_MODEL"),
	GATEWAY_WS_URL:  os.Getenv("GATEWAY_WS_URL"),
	FRONTEND_ORIGIN: os.Getenv("FRONTEND_ORIGIN"),
	GIN_MODE:        os.Getenv("GIN_MODE"),
	LOG_DEBUG:       os.Getenv("LOG_DEBUG"),
}
