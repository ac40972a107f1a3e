package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	AuthSecret string

	AdminUser     string
	AdminPassHash string // bcrypt
	DevLogin      bool   // username==password learner/instructor login

	CORSOrigins []string

	// Engine policy defaults applied when a package carries no setting of
	// its own. Per-package values from the package store win.
	DefaultGradeMethod    string
	DefaultWhatGrade      string
	DefaultMaxAttempt     int
	DefaultForceCompleted bool

	// LTI AGS grade push (optional; disabled when the token URL is empty).
	AGSEnabled      bool
	AGSTokenURL     string
	AGSClientID     string
	AGSClientSecret string
	AGSScopes       []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	agsTokenURL := os.Getenv("AGS_TOKEN_URL")
	return Config{
		HTTPAddr:  addr,
		PublicURL: os.Getenv("PUBLIC_URL"),
		DBDriver:  envOr("DB_DRIVER", "sqlite"),
		DBDSN:     envOr("DB_DSN", ""),

		AuthSecret: envOr("AUTH_SECRET", "dev-secret-change-me"),

		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		DevLogin:      envBool("DEV_LOGIN", true),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:3010"),

		DefaultGradeMethod:    envOr("GRADE_METHOD", "highest"),
		DefaultWhatGrade:      envOr("WHAT_GRADE", "highest"),
		DefaultMaxAttempt:     envInt("MAX_ATTEMPT", 0),
		DefaultForceCompleted: envBool("FORCE_COMPLETED", false),

		AGSEnabled:      agsTokenURL != "",
		AGSTokenURL:     agsTokenURL,
		AGSClientID:     os.Getenv("AGS_CLIENT_ID"),
		AGSClientSecret: os.Getenv("AGS_CLIENT_SECRET"),
		AGSScopes:       csvOr("AGS_SCOPES", "https://purl.imsglobal.org/spec/lti-ags/scope/score"),
	}
}
func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
