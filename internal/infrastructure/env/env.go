package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"kairos/internal/application/port/output"
)

var _ output.ConfigPort = (*EnvService)(nil)

type EnvService struct {
	lookup func(string) (string, bool)
	// Loaded lists the dotenv files that were found and applied.
	Loaded []string
}

// NewEnvService loads .env and then .env.$APP_ENV (default dev) into the
// process environment. Missing files are skipped.
func NewEnvService() *EnvService {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	s := &EnvService{lookup: os.LookupEnv}
	if err := godotenv.Load(".env"); err == nil {
		s.Loaded = append(s.Loaded, ".env")
	}
	envFile := fmt.Sprintf(".env.%s", appEnv)
	if err := godotenv.Overload(envFile); err == nil {
		s.Loaded = append(s.Loaded, envFile)
	}
	return s
}

// FromMap serves values from m only.
func FromMap(m map[string]string) *EnvService {
	return &EnvService{lookup: func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}}
}

func (e *EnvService) Get(key string) string {
	v, _ := e.lookup(key)
	return strings.TrimSpace(v)
}

func (e *EnvService) MustGet(key string) string {
	val := e.Get(key)
	if val == "" {
		panic(fmt.Sprintf("ENV %s is missing", key))
	}
	return val
}

func (e *EnvService) GetWithDefault(key string, defaultValue string) string {
	if val := e.Get(key); val != "" {
		return val
	}
	return defaultValue
}

func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	val := e.Get(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetInt(key string, defaultValue int) int {
	val := e.Get(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
