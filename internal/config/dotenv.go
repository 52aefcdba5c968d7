package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	StartingSeconds          int
	RoleRevealSeconds        int
	DailyVotingSeconds       int
	TaskDaySeconds           int
	EjectionSeconds          int
	DayEndSeconds            int
	SabotageSeconds          int
	TimeoutWinner            string
	CreateRoomsPerMinute     int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		StartingSeconds:          3,
		RoleRevealSeconds:        5,
		DailyVotingSeconds:       30,
		TaskDaySeconds:           120,
		EjectionSeconds:          5,
		DayEndSeconds:            3,
		SabotageSeconds:          30,
		TimeoutWinner:            "impostors",
		CreateRoomsPerMinute:     6,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	loadInt := func(key string, target *int) {
		if raw := os.Getenv(key); raw != "" {
			if value, err := strconv.Atoi(raw); err == nil && value > 0 {
				*target = value
			}
		}
	}
	loadInt("STARTING_SECONDS", &cfg.StartingSeconds)
	loadInt("ROLE_REVEAL_SECONDS", &cfg.RoleRevealSeconds)
	loadInt("DAILY_VOTING_SECONDS", &cfg.DailyVotingSeconds)
	loadInt("TASK_DAY_SECONDS", &cfg.TaskDaySeconds)
	loadInt("EJECTION_SECONDS", &cfg.EjectionSeconds)
	loadInt("DAY_END_SECONDS", &cfg.DayEndSeconds)
	loadInt("SABOTAGE_SECONDS", &cfg.SabotageSeconds)
	loadInt("CREATE_ROOMS_PER_MINUTE", &cfg.CreateRoomsPerMinute)
	loadInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	loadInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	loadInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	loadInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	if raw := os.Getenv("TIMEOUT_WINNER"); raw == "impostors" || raw == "crewmates" || raw == "draw" {
		cfg.TimeoutWinner = raw
	}
	return cfg
}
