package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// dbCred is the shape of the optional db_cred.yaml sidecar file mentioned
// in spec.md §6 as an alternative to an inline sql_connection_string.
type dbCred struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ResolveConnectionString returns cfg.SQLConnectionString if set, else
// loads cfg.DBCredFile and assembles a driver-appropriate DSN from it.
func (cfg *ProgramConfig) ResolveConnectionString() (driver string, dsn string, err error) {
	if cfg.SQLConnectionString != "" {
		driver = cfg.SQLDriver
		if driver == "" {
			driver = "mysql"
		}
		return driver, cfg.SQLConnectionString, nil
	}

	if cfg.DBCredFile == "" {
		return "", "", fmt.Errorf("config: neither sql_connection_string nor db_cred_file is set")
	}

	raw, err := os.ReadFile(cfg.DBCredFile)
	if err != nil {
		return "", "", fmt.Errorf("read db cred file %s: %w", cfg.DBCredFile, err)
	}

	var cred dbCred
	if err := yaml.Unmarshal(raw, &cred); err != nil {
		return "", "", fmt.Errorf("parse db cred file %s: %w", cfg.DBCredFile, err)
	}

	switch cred.Driver {
	case "sqlite3":
		return "sqlite3", cred.Database, nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cred.Host, cred.Port, cred.User, cred.Password, cred.Database)
		return "postgres", dsn, nil
	default: // mysql
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cred.User, cred.Password, cred.Host, cred.Port, cred.Database)
		return "mysql", dsn, nil
	}
}
