// Package config loads the single JSON configuration document described
// in spec.md §6 into a typed ProgramConfig, validating it against an
// embedded JSON Schema and accepting the camelCase and legacy TitleCase
// spellings listed in aliases before resolving every relative path
// against the directory containing the config file — once, at load time.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchemaFile
}

// ProgramConfig is the fully resolved, typed form of the config document
// in spec.md §6.
type ProgramConfig struct {
	DeviceID          string `json:"Device_id"`
	StartingEntryNo   int32  `json:"Starting_entry_no"`
	TableName         string `json:"Table_name"`
	FlushIntervalSec  float64 `json:"db_flush_interval_sec"`
	HeartbeatInterval float64 `json:"db_heartbeat_interval_sec"`

	LogFilePath      string `json:"log_file_path"`
	StateFile        string `json:"state_file"`
	SpoolFile        string `json:"spool_file"`
	SpoolOffsetFile  string `json:"spool_offset_file"`

	ScannerInputDevice  string            `json:"scanner_input_device"`
	ScannerDeviceFilter string            `json:"scanner_device_filter"`
	ScannerUserMap      map[string]string `json:"scanner_user_map"`

	SQLConnectionString string `json:"sql_connection_string"`
	SQLDriver            string `json:"sql_driver"`
	DBCredFile           string `json:"db_cred_file"`

	VoiceFiles     map[string]string `json:"voice_files"`
	SpeakerEnabled bool              `json:"speaker_enabled"`

	NetworkCheckHost         string  `json:"network_check_host"`
	NetworkCheckIntervalSec  float64 `json:"network_check_interval_sec"`
	NetworkCheckFailThresh   int     `json:"network_check_fail_threshold"`

	MetricsAddr string `json:"metrics_addr"`

	ProcessUser  string `json:"process_user"`
	ProcessGroup string `json:"process_group"`
}

// aliases maps a legacy/alternate spelling to the canonical JSON key used
// by ProgramConfig's struct tags above. Both camelCase and TitleCase
// variants from spec.md §6 are accepted.
var aliases = map[string]string{
	"deviceId":             "Device_id",
	"DeviceId":             "Device_id",
	"startingEntryNo":      "Starting_entry_no",
	"StartingEntryNo":      "Starting_entry_no",
	"tableName":            "Table_name",
	"TableName":            "Table_name",
	"dbSaveInterval":       "db_flush_interval_sec",
	"db_save_interval":     "db_flush_interval_sec",
	"DbFlushIntervalSec":   "db_flush_interval_sec",
	"DbHeartbeatIntervalSec": "db_heartbeat_interval_sec",
	"logFilePath":          "log_file_path",
	"LogFilePath":          "log_file_path",
	"stateFile":            "state_file",
	"StateFile":            "state_file",
	"spoolFile":            "spool_file",
	"SpoolFile":            "spool_file",
	"spoolOffsetFile":      "spool_offset_file",
	"SpoolOffsetFile":      "spool_offset_file",
	"scannerInputDevice":   "scanner_input_device",
	"ScannerInputDevice":   "scanner_input_device",
	"scannerDeviceFilter":  "scanner_device_filter",
	"ScannerDeviceFilter":  "scanner_device_filter",
	"scannerUserMap":       "scanner_user_map",
	"ScannerUserMap":       "scanner_user_map",
	"sqlConnectionString":  "sql_connection_string",
	"SqlConnectionString":  "sql_connection_string",
	"voiceFiles":           "voice_files",
	"VoiceFiles":           "voice_files",
	"speakerEnabled":       "speaker_enabled",
	"SpeakerEnabled":       "speaker_enabled",
	"networkCheckHost":     "network_check_host",
	"NetworkCheckHost":     "network_check_host",
	"networkCheckIntervalSec": "network_check_interval_sec",
	"networkCheckFailThreshold": "network_check_fail_threshold",
}

// Load reads, validates, normalizes and decodes path into a ProgramConfig.
func Load(path string) (*ProgramConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	normalized, err := normalizeAliases(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize config %s: %w", path, err)
	}

	var cfg ProgramConfig
	dec := json.NewDecoder(bytes.NewReader(normalized))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := requireFields(&cfg); err != nil {
		return nil, err
	}

	resolveRelativePaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

func requireFields(cfg *ProgramConfig) error {
	if cfg.DeviceID == "" {
		return fmt.Errorf("config: Device_id is required")
	}
	if cfg.TableName == "" {
		return fmt.Errorf("config: Table_name must not be empty")
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 10
	}
	if cfg.FlushIntervalSec == 0 {
		cfg.FlushIntervalSec = 1
	}
	return nil
}

func resolveRelativePaths(cfg *ProgramConfig, baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	cfg.LogFilePath = resolve(cfg.LogFilePath)
	cfg.StateFile = resolve(cfg.StateFile)
	cfg.SpoolFile = resolve(cfg.SpoolFile)
	cfg.SpoolOffsetFile = resolve(cfg.SpoolOffsetFile)
	cfg.DBCredFile = resolve(cfg.DBCredFile)

	for name, p := range cfg.VoiceFiles {
		cfg.VoiceFiles[name] = resolve(p)
	}
}

// normalizeAliases rewrites any alias key found at the top level of the
// document to its canonical spelling, so the decode in Load sees a
// consistent shape regardless of which spelling the operator used. Keys
// that match no ProgramConfig field are ignored by that decode.
func normalizeAliases(raw []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	canonical := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		key := k
		if c, ok := aliases[k]; ok {
			key = c
		}
		canonical[key] = v
	}

	return json.Marshal(canonical)
}

func validate(raw []byte) error {
	s, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return err
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	return s.Validate(doc)
}

