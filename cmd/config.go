package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/tracker/internal/config"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	return config.DefaultStateDir(), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage tracker configuration.

Running bare 'tracker config' is the same as 'tracker config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# tracker configuration
# See: tracker config show (for effective values and sources)

# State directory: PID file, server log, default data location (default: ~/.config/tracker)
# state_dir: {{ .StateDir }}

# JSON documents (issues, users, files, locales) and uploaded payloads
# data_dir: {{ .DataDir }}
# uploads_dir: {{ .UploadsDir }}

server:
  host: "{{ .ServerHost }}"
  port: {{ .ServerPort }}
  # Largest accepted upload, in megabytes
  max_upload_mb: {{ .MaxUploadMB }}

session:
  # Idle lifetime of a login session
  ttl: {{ .SessionTTL }}
  # Set when served over HTTPS
  secure_cookie: {{ .SecureCookie }}

locale:
  # Used when the browser asks for no available language
  default: "{{ .LocaleDefault }}"

# First-run admin account. Leave the password empty to have one generated.
bootstrap:
  admin_user: "{{ .AdminUser }}"
  admin_password: ""

log:
  # Empty logs to stderr; a path enables rotation
  file: "{{ .LogFile }}"
  format: "{{ .LogFormat }}"
  level: "{{ .LogLevel }}"
`

type configTemplateData struct {
	StateDir      string
	DataDir       string
	UploadsDir    string
	ServerHost    string
	ServerPort    int
	MaxUploadMB   int64
	SessionTTL    string
	SecureCookie  bool
	LocaleDefault string
	AdminUser     string
	LogFile       string
	LogFormat     string
	LogLevel      string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	data := configTemplateData{
		StateDir:      cfg.StateDir,
		DataDir:       cfg.DataDir,
		UploadsDir:    cfg.UploadsDir,
		ServerHost:    cfg.Server.Host,
		ServerPort:    cfg.Server.Port,
		MaxUploadMB:   cfg.Server.MaxUploadMB,
		SessionTTL:    cfg.Session.TTL.String(),
		SecureCookie:  cfg.Session.SecureCookie,
		LocaleDefault: cfg.Locale.Default,
		AdminUser:     cfg.Bootstrap.AdminUser,
		LogFile:       cfg.Log.File,
		LogFormat:     cfg.Log.Format,
		LogLevel:      cfg.Log.Level,
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = keyInfos(
	"state_dir",
	"data_dir",
	"uploads_dir",
	"server.host",
	"server.port",
	"server.max_upload_mb",
	"session.ttl",
	"session.secure_cookie",
	"locale.default",
	"bootstrap.admin_user",
	"bootstrap.admin_password",
	"log.file",
	"log.format",
	"log.level",
)

func keyInfos(keys ...string) []configKeyInfo {
	infos := make([]configKeyInfo, len(keys))
	for i, k := range keys {
		infos[i] = configKeyInfo{
			Key:    k,
			EnvVar: config.EnvPrefix + "_" + strings.ToUpper(config.EnvKeyReplacer().Replace(k)),
		}
	}
	return infos
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "bootstrap.admin_password" && viper.GetString(k.Key) != "" {
			val = "********"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'tracker config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
