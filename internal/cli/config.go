package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/nyo16/nous-sub006/internal/tools/coretools"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Config is blockedit's configuration. Sources, lowest precedence first: defaults, ~/.blockedit/config.yaml, the nearest .blockedit/config.yaml
// above the working directory, BLOCKEDIT_* environment variables (BLOCKEDIT_JOURNAL_PATH for journal.path), and flags.
type Config struct {
	// Color is "auto", "always" or "never". auto colors output written to a terminal unless NO_COLOR is set.
	Color     string        `mapstructure:"color" json:"color"`
	Highlight bool          `mapstructure:"highlight" json:"highlight"`
	Markers   MarkersConfig `mapstructure:"markers" json:"markers"`
	Journal   JournalConfig `mapstructure:"journal" json:"journal"`
	Log       LogConfig     `mapstructure:"log" json:"log"`
	Tool      ToolConfig    `mapstructure:"tool" json:"tool"`
	Watch     WatchConfig   `mapstructure:"watch" json:"watch"`

	// Files are the config files that were read, lowest precedence first.
	Files []string `mapstructure:"-" json:"files,omitempty"`
}

type MarkersConfig struct {
	Deleted string `mapstructure:"deleted" json:"deleted"`
	Added   string `mapstructure:"added" json:"added"`
}

type JournalConfig struct {
	Path     string `mapstructure:"path" json:"path"`
	Disabled bool   `mapstructure:"disabled" json:"disabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

type ToolConfig struct {
	MaxResultTokens int `mapstructure:"max_result_tokens" json:"max_result_tokens"`
}

type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" json:"debounce_ms"`
}

const configDirName = ".blockedit"

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("color", "auto")
	v.SetDefault("highlight", true)
	v.SetDefault("markers.deleted", "-")
	v.SetDefault("markers.added", "+")
	v.SetDefault("journal.path", filepath.Join(home, configDirName, "journal.db"))
	v.SetDefault("journal.disabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("tool.max_result_tokens", coretools.DefaultMaxResultTokens)
	v.SetDefault("watch.debounce_ms", 100)
}

// loadConfig resolves the configuration into v. Flags must already be bound to v.
func loadConfig(v *viper.Viper, cwd, home string) (Config, error) {
	setDefaults(v, home)

	files := configFiles(cwd, home)
	for _, f := range files {
		v.SetConfigFile(f)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", f)
		}
	}

	v.SetEnvPrefix("BLOCKEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode configuration")
	}
	cfg.Files = files
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// configFiles returns the existing global and project config files, global first.
func configFiles(cwd, home string) []string {
	var files []string
	global := ""
	if home != "" {
		global = filepath.Join(home, configDirName, "config.yaml")
		if isFile(global) {
			files = append(files, global)
		}
	}
	if project := nearestConfigFile(cwd); project != "" && project != global {
		files = append(files, project)
	}
	return files
}

func nearestConfigFile(dir string) string {
	if dir == "" {
		return ""
	}
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, configDirName, "config.yaml")
		if isFile(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func validateConfig(cfg Config) error {
	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return errors.Errorf("invalid color %q: want auto, always or never", cfg.Color)
	}
	if cfg.Watch.DebounceMs < 0 {
		return errors.Errorf("invalid watch.debounce_ms %d: must not be negative", cfg.Watch.DebounceMs)
	}
	if !cfg.Journal.Disabled && strings.TrimSpace(cfg.Journal.Path) == "" {
		return errors.New("journal.path is required unless journal.disabled is set")
	}
	return nil
}

// renderOptions returns diff rendering options for output written to w.
func (cfg Config) renderOptions(w io.Writer) diff.Options {
	useColor := false
	switch cfg.Color {
	case "always":
		useColor = true
	case "auto":
		useColor = isTerminal(w) && os.Getenv("NO_COLOR") == ""
	}
	return diff.Options{
		Color:         useColor,
		Highlight:     useColor && cfg.Highlight,
		DeletedMarker: cfg.Markers.Deleted,
		AddedMarker:   cfg.Markers.Added,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
