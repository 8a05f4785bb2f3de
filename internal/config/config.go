package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	Network  NetworkConfig  `mapstructure:"network"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Clean    CleanConfig    `mapstructure:"clean"`
	Train    TrainConfig    `mapstructure:"train"`
	Generate GenerateConfig `mapstructure:"generate"`
	Eval     EvalConfig     `mapstructure:"eval"`
	Log      LogConfig      `mapstructure:"log"`
}

type NetworkConfig struct {
	Timeout       int      `mapstructure:"timeout"`
	UserAgent     string   `mapstructure:"user_agent"`
	BrowserAgent  string   `mapstructure:"browser_agent"`
	Delay         float64  `mapstructure:"delay"`
	Shorteners    []string `mapstructure:"shorteners"`
	CookieBrowser string   `mapstructure:"cookie_browser"`
}

type BrowserConfig struct {
	Headless     bool   `mapstructure:"headless"`
	JSTimeout    int    `mapstructure:"js_timeout"`
	WaitSelector string `mapstructure:"wait_selector"`
	ExecPath     string `mapstructure:"exec_path"`
}

type ScrapeConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	NumLinks int    `mapstructure:"num_links"`
}

type CacheConfig struct {
	Path     string `mapstructure:"path"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// FilterConfig holds the row-removing stage parameters. The thresholds are
// untuned and kept configurable.
type FilterConfig struct {
	MaxPostWords       int     `mapstructure:"max_post_words"`
	TitleOverlapFactor float64 `mapstructure:"title_overlap_factor"`
	FailedSentinel     string  `mapstructure:"failed_sentinel"`
	BadTitlePattern    string  `mapstructure:"bad_title_pattern"`
	BadPostPattern     string  `mapstructure:"bad_post_pattern"`
}

type CleanConfig struct {
	PostStringsToRemove  []string `mapstructure:"post_strings_to_remove"`
	NewspaperNames       []string `mapstructure:"newspaper_names"`
	TitleStringsToRemove []string `mapstructure:"title_strings_to_remove"`
}

type TrainConfig struct {
	Model       string   `mapstructure:"model"`
	ContextSize int      `mapstructure:"context_size"`
	BatchSize   int      `mapstructure:"batch_size"`
	Epochs      int      `mapstructure:"epochs"`
	TrainCSV    string   `mapstructure:"train_csv"`
	ValCSV      string   `mapstructure:"val_csv"`
	OutputDir   string   `mapstructure:"output_dir"`
	Command     []string `mapstructure:"command"`
}

type GenerateConfig struct {
	Backend      string          `mapstructure:"backend"`
	Endpoint     string          `mapstructure:"endpoint"`
	MaxNewTokens int             `mapstructure:"max_new_tokens"`
	BadTokens    []string        `mapstructure:"bad_tokens"`
	Anthropic    AnthropicConfig `mapstructure:"anthropic"`
}

type AnthropicConfig struct {
	Key       string `mapstructure:"key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type EvalConfig struct {
	BERTScoreEndpoint string `mapstructure:"bertscore_endpoint"`
	Lang              string `mapstructure:"lang"`
	WorstK            int    `mapstructure:"worst_k"`
	WorstMetric       string `mapstructure:"worst_metric"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Timeout:       30,
			UserAgent:     "",
			BrowserAgent:  "auto",
			Delay:         0,
			Shorteners:    []string{"bit.ly"},
			CookieBrowser: "",
		},
		Browser: BrowserConfig{
			Headless:     true,
			JSTimeout:    30,
			WaitSelector: "body",
			ExecPath:     "",
		},
		Scrape: ScrapeConfig{
			DataDir:  "data/posts",
			NumLinks: 100,
		},
		Cache: CacheConfig{
			Path:     "",
			TTLHours: 168,
		},
		Filter: FilterConfig{
			MaxPostWords:       20,
			TitleOverlapFactor: 0.6,
			FailedSentinel:     "FAILED",
			BadTitlePattern:    "None|Error|Page not found|Forbidden|404|Not Acceptable|Just a moment|הודעת שגיאה|העמוד לא נמצא",
			BadPostPattern:     "אמורה להיות המילה היחידה בהן|לא נכנסנו|אמ;לק|בתגובות|סתם",
		},
		Clean: CleanConfig{
			PostStringsToRemove: []string{"שמחנו לעזור."},
			NewspaperNames: []string{
				"TheMarker", "חדשות מעריב", "הארץ", "חדשות 13", "רשת 13",
				"N12", "ישראל היום", "טיים אאוט", "מעריב", "TMI", "וואלה! כסף", "וואלה! בריאות",
				"tvbee", "גיקטיים", "ערוץ 7", "וואלה!",
			},
			TitleStringsToRemove: []string{"|", "<", ">"},
		},
		Train: TrainConfig{
			Model:       "mb",
			ContextSize: 512,
			BatchSize:   8,
			Epochs:      3,
			TrainCSV:    "train.csv",
			ValCSV:      "val.csv",
			OutputDir:   ".",
			Command:     []string{"python3", "finetune.py"},
		},
		Generate: GenerateConfig{
			Backend:      "endpoint",
			Endpoint:     "http://localhost:8080/generate",
			MaxNewTokens: 50,
			BadTokens:    []string{"<extra_id_0>", "<extra_id_40>", "<extra_id_1>"},
			Anthropic: AnthropicConfig{
				Key:       "",
				Model:     "claude-haiku-4-5-20251001",
				MaxTokens: 100,
			},
		},
		Eval: EvalConfig{
			BERTScoreEndpoint: "",
			Lang:              "he",
			WorstK:            20,
			WorstMetric:       "BERTscore_f1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Dir returns the directory holding config.toml.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", eris.Wrap(err, "config: find home directory")
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "baitgen"), nil
}

// Load reads configFile, or config.toml from Dir when configFile is empty.
// A missing file is not an error; defaults and BAITGEN_* env vars still apply.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		v.AddConfigPath(dir)
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BAITGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, "", reflect.ValueOf(cfg).Elem())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, eris.Wrap(err, "config: read file")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, eris.Wrap(err, "config: unmarshal")
	}

	return cfg, nil
}

// setDefaults registers every leaf of the default config with viper so that
// env overrides resolve even when the key is absent from the file.
func setDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("mapstructure")
		if prefix != "" {
			key = prefix + "." + key
		}
		field := rv.Field(i)
		if field.Kind() == reflect.Struct {
			setDefaults(v, key, field)
			continue
		}
		v.SetDefault(key, field.Interface())
	}
}

func (c *Config) CreateExampleConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return eris.Wrap(err, "config: create directory")
	}

	exampleContent := `# baitgen configuration file

[network]
timeout = 30                 # per-request timeout in seconds, no retries
user_agent = ""              # custom user agent (empty = rotate browser agents)
browser_agent = "auto"       # auto, chrome, firefox, safari, edge
delay = 0                    # seconds between publisher requests
shorteners = ["bit.ly"]      # hosts resolved with a HEAD request before dispatch
cookie_browser = ""          # read cookies from a local browser (chrome, firefox, safari); empty = off

[browser]
headless = true
js_timeout = 30              # seconds per rendered page
wait_selector = "body"
exec_path = ""               # Chrome binary (empty = auto-detect)

[scrape]
data_dir = "data/posts"      # directory of post JSON files
num_links = 100

[cache]
path = ""                    # sqlite file for extracted articles (empty = off)
ttl_hours = 168

[filter]
max_post_words = 20
title_overlap_factor = 0.6
failed_sentinel = "FAILED"
bad_title_pattern = "None|Error|Page not found|Forbidden|404|Not Acceptable|Just a moment|הודעת שגיאה|העמוד לא נמצא"
bad_post_pattern = "אמורה להיות המילה היחידה בהן|לא נכנסנו|אמ;לק|בתגובות|סתם"

[clean]
post_strings_to_remove = ["שמחנו לעזור."]
newspaper_names = ["TheMarker", "חדשות מעריב", "הארץ", "חדשות 13", "רשת 13", "N12", "ישראל היום", "טיים אאוט", "מעריב", "TMI", "וואלה! כסף", "וואלה! בריאות", "tvbee", "גיקטיים", "ערוץ 7", "וואלה!"]
title_strings_to_remove = ["|", "<", ">"]

[train]
model = "mb"                 # mb, ml, mxl
context_size = 512
batch_size = 8
epochs = 3
train_csv = "train.csv"
val_csv = "val.csv"
output_dir = "."
command = ["python3", "finetune.py"]  # trainer program, see baitgen train --help for the flags it must accept

[generate]
backend = "endpoint"         # endpoint, anthropic
endpoint = "http://localhost:8080/generate"
max_new_tokens = 50
bad_tokens = ["<extra_id_0>", "<extra_id_40>", "<extra_id_1>"]

[generate.anthropic]
key = ""                     # or ANTHROPIC_API_KEY
model = "claude-haiku-4-5-20251001"
max_tokens = 100

[eval]
bertscore_endpoint = ""      # BERTScore service URL (empty = skip)
lang = "he"
worst_k = 20
worst_metric = "BERTscore_f1"

[log]
level = "info"               # debug, info, warn, error
format = "console"           # console, json
output = "stdout"
`

	if err := os.WriteFile(configPath, []byte(exampleContent), 0644); err != nil {
		return eris.Wrap(err, "config: write example")
	}
	return nil
}
