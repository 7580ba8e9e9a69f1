// Load envs from .env
// Start from defaults, overlay YAML, overlay env
// Resolve secrets from the OS keyring when env is empty
// Validate config

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-easyapply-automation/internal/models"
)

// Duration reads YAML strings such as "10s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type Search struct {
	BaseURL       string   `yaml:"base_url"`
	Keywords      []string `yaml:"keywords"`
	Location      string   `yaml:"location"`
	PostedWithin  Duration `yaml:"posted_within"`
	Experience    []string `yaml:"experience"`
	JobTypes      []string `yaml:"job_types"`
	EasyApplyOnly bool     `yaml:"easy_apply_only"`
}

type Profile struct {
	// TargetText is the profile every listing is scored against.
	TargetText string                 `yaml:"target_text"`
	Fields     models.ProfileFieldMap `yaml:"fields"`
	ResumePath string                 `yaml:"resume_path"`
}

type Browser struct {
	Headless    bool    `yaml:"headless"`
	SlowMoMs    float64 `yaml:"slow_mo_ms"`
	UserAgent   string  `yaml:"user_agent"`
	StateDir    string  `yaml:"state_dir"`
	CookiesPath string  `yaml:"cookies_path"`
	LoginURL    string  `yaml:"login_url"`
}

type Scoring struct {
	Endpoint string   `yaml:"endpoint"`
	Model    string   `yaml:"model"`
	APIKey   string   `yaml:"-"`
	MinScore float64  `yaml:"min_score"`
	Timeout  Duration `yaml:"timeout"`
}

type Filter struct {
	Include        string   `yaml:"include"`
	Exclude        string   `yaml:"exclude"`
	RejectSeniorXP bool     `yaml:"reject_senior_experience"`
	MaxPostedAge   Duration `yaml:"max_posted_age"`
}

type Limits struct {
	MaxSteps          int     `yaml:"max_steps"`
	MaxPages          int     `yaml:"max_pages"`
	MaxApplications   int     `yaml:"max_applications"`
	CardsPerPage      int     `yaml:"cards_per_page"`
	AttemptsPerMinute float64 `yaml:"attempts_per_minute"`
}

type Timeouts struct {
	Navigation  Duration `yaml:"navigation"`
	CardList    Duration `yaml:"card_list"`
	DetailPane  Duration `yaml:"detail_pane"`
	ApplyButton Duration `yaml:"apply_button"`
	Modal       Duration `yaml:"modal"`
	ModalClose  Duration `yaml:"modal_close"`
	Click       Duration `yaml:"click"`
	// Step bounds the wait for the next primary action inside the modal.
	Step        Duration `yaml:"step"`
	Login       Duration `yaml:"login"`
}

type Pacing struct {
	Settle Duration `yaml:"settle"`
	Jitter Duration `yaml:"jitter"`
}

type Storage struct {
	DSN           string `yaml:"dsn"`
	CachePath     string `yaml:"cache_path"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

type Telegram struct {
	Token     string `yaml:"-"`
	ChatID    int64  `yaml:"chat_id"`
	NotifyAll bool   `yaml:"notify_all"`
}

type Config struct {
	Search    Search   `yaml:"search"`
	Profile   Profile  `yaml:"profile"`
	Browser   Browser  `yaml:"browser"`
	Scoring   Scoring  `yaml:"scoring"`
	Filter    Filter   `yaml:"filter"`
	Limits    Limits   `yaml:"limits"`
	Timeouts  Timeouts `yaml:"timeouts"`
	Pacing    Pacing   `yaml:"pacing"`
	Storage   Storage  `yaml:"storage"`
	Telegram  Telegram `yaml:"telegram"`
	RulesPath string   `yaml:"rules_path"`
	Debug     bool     `yaml:"debug"`
}

// Default is a complete, valid configuration except for the resume path.
func Default() *Config {
	return &Config{
		Search: Search{
			BaseURL:       "https://www.linkedin.com/jobs/search/",
			Keywords:      []string{"Software Internship"},
			Location:      "United States",
			PostedWithin:  Duration(7 * 24 * time.Hour),
			Experience:    []string{"1", "2"},
			JobTypes:      []string{"I", "C"},
			EasyApplyOnly: true,
		},
		Profile: Profile{
			TargetText: "Software engineering intern. Go, Python, cloud, backend services, machine learning.",
			Fields:     DefaultFields(),
		},
		Browser: Browser{
			Headless:    false,
			StateDir:    ".browser",
			CookiesPath: ".cookies/cookies-linkedin.json",
			LoginURL:    "https://www.linkedin.com/login",
		},
		Scoring: Scoring{
			Model:    "all-MiniLM-L6-v2",
			MinScore: 0,
			Timeout:  Duration(20 * time.Second),
		},
		Filter: Filter{
			RejectSeniorXP: true,
			MaxPostedAge:   Duration(14 * 24 * time.Hour),
		},
		Limits: Limits{
			MaxSteps:          12,
			MaxPages:          3,
			MaxApplications:   10,
			CardsPerPage:      25,
			AttemptsPerMinute: 6,
		},
		Timeouts: Timeouts{
			Navigation:  Duration(30 * time.Second),
			CardList:    Duration(15 * time.Second),
			DetailPane:  Duration(10 * time.Second),
			ApplyButton: Duration(5 * time.Second),
			Modal:       Duration(5 * time.Second),
			ModalClose:  Duration(10 * time.Second),
			Click:       Duration(5 * time.Second),
			Step:        Duration(3 * time.Second),
			Login:       Duration(3 * time.Minute),
		},
		Pacing: Pacing{
			Settle: Duration(2 * time.Second),
			Jitter: Duration(time.Second),
		},
		Storage: Storage{
			DSN:           "data/jobpilot.db",
			CachePath:     ".cache",
			ScreenshotDir: "logs/screenshots",
		},
	}
}

// DefaultFields are the canonical applicant fields with their input
// synonyms; values come from the config file. Order matters: country code
// before phone.
func DefaultFields() models.ProfileFieldMap {
	return models.ProfileFieldMap{
		{Name: "first_name", Synonyms: []string{"first name", "firstname", "given name"}},
		{Name: "last_name", Synonyms: []string{"last name", "lastname", "surname", "family name"}},
		{Name: "phone_country_code", Synonyms: []string{"country code", "phone country"}},
		{Name: "phone", Synonyms: []string{"phone", "mobile", "phone number", "mobile phone"}},
		{Name: "email", Synonyms: []string{"email", "email address"}},
		{Name: "university", Synonyms: []string{"university", "school", "current position", "education", "student at"}},
		{Name: "location", Synonyms: []string{"location", "city", "current location"}},
	}
}

// Load reads .env, then the YAML file at path (optional when path is empty),
// then environment overrides, then keyring secrets, and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		// unmarshal over defaults, keeping defaults for absent keys
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if len(file.Profile.Fields) > 0 {
			cfg.Profile.Fields = mergeFields(DefaultFields(), file.Profile.Fields)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	resolveSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFields fills default synonyms for known fields and keeps extra ones.
func mergeFields(defaults, file models.ProfileFieldMap) models.ProfileFieldMap {
	out := defaults
	for _, f := range file {
		out = out.Set(f.Name, f.Value, f.Synonyms...)
	}
	return out
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Scoring.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
		cfg.Scoring.Endpoint = v
	}
	if v := os.Getenv("JOBPILOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("RESUME_PATH"); v != "" {
		cfg.Profile.ResumePath = v
	}
	if v := os.Getenv("JOBPILOT_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid JOBPILOT_HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Search.Keywords) == 0 {
		errs = append(errs, errors.New("search.keywords is empty"))
	}
	if c.Limits.MaxSteps <= 0 {
		errs = append(errs, errors.New("limits.max_steps must be positive"))
	}
	if c.Limits.MaxPages <= 0 {
		errs = append(errs, errors.New("limits.max_pages must be positive"))
	}
	if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 100 {
		errs = append(errs, fmt.Errorf("scoring.min_score %.1f is outside [0,100]", c.Scoring.MinScore))
	}
	if c.Profile.ResumePath != "" {
		if _, err := os.Stat(c.Profile.ResumePath); err != nil {
			errs = append(errs, fmt.Errorf("profile.resume_path: %w", err))
		}
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required when a bot token is set"))
	}
	return errors.Join(errs...)
}
