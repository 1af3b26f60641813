package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/planner.yaml"
const envPrefix = "PLANNER_"

type Application struct {
	Backend  Backend  `koanf:"backend"`
	Server   Server   `koanf:"server"`
	Cache    Cache    `koanf:"cache"`
	Database Database `koanf:"db"`
	Google   Google   `koanf:"google"`
	Planner  Planner  `koanf:"planner"`
}

type Backend struct {
	Url       string        `koanf:"url" validate:"required,url"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`
	TokenPath string        `koanf:"tokenpath"`
}

type Server struct {
	Addr     string   `koanf:"addr" validate:"required"`
	Frontend Frontend `koanf:"frontend"`
}

type Frontend struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type Cache struct {
	Driver        string        `koanf:"driver" validate:"oneof=diskv postgres memory"`
	Dir           string        `koanf:"dir"`
	Ttl           time.Duration `koanf:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `koanf:"sweepinterval" validate:"gt=0,ltfield=Ttl"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
	CalendarId   string `koanf:"calendarid"`
	TokenPath    string `koanf:"tokenpath"`
}

// Enabled reports whether Google Calendar export has client credentials.
func (g Google) Enabled() bool {
	return g.ClientId != "" && g.ClientSecret != ""
}

type Planner struct {
	View            string `koanf:"view" validate:"oneof=week month"`
	PrefetchWeather bool   `koanf:"prefetchweather"`
}

func defaults() Application {
	return Application{
		Backend: Backend{
			Url:       "http://localhost:5000",
			Timeout:   10 * time.Second,
			TokenPath: "~/.workout-planner/token",
		},
		Server: Server{
			Addr: ":8282",
			Frontend: Frontend{
				Enabled: false,
				Dir:     "frontend",
			},
		},
		Cache: Cache{
			Driver:        "diskv",
			Dir:           "~/.workout-planner/cache",
			Ttl:           3 * time.Hour,
			SweepInterval: 30 * time.Minute,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "planner",
			Pass:   "",
			Name:   "planner",
			Schema: "planner",
		},
		Google: Google{
			CalendarId: "primary",
			TokenPath:  "~/.workout-planner/google-token.json",
		},
		Planner: Planner{
			View:            "week",
			PrefetchWeather: true,
		},
	}
}

// Load reads defaults, then the YAML file at path (optional), then PLANNER_
// environment variables, where PLANNER_BACKEND_URL maps to backend.url.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Debugf("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if err := validator.New().Struct(app); err != nil {
		return Application{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return app, nil
}
