package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Listen   string   `koanf:"listen"`
	Frontend Frontend `koanf:"frontend"`
	Database Database `koanf:"db"`
	Schedule Schedule `koanf:"schedule"`
	Feed     Feed     `koanf:"feed"`
	Import   Import   `koanf:"import"`
	Google   Google   `koanf:"google"`
}

type Frontend struct {
	Enabled bool `koanf:"enabled"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Schedule struct {
	// Timezone of the venue, used for the "central" display mode and for splitting events into days.
	Timezone        string `koanf:"timezone"`
	DefaultBaseHour int    `koanf:"defaultbasehour"`
}

type Feed struct {
	Name      string `koanf:"name"`
	ProductId string `koanf:"productid"`
}

type Import struct {
	Sources []ImportSource `koanf:"sources"`
}

// ImportSource is an external iCalendar feed merged into the schedule.
type ImportSource struct {
	Id   string `koanf:"id"`
	Url  string `koanf:"url"`
	Cron string `koanf:"cron"`
	// From and To bound recurrence expansion, RFC3339.
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

type Google struct {
	Enabled         bool   `koanf:"enabled"`
	CredentialsFile string `koanf:"credentialsfile"`
	CalendarId      string `koanf:"calendarid"`
}

func Defaults() Application {
	return Application{
		Host:   "http://localhost:3000",
		Listen: ":8181",
		Frontend: Frontend{
			Enabled: true,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "hackgrid",
			Pass:   "",
			Name:   "hackgrid",
			Schema: "hackgrid",
		},
		Schedule: Schedule{
			Timezone:        "America/Chicago",
			DefaultBaseHour: 6,
		},
		Feed: Feed{
			Name:      "Hackathon Schedule",
			ProductId: "-//hackgrid//schedule//EN",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "HACKGRID_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "HACKGRID_")), "_", ".")
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

	return app, nil
}
