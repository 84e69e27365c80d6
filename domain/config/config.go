package config

import (
	"time"
	_ "time/tzdata"

	"rebar-stats/domain/shipment"
)

// Config represents the structure of config.yml used by the tool.
type Config struct {
	Source    Source    `yaml:"source"`
	Normalize Normalize `yaml:"normalize"`
	Dashboard Dashboard `yaml:"dashboard"`
	Status    Status    `yaml:"status"`
	Notify    Notify    `yaml:"notify"`
	DataDir   string    `yaml:"data_dir"`
}

// Source lists the candidate workbook locations, probed in order.
type Source struct {
	Paths    []string      `yaml:"paths"`
	Sheet    string        `yaml:"sheet"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Normalize struct {
	Required []string            `yaml:"required"`
	Aliases  map[string][]string `yaml:"aliases"`
	Defaults map[string]string   `yaml:"defaults"`
	Timezone string              `yaml:"timezone"`
}

type Dashboard struct {
	// AllProjectsLabel is the picker entry that selects every department.
	AllProjectsLabel string `yaml:"all_projects_label"`
}

type Status struct {
	Store string `yaml:"store"` // file | postgres; empty picks postgres when a DSN is set, file otherwise
	Path  string `yaml:"path"`
	DSN   string `yaml:"dsn"`
}

// Notify configures the NotArrived webhook. Token is sent as a static bearer;
// TokenURL with ClientID/ClientSecret switches to the client credentials flow.
type Notify struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	TokenURL     string        `yaml:"token_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	def := shipment.DefaultConfig()
	return &Config{
		Source: Source{
			Paths:    []string{"发货计划（宜宾项目）汇总.xlsx"},
			CacheTTL: 10 * time.Second,
		},
		Normalize: Normalize{
			Required: def.Required,
			Aliases:  def.Aliases,
			Defaults: def.Defaults,
		},
		Dashboard: Dashboard{AllProjectsLabel: "中铁物贸成都分公司"},
		Status:    Status{Path: "data/status.csv"},
		Notify:    Notify{Timeout: 10 * time.Second},
		DataDir:   "data",
	}
}

// Shipment converts the normalize section into a shipment.Config. Sections
// left empty in the file fall back to the built-in vocabulary.
func (c *Config) Shipment() (shipment.Config, error) {
	out := shipment.DefaultConfig()
	if len(c.Normalize.Aliases) > 0 {
		out.Aliases = c.Normalize.Aliases
	}
	if len(c.Normalize.Required) > 0 {
		out.Required = c.Normalize.Required
	}
	for k, v := range c.Normalize.Defaults {
		out.Defaults[k] = v
	}
	if c.Normalize.Timezone != "" {
		loc, err := time.LoadLocation(c.Normalize.Timezone)
		if err != nil {
			return out, err
		}
		out.Location = loc
	}
	return out, nil
}

// DefaultDepartment is the label blank departments normalize to.
func (c *Config) DefaultDepartment() string {
	if v := c.Normalize.Defaults[shipment.FieldDepartment]; v != "" {
		return v
	}
	return shipment.DefaultDepartmentLabel
}
