package ledbar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/merliot/ledbar/dean"
	"github.com/warthog618/config"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
)

const (
	// Physical J8 pins, first segment to last
	DefaultPins = "11 13 15 29 31 33 35 37 12 16"
	// Physical J8 pins: clk, data, cs
	DefaultADCPins = "19 26 24"
	DefaultPeriod  = 10 * time.Millisecond

	// LEDBAR_ADC_PINS is key adc.pins, LEDBAR_LOG_LEVEL is log.level, ...
	EnvPrefix = "LEDBAR_"
)

// Config is read from LEDBAR_* environment variables
type Config struct {
	Id         string
	Name       string
	Pins       []Line
	ADCPins    ADCPins
	Period     time.Duration
	ActiveLow  bool
	Addr       string
	TLSHost    string
	User       string
	Passwd     string
	Hub        string
	MqttBroker string
	MqttTopic  string
	Mdns       bool
	LogLevel   string
	LogFormat  string
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"id":     "ledbar01",
		"name":   Model,
		"pins":   DefaultPins,
		"adc":    map[string]interface{}{"pins": DefaultADCPins},
		"period": DefaultPeriod.String(),
		"active": map[string]interface{}{"low": true},
		"addr":   "",
		"tls":    map[string]interface{}{"host": ""},
		"user":   "",
		"passwd": "",
		"hub":    "",
		"mqtt":   map[string]interface{}{"broker": "", "topic": ""},
		"mdns":   false,
		"log":    map[string]interface{}{"level": "info", "format": "text"},
	}
}

func loadConfig() *config.Config {
	def := dict.New(dict.WithMap(defaults()))
	return config.New(
		env.New(env.WithEnvPrefix(EnvPrefix)),
		config.WithDefault(def))
}

func ConfigFromEnv() (Config, error) {
	c := loadConfig()
	str := func(key string) string { return c.MustGet(key).String() }

	cfg := Config{
		Id:         str("id"),
		Name:       str("name"),
		Period:     c.MustGet("period").Duration(),
		ActiveLow:  c.MustGet("active.low").Bool(),
		Addr:       str("addr"),
		TLSHost:    str("tls.host"),
		User:       str("user"),
		Passwd:     str("passwd"),
		Hub:        str("hub"),
		MqttBroker: str("mqtt.broker"),
		MqttTopic:  str("mqtt.topic"),
		Mdns:       c.MustGet("mdns").Bool(),
		LogLevel:   str("log.level"),
		LogFormat:  str("log.format"),
	}
	if cfg.MqttTopic == "" {
		cfg.MqttTopic = Model + "/" + cfg.Id
	}

	if !dean.ValidId(cfg.Id) || !dean.ValidId(cfg.Name) {
		return cfg, fmt.Errorf("invalid id %q or name %q", cfg.Id, cfg.Name)
	}

	var err error
	cfg.Pins, err = parseLines(str("pins"))
	if err != nil {
		return cfg, fmt.Errorf("LEDBAR_PINS: %w", err)
	}
	if len(cfg.Pins) != NumSegments {
		return cfg, fmt.Errorf("LEDBAR_PINS: need %d pins, got %d", NumSegments, len(cfg.Pins))
	}

	adc, err := parseLines(str("adc.pins"))
	if err != nil {
		return cfg, fmt.Errorf("LEDBAR_ADC_PINS: %w", err)
	}
	if len(adc) != 3 {
		return cfg, fmt.Errorf("LEDBAR_ADC_PINS: need clk, data and cs, got %d pins", len(adc))
	}
	cfg.ADCPins = ADCPins{Clk: adc[0], Data: adc[1], Cs: adc[2]}

	if err := checkDuplicates(append(append([]Line{}, cfg.Pins...), adc...)); err != nil {
		return cfg, err
	}

	// an unparsable period reads as zero
	if cfg.Period <= 0 {
		return cfg, fmt.Errorf("LEDBAR_PERIOD: must be a positive duration, got %q", str("period"))
	}

	if cfg.Mdns && cfg.Addr == "" {
		return cfg, fmt.Errorf("LEDBAR_MDNS: needs LEDBAR_ADDR")
	}

	return cfg, nil
}

// parseLines splits a pin list on spaces or commas
func parseLines(s string) ([]Line, error) {
	fields, err := shlex.Split(strings.ReplaceAll(s, ",", " "))
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("pin %q: %w", f, err)
		}
		lines = append(lines, Line(n))
	}
	return lines, nil
}

func checkDuplicates(lines []Line) error {
	seen := make(map[Line]bool, len(lines))
	for _, line := range lines {
		if seen[line] {
			return fmt.Errorf("pin %d used twice", line)
		}
		seen[line] = true
	}
	return nil
}
