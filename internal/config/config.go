// Package config загружает YAML-конфигурацию приложения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"wavebt/internal/logger"
)

var validate = validator.New()

type Config struct {
	// Путь к JSON-файлу со свечами
	Candles  string  `yaml:"candles" default:"candles.json" validate:"required"`
	Slippage float64 `yaml:"slippage" default:"0.01" validate:"gte=0"`
	// Стратегии к запуску; пусто — все зарегистрированные
	Run      []string `yaml:"run"`
	Optimize bool     `yaml:"optimize"`

	Output struct {
		SaveSignals int    `yaml:"save_signals" validate:"gte=0"`
		Dir         string `yaml:"dir" default:"."`
		SQLite      string `yaml:"sqlite"`
	} `yaml:"output"`

	Metrics struct {
		ProfPort int `yaml:"prof_port" validate:"gte=0,lte=65535"`
	} `yaml:"metrics"`

	Log logger.Config `yaml:"log"`

	// Конфигурации стратегий по имени; разбираются самими стратегиями
	Strategies map[string]yaml.Node `yaml:"strategies" default:"-"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load читает YAML поверх значений по умолчанию и проверяет результат.
// Пустой path — только значения по умолчанию.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv — Load с переопределениями из окружения:
// WAVEBT_CANDLES, WAVEBT_LOG_LEVEL.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("WAVEBT_CANDLES"); v != "" {
		c.Candles = v
	}
	if v := os.Getenv("WAVEBT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// StrategyNode возвращает YAML-конфигурацию стратегии или nil.
func (c *Config) StrategyNode(name string) *yaml.Node {
	node, ok := c.Strategies[name]
	if !ok {
		return nil
	}
	return &node
}
