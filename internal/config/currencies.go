package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fxrates/internal/core"
)

type currencyFile struct {
	Currencies []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"currencies"`
}

// LoadCurrencyFile reads an application currency seed:
//
//	currencies:
//	  - code: USD
//	    name: US Dollar
func LoadCurrencyFile(path string) ([]core.ApplicationCurrency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read currencies file: %w", err)
	}
	var f currencyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse currencies file %s: %w", path, err)
	}

	out := make([]core.ApplicationCurrency, 0, len(f.Currencies))
	seen := make(map[string]struct{}, len(f.Currencies))
	for i, c := range f.Currencies {
		code, err := core.NormalizeCurrency(c.Code)
		if err != nil {
			return nil, fmt.Errorf("currencies file %s entry %d: %w", path, i+1, err)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, core.ApplicationCurrency{Code: code, Name: c.Name, Active: true})
	}
	return out, nil
}
