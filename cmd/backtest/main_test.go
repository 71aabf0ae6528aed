package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricesCSV = `date,open,high,low,close,volume
2024-01-01,10,10.5,9.5,10,100
2024-01-02,11,11.5,10.5,11,100
2024-01-03,9,9.5,8.5,9,100
2024-01-04,12,12.5,11.5,12,100
2024-01-05,8,8.5,7.5,8,100
`

const strategyYAML = `name: threshold
buy_conditions:
  - operator: in_range
    operand1: close
    lower: 9.5
    upper: 10.5
sell_conditions:
  - operator: greater_than
    operand1: close
    operand2: 11.5
`

func writeFixtures(t *testing.T) (prices, strategyFile string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	prices = filepath.Join(t.TempDir(), "prices.csv")
	strategyFile = filepath.Join(t.TempDir(), "threshold.yaml")
	require.NoError(t, os.WriteFile(prices, []byte(pricesCSV), 0o644))
	require.NoError(t, os.WriteFile(strategyFile, []byte(strategyYAML), 0o644))
	return prices, strategyFile
}

func TestRun_StrategyFile(t *testing.T) {
	prices, strategyFile := writeFixtures(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-prices", prices, "-strategy", strategyFile, "-capital", "100", "-mode", "equity",
	}, &out)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "threshold", result["strategy"])
	assert.Equal(t, 120.0, result["final_cash"])
	assert.Len(t, result["portfolio_history"], 5)
}

func TestRun_Template(t *testing.T) {
	prices, _ := writeFixtures(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-prices", prices, "-template", "sma_crossover", "-params", `{"fast": 2, "slow": 3}`,
		"-start", "2024-01-02", "-indent=false",
	}, &out)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 4.0, result["bars"])
	assert.Contains(t, result, "statistics")
}

func TestRun_Timeframe(t *testing.T) {
	prices, strategyFile := writeFixtures(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-prices", prices, "-strategy", strategyFile, "-timeframe", "1w",
	}, &out)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 1.0, result["bars"])
}

func TestRun_List(t *testing.T) {
	writeFixtures(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-list"}, &out))

	var templates []map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &templates))
	assert.Len(t, templates, 6)
}

func TestRun_Errors(t *testing.T) {
	prices, strategyFile := writeFixtures(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no prices", []string{"-template", "sma_crossover"}},
		{"no strategy", []string{"-prices", prices}},
		{"both strategies", []string{"-prices", prices, "-strategy", strategyFile, "-template", "sma_crossover"}},
		{"bad params", []string{"-prices", prices, "-template", "sma_crossover", "-params", "{"}},
		{"bad timeframe", []string{"-prices", prices, "-template", "sma_crossover", "-timeframe", "3d"}},
		{"bad mode", []string{"-prices", prices, "-template", "sma_crossover", "-mode", "margin"}},
		{"bad capital", []string{"-prices", prices, "-template", "sma_crossover", "-capital", "0"}},
		{"missing file", []string{"-prices", prices + ".missing", "-template", "sma_crossover"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &out))
			assert.Empty(t, out.String())
		})
	}
}
