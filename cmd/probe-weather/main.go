package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"energy-ml/internal/data"
	"energy-ml/internal/logging"
)

// probe-weather resolves cities through the lookup table and prints their
// current conditions. It is a quick check of the API key and the table.
func main() {
	var (
		citiesPath = flag.String("cities", "data/weather.csv", "City table CSV (city,lat,lng)")
		names      = flag.String("city", "Paris", "Comma-separated city names")
		baseURL    = flag.String("base-url", data.DefaultWeatherBaseURL, "Weather API base URL")
		timeout    = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		log.Fatal("WEATHER_API_KEY environment variable is required")
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.InitWriter(logging.Config{Level: level}, os.Stderr)

	table, err := data.LoadCityTable(*citiesPath, data.DefaultLocation)
	if err != nil {
		log.Fatalf("Failed to load city table: %v", err)
	}
	fmt.Printf("Loaded %d cities from %s\n", table.Len(), *citiesPath)

	client := data.NewWeatherClient(data.WeatherOptions{
		APIKey:  apiKey,
		BaseURL: *baseURL,
		Timeout: *timeout,
		Logger:  logger,
	})

	failed := 0
	for _, name := range strings.Split(*names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		city, found := table.Lookup(name)
		note := ""
		if !found {
			note = " (not in table, using " + city.Name + ")"
		}

		cond, err := client.CurrentConditions(context.Background(), city.Lat, city.Lon)
		if err != nil {
			fmt.Printf("%s%s: error: %v\n", name, note, err)
			failed++
			continue
		}
		fmt.Printf("%s%s: %.4f,%.4f temp=%.1f°C pressure=%.0fhPa clouds=%.0f%% wind=%.1fkm/h ghi=%.0fW/m²\n",
			name, note, city.Lat, city.Lon,
			cond.Temperature, cond.Pressure, cond.CloudCover, cond.WindSpeed, cond.SolarRadiation)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
