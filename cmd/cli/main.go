package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"energy-ml/internal/config"
	"energy-ml/internal/data"
	"energy-ml/internal/inference"
	"energy-ml/internal/logging"
	"energy-ml/internal/training"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = cmdTrain(os.Args[2:])
	case "predict":
		err = cmdPredict(os.Args[2:])
	case "info":
		err = cmdInfo(os.Args[2:])
	case "export-synthetic":
		err = cmdExportSynthetic(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli train [--config config.yaml] [--model fraud|energy|all]")
	fmt.Println("  cli predict [--config config.yaml] --input records.json")
	fmt.Println("  cli info [--config config.yaml] [--model fraud|energy]")
	fmt.Println("  cli export-synthetic --out data/fraud.csv [--samples 1000] [--seed 42] [--fraud-rate 0.1]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - train always fits a new pair and overwrites the artifacts")
	fmt.Println("  - predict and info load persisted artifacts, training only if none are usable")
}

type env struct {
	cfg    *config.Config
	logger *slog.Logger
	fraud  *training.FraudManager
	energy *training.EnergyManager
}

func setup(cfgPath string) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := logging.InitWriter(cfg.Logging, os.Stderr)
	if err := os.MkdirAll(cfg.Artifacts.Dir, 0o755); err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		fraud:  training.NewFraudManager(cfg.Artifacts.Dir, training.FraudSource(cfg.Fraud), cfg.Fraud.Forest, logger),
		energy: training.NewEnergyManager(cfg.Artifacts.Dir, training.EnergySource(cfg.Energy), logger),
	}, nil
}

func cmdTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	which := fs.String("model", "all", "Model to train: fraud, energy or all")
	_ = fs.Parse(args)

	switch *which {
	case "all", training.FraudFamily, training.EnergyFamily:
	default:
		return fmt.Errorf("unknown model %q", *which)
	}
	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if *which == "all" || *which == training.FraudFamily {
		p, err := e.fraud.Retrain(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("fraud: pair %s, %d trees, %d encoded columns\n", p.Meta.PairID, len(p.Model.Trees), p.Encoder.Width())
	}
	if *which == "all" || *which == training.EnergyFamily {
		p, err := e.energy.Retrain(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("energy: pair %s, hold-out R² solar=%.3f wind=%.3f\n", p.Meta.PairID, p.Model.SolarTestR2, p.Model.WindTestR2)
	}
	fmt.Printf("artifacts written to %s\n", e.cfg.Artifacts.Dir)
	return nil
}

type prediction struct {
	Index       int     `json:"index"`
	Fraud       bool    `json:"fraud_prediction"`
	Probability float64 `json:"fraud_probability"`
	Threshold   float64 `json:"threshold"`
}

func cmdPredict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	input := fs.String("input", "", "JSON file holding one record or an array of records")
	_ = fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("--input is required")
	}
	recs, err := data.LoadRecordsJSON(*input)
	if err != nil {
		return err
	}
	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}

	engine := inference.NewFraudEngine(e.fraud, nil, e.logger)
	results, err := engine.PredictBatch(context.Background(), recs)
	if err != nil {
		return err
	}

	out := make([]prediction, len(results))
	for i, r := range results {
		out[i] = prediction{Index: i, Fraud: r.Fraud, Probability: r.Probability, Threshold: r.Threshold}
	}
	return printJSON(out)
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	which := fs.String("model", training.FraudFamily, "Model to describe: fraud or energy")
	_ = fs.Parse(args)

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch *which {
	case training.FraudFamily:
		p, err := e.fraud.Ready(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"model":           training.FraudFamily,
			"origin":          p.Origin,
			"pair_id":         p.Meta.PairID,
			"trained_at":      p.Meta.TrainedAt,
			"parameters":      p.Model.Params,
			"encoded_columns": p.Encoder.Columns(),
		})
	case training.EnergyFamily:
		p, err := e.energy.Ready(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"model":      training.EnergyFamily,
			"origin":     p.Origin,
			"pair_id":    p.Meta.PairID,
			"trained_at": p.Meta.TrainedAt,
			"solar":      p.Model.Solar,
			"wind":       p.Model.Wind,
			"scaler":     p.Encoder,
		})
	}
	return fmt.Errorf("unknown model %q", *which)
}

func cmdExportSynthetic(args []string) error {
	fs := flag.NewFlagSet("export-synthetic", flag.ExitOnError)
	out := fs.String("out", "data/fraud.csv", "Output CSV path")
	samples := fs.Int("samples", 1000, "Number of rows")
	seed := fs.Int64("seed", 42, "Random seed")
	rate := fs.Float64("fraud-rate", 0.1, "Share of fraudulent rows")
	_ = fs.Parse(args)

	src := &data.SyntheticFraud{Samples: *samples, Seed: *seed, FraudRate: *rate}
	ds, err := src.FraudDataset(context.Background())
	if err != nil {
		return err
	}
	if err := data.WriteFraudCSV(*out, ds); err != nil {
		return err
	}

	frauds := 0
	for _, l := range ds.Labels {
		frauds += l
	}
	fmt.Printf("Wrote %d rows (%d fraudulent) to %s\n", len(ds.Records), frauds, *out)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
