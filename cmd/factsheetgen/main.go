package main

import (
	"context"
	"encoding/csv"
	"flag"
	"os"
	"strings"

	"factsheetgen/internal/app"
	"factsheetgen/internal/config"
	"factsheetgen/internal/domain"
	"factsheetgen/internal/logging"
	"factsheetgen/internal/usecase"
	"factsheetgen/pkg/logger"
)

type company struct {
	URL      string
	Industry string
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		siteURL   = flag.String("url", "", "single company URL to process")
		csvPath   = flag.String("csv", "", "CSV file containing company URLs (columns: URL, Industry)")
		selectIdx = flag.Int("select", -1, "select specific company index from CSV (0-based)")
		outputDir = flag.String("output-dir", "", "output directory for factsheet files")
		model     = flag.String("model", "", "model identifier, e.g. openai:gpt-4o-mini")
		verbose   = flag.Bool("verbose", false, "enable verbose logging")
	)
	flag.Parse()

	log := logger.New("factsheetgen")

	if (*siteURL == "") == (*csvPath == "") {
		log.Println("exactly one of -url or -csv is required")
		flag.Usage()
		return 1
	}

	cfg := config.Load()
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *outputDir != "" {
		cfg.Storage.Dir = *outputDir
	}
	if cfg.OpenAI.APIKey == "" {
		log.Println("OPENAI_API_KEY environment variable not set")
		return 1
	}

	application, err := app.New(cfg, logging.New(cfg.Logging.Level))
	if err != nil {
		log.Printf("wiring failed: %v", err)
		return 1
	}

	if *csvPath != "" {
		companies, err := loadCompanies(*csvPath)
		if err != nil {
			log.Printf("cannot load companies from %s: %v", *csvPath, err)
			return 1
		}
		if len(companies) == 0 {
			log.Printf("no companies loaded from %s", *csvPath)
			return 1
		}

		if *selectIdx < 0 {
			log.Println("available companies:")
			for i, c := range companies {
				log.Printf("  %d: %s (%s)", i, c.URL, c.Industry)
			}
			log.Println("use -select <index> to process a specific company")
			return 0
		}
		if *selectIdx >= len(companies) {
			log.Printf("invalid selection %d, available indices: 0-%d", *selectIdx, len(companies)-1)
			return 1
		}
		*siteURL = companies[*selectIdx].URL
	}

	return generate(application, *siteURL, *model, log)
}

func generate(application *app.Application, siteURL, model string, log interface{ Printf(string, ...any) }) int {
	log.Printf("generating factsheet for %s", siteURL)

	t, err := application.Generator().Generate(context.Background(), usecase.Request{
		SourceURL:       siteURL,
		ModelIdentifier: model,
	})
	if err != nil {
		log.Printf("request rejected: %v", err)
		return 1
	}

	if t.State != domain.TaskCompleted || t.Result == nil {
		if t.Failure != nil {
			log.Printf("generation failed (%s): %s", t.Failure.Kind, t.Failure.Message)
		} else {
			log.Printf("generation failed")
		}
		return 1
	}

	log.Printf("factsheet generated: %d words, sections: %s",
		t.Result.WordCount, strings.Join(t.Result.SectionsPresent, ", "))
	return 0
}

func loadCompanies(path string) ([]company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	urlCol, industryCol := 0, 1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "url":
			urlCol = i
		case "industry":
			industryCol = i
		}
	}

	var companies []company
	for _, row := range rows[1:] {
		if urlCol >= len(row) {
			continue
		}
		c := company{URL: strings.TrimSpace(row[urlCol])}
		if industryCol < len(row) {
			c.Industry = strings.TrimSpace(row[industryCol])
		}
		if c.URL == "" {
			continue
		}
		companies = append(companies, c)
	}
	return companies, nil
}
