package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/export"
	"github.com/hydrotools/lfcoords/inputs"
	"github.com/hydrotools/lfcoords/models"
	"github.com/hydrotools/lfcoords/pipeline"
	"github.com/hydrotools/lfcoords/producer"
	"github.com/hydrotools/lfcoords/raster/geotiff"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yml", "Path to the run configuration")
	flag.StringVar(&cfgPath, "c", "config.yml", "Path to the run configuration (shorthand)")
	progress := flag.Bool("progress", false, "Show a progress bar per stage")
	batchMode := flag.Bool("batch", false, "Publish outcomes after the run instead of streaming them")
	noLogFile := flag.Bool("no-log-file", false, "Do not write a log file in the output folder")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := os.MkdirAll(cfg.OutputFolder, 0755); err != nil {
		log.Fatalf("❌ Failed to create output folder: %v", err)
	}
	if !*noLogFile {
		closeLog, err := teeLog(cfg.OutputFolder)
		if err != nil {
			log.Fatalf("❌ Failed to create log file: %v", err)
		}
		defer closeLog()
	}

	log.Println("╔═══════════════════════════════════════════════════════════╗")
	log.Println("║   lfcoords - station coordinates on model grids           ║")
	log.Println("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("Config: %s", cfgPath)
	log.Printf("Points: %s", cfg.Input.Points)
	log.Printf("Output: %s %v", cfg.OutputFolder, cfg.OutputFormats)
	log.Printf("Conditions: min area %.1f km2, abs error %.1f km2, pct error %.1f%%",
		cfg.Conditions.MinArea, cfg.Conditions.AbsError, cfg.Conditions.PctError)
	log.Printf("Reservoirs: %v", cfg.Reservoirs)
	log.Println("───────────────────────────────────────────────────────────")

	in, err := inputs.Loader{GeoTIFF: geotiff.Read}.Load(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to load inputs: %v", err)
	}
	stem := inputs.Stem(cfg)

	writer, err := export.NewWriter(cfg.OutputFolder, cfg.OutputFormats, in.LDDFine.Grid().CRS)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := writer.Points(stem, models.NewRecords(in.Stations)); err != nil {
		log.Fatalf("❌ Failed to export the station table: %v", err)
	}

	runner := pipeline.NewRunner(cfg)
	runner.Progress = *progress

	var kafkaProducer *producer.KafkaProducer
	var streamDone chan error
	var outcomes chan *models.Outcome
	if cfg.Kafka.Enabled() {
		kafkaProducer, err = producer.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			log.Fatalf("❌ Failed to create Kafka producer: %v", err)
		}

		// Setup graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			log.Println("🛑 Received shutdown signal")
			kafkaProducer.Close()
			os.Exit(1)
		}()

		if !*batchMode {
			outcomes = make(chan *models.Outcome, 1000)
			streamDone = make(chan error, 1)
			runner.Outcomes = outcomes
			go func() {
				streamDone <- kafkaProducer.StreamFromChannel(outcomes, cfg.Kafka.Workers)
			}()
		}
	}

	startTime := time.Now()
	res, err := runner.Run(in)
	if outcomes != nil {
		close(outcomes)
		if serr := <-streamDone; serr != nil {
			log.Printf("⚠️  Stream errors: %v", serr)
		}
	}
	if err != nil {
		log.Fatalf("❌ Run failed: %v", err)
	}

	if kafkaProducer != nil {
		if *batchMode {
			if err := kafkaProducer.SendOutcomeBatch(res.Report.Outcomes, cfg.Kafka.Workers); err != nil {
				log.Printf("⚠️  Batch send errors: %v", err)
			}
		}
		kafkaProducer.Close()
	}

	if err := pipeline.Export(writer, stem, res); err != nil {
		log.Fatalf("❌ Export failed: %v", err)
	}
	log.Printf("⏱️  Total Time: %v", time.Since(startTime).Round(time.Millisecond))
}

// teeLog copies the log to lfcoords_<YYYYMMDDHHMM>.log in folder
func teeLog(folder string) (func(), error) {
	name := fmt.Sprintf("lfcoords_%s.log", time.Now().Format("200601021504"))
	f, err := os.Create(filepath.Join(folder, name))
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
