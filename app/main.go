package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	flags "github.com/jessevdk/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/smsguard/smsguard/app/dataset"
	"github.com/smsguard/smsguard/app/storage"
	"github.com/smsguard/smsguard/app/storage/engine"
	"github.com/smsguard/smsguard/app/webapi"
	"github.com/smsguard/smsguard/lib/bayes"
)

type options struct {
	DB string `long:"db" env:"DB" default:"smsguard.db" description:"db connection string, postgres:// prefix for postgres, otherwise sqlite file"`

	Corpus        string `long:"corpus" env:"CORPUS" default:"" description:"labeled corpus file to import, tab-separated label and message per line"`
	CorpusReplace bool   `long:"corpus-replace" env:"CORPUS_REPLACE" description:"replace stored samples with the imported corpus"`

	Training struct {
		Enabled    bool    `long:"enabled" env:"ENABLED" description:"retrain the model from stored samples"`
		Alpha      float64 `long:"alpha" env:"ALPHA" default:"1" description:"additive smoothing parameter"`
		TrainRatio float64 `long:"ratio" env:"RATIO" default:"0.8" description:"fraction of samples used for training, the rest for evaluation"`
		Seed       int64   `long:"seed" env:"SEED" default:"42" description:"seed for the train/eval shuffle"`
	} `group:"training" namespace:"training" env-namespace:"TRAINING"`

	Message string `long:"message" env:"MESSAGE" default:"" description:"classify a single message and exit"`

	Server struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable web API server"`
		ListenAddr string `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
		AuthPasswd string `long:"auth" env:"AUTH" default:"" description:"basic auth password for user \"smsguard\""`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable rotated verdict logs"`
		FileName   string `long:"file" env:"FILE" default:"smsguard.log" description:"location of verdict log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	fmt.Printf("smsguard %s\n", revision)
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	p.SubcommandsOptional = true
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	setupLog(opts.Dbg, opts.Server.AuthPasswd)
	log.Printf("[DEBUG] options: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options) error {
	db, err := makeDB(ctx, opts.DB)
	if err != nil {
		return fmt.Errorf("can't make db, %w", err)
	}
	defer db.Close()

	samples, err := storage.NewSamples(ctx, db)
	if err != nil {
		return fmt.Errorf("can't make samples store, %w", err)
	}
	models, err := storage.NewModels(ctx, db)
	if err != nil {
		return fmt.Errorf("can't make models store, %w", err)
	}

	if opts.Corpus != "" {
		if err := importCorpus(ctx, samples, opts.Corpus, opts.CorpusReplace); err != nil {
			return fmt.Errorf("can't import corpus, %w", err)
		}
	}

	if opts.Training.Enabled {
		if err := train(ctx, samples, models, opts); err != nil {
			return fmt.Errorf("can't train model, %w", err)
		}
	}

	if opts.Message == "" && !opts.Server.Enabled {
		log.Printf("[INFO] nothing to run, use --message or --server.enabled")
		return nil
	}

	model, info, err := models.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoModel) {
			return fmt.Errorf("no trained model, import a corpus and run with --training.enabled first")
		}
		return fmt.Errorf("can't load model, %w", err)
	}
	log.Printf("[INFO] using %s", info)

	if opts.Message != "" {
		verdict := model.Classify(opts.Message)
		fmt.Printf("%s\n", verdict.String())
		return nil
	}

	loggerWr, err := makeVerdictLogWriter(opts)
	if err != nil {
		return fmt.Errorf("can't make verdict log writer, %w", err)
	}
	defer loggerWr.Close()

	srv := webapi.NewServer(webapi.Config{
		Version:       revision,
		ListenAddr:    opts.Server.ListenAddr,
		Classifier:    model,
		SampleStore:   samples,
		VerdictLogger: makeVerdictLogger(loggerWr),
		AuthPasswd:    opts.Server.AuthPasswd,
		Dbg:           opts.Dbg,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("webapi server failed, %w", err)
	}
	return nil
}

// makeDB creates a database connection, postgres for postgres:// connection
// strings and sqlite for everything else.
func makeDB(ctx context.Context, conn string) (*engine.SQL, error) {
	if strings.HasPrefix(conn, "postgres://") {
		log.Printf("[DEBUG] using postgres db")
		return engine.NewPostgres(ctx, conn)
	}
	log.Printf("[DEBUG] using sqlite db %s", conn)
	return engine.NewSqlite(conn)
}

// importCorpus loads a labeled corpus file into the samples storage
func importCorpus(ctx context.Context, samples *storage.Samples, path string, replace bool) error {
	rows, err := dataset.LoadFile(path)
	if err != nil {
		return err
	}
	stats, err := samples.Import(ctx, rows, replace)
	if err != nil {
		return err
	}
	log.Printf("[INFO] imported corpus %s, stored samples %s", path, stats)
	return nil
}

// train retrains the model on stored samples, evaluates it on the held-out
// part and saves the snapshot.
func train(ctx context.Context, samples *storage.Samples, models *storage.Models, opts options) error {
	rows, err := samples.Messages(ctx)
	if err != nil {
		return err
	}

	trainSet, evalSet, err := dataset.Split(rows, opts.Training.TrainRatio, opts.Training.Seed)
	if err != nil {
		return err
	}

	model, err := bayes.Train(trainSet, opts.Training.Alpha)
	if err != nil {
		return err
	}

	eval := dataset.Evaluate(model, evalSet)
	log.Printf("[INFO] trained on %d samples, evaluation: %s", len(trainSet), eval)

	id, err := models.Save(ctx, model, eval.Accuracy())
	if err != nil {
		return err
	}
	log.Printf("[INFO] saved model #%d, alpha: %.2f, vocab: %d", id, model.Alpha(), model.VocabSize())
	return nil
}

// makeVerdictLogger creates a logger to keep reports about check verdicts.
// it writes json lines to the provided writer
func makeVerdictLogger(wr io.Writer) webapi.VerdictLogger {
	return webapi.VerdictLoggerFunc(func(text string, verdict bayes.Result) {
		text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
		log.Printf("[INFO] verdict %s for %q", verdict.Class, text)
		m := struct {
			TimeStamp   string  `json:"ts"`
			Text        string  `json:"text"`
			Class       string  `json:"class"`
			Probability float64 `json:"probability"`
			Certain     bool    `json:"certain"`
		}{
			TimeStamp:   time.Now().In(time.Local).Format(time.RFC3339),
			Text:        text,
			Class:       verdict.Class.String(),
			Probability: verdict.Probability,
			Certain:     verdict.Certain,
		}
		line, err := json.Marshal(&m)
		if err != nil {
			log.Printf("[WARN] can't marshal json, %v", err)
			return
		}
		if _, err := wr.Write(append(line, '\n')); err != nil {
			log.Printf("[WARN] can't write to log, %v", err)
		}
	})
}

// makeVerdictLogWriter creates a verdict log writer with rotation.
// it parses options and makes lumberjack logger
func makeVerdictLogWriter(opts options) (io.WriteCloser, error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	sizeParse := func(inp string) (uint64, error) {
		if inp == "" {
			return 0, errors.New("empty value")
		}
		for i, sfx := range []string{"k", "m", "g", "t"} {
			if strings.HasSuffix(inp, strings.ToUpper(sfx)) || strings.HasSuffix(inp, strings.ToLower(sfx)) {
				val, err := strconv.Atoi(inp[:len(inp)-1])
				if err != nil {
					return 0, fmt.Errorf("can't parse %s: %w", inp, err)
				}
				return uint64(float64(val) * math.Pow(float64(1024), float64(i+1))), nil
			}
		}
		return strconv.ParseUint(inp, 10, 64)
	}

	maxSize, perr := sizeParse(opts.Logger.MaxSize)
	if perr != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", perr)
	}

	maxSize /= 1048576

	log.Printf("[INFO] verdict logger enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), // in MB
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	nonEmpty := []string{}
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
