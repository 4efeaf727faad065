package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/park285/primordia/internal/adapter/evalpresenter"
	"github.com/park285/primordia/internal/apiclient"
	appcfg "github.com/park285/primordia/internal/config"
	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/evalbuilder"
	"github.com/park285/primordia/internal/obslog"
	"github.com/park285/primordia/internal/render"
	"github.com/park285/primordia/internal/scenario"
	"github.com/park285/primordia/pkg/evaldto"
	"go.uber.org/zap"
)

type options struct {
	pngPath string
	title   string
	record  int
	encode  bool
	book    bool
	server  string
	path    string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init failed, continuing without logs: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if opts.server != "" {
		err = runRemote(ctx, opts, os.Stdout)
	} else {
		err = runLocal(ctx, opts, os.Stdout)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("primordia", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.pngPath, "png", "", "write a board image to this path")
	fs.StringVar(&opts.title, "title", "", "title drawn on the board image")
	fs.IntVar(&opts.record, "record", 0, "index the scenario as a finished game won by player 1 or 2")
	fs.BoolVar(&opts.encode, "encode", false, "print the model feature encoding as JSON")
	fs.BoolVar(&opts.book, "book", false, "print the book deployment for player 1's faction")
	fs.StringVar(&opts.server, "server", "", "evaluate through a running primordia server at this base URL")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: primordia [-png out.png] [-title T] [-record 1|2] [-encode] [-book] [-server URL] scenario.yaml")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, fmt.Errorf("expected exactly one scenario file")
	}
	opts.path = fs.Arg(0)
	if opts.record != 0 && opts.record != 1 && opts.record != 2 {
		return options{}, fmt.Errorf("-record must be 1 or 2")
	}
	if opts.encode && opts.server != "" {
		return options{}, fmt.Errorf("-encode is only available locally")
	}
	return opts, nil
}

func runLocal(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	deps, err := evalbuilder.New(cfg, obslog.L())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() { _ = deps.Close() }()

	state, err := scenario.Load(opts.path)
	if err != nil {
		return err
	}
	svc := deps.Service
	presenter := newPresenter(out, opts.pngPath)

	ev, err := svc.Evaluate(state)
	if err != nil {
		return err
	}
	report, err := deps.Formatter.Evaluation(state, evalpresenter.ToDTOEvaluation(ev))
	if err != nil {
		return err
	}
	var png []byte
	if opts.pngPath != "" {
		png, err = svc.Render(ctx, state, render.Options{Title: opts.title})
		if err != nil {
			return err
		}
	}
	if err := presenter.Report(report, png); err != nil {
		return err
	}

	if opts.book {
		faction, opponent := domain.PrimaryFaction(state.Player1Units), domain.PrimaryFaction(state.Player2Units)
		rec, err := svc.BookSetup(ctx, faction, domain.RosterHash(state.Player1Units), opponent)
		if err != nil {
			return err
		}
		text, err := deps.Formatter.BookSetup(evalpresenter.ToDTOBookSetup(rec))
		if err != nil {
			return err
		}
		if err := presenter.Report(text, nil); err != nil {
			return err
		}
	}

	if opts.encode {
		enc, err := svc.Encode(state)
		if err != nil {
			return err
		}
		body, err := json.MarshalIndent(evalpresenter.ToDTOEncoded(state.ID.String(), svc.Encoder(), enc), "", "  ")
		if err != nil {
			return err
		}
		if err := presenter.Report(string(body), nil); err != nil {
			return err
		}
	}

	if opts.record != 0 {
		game, err := svc.RecordState(ctx, state, opts.record)
		if err != nil {
			return err
		}
		if !cfg.DatabaseEnabled() {
			obslog.L().Warn("game indexed in memory only; set DATABASE_URL to keep it", zap.String("game_id", game.ID))
		}
		text, err := deps.Formatter.Recorded(evalpresenter.ToDTOGame(game))
		if err != nil {
			return err
		}
		if err := presenter.Report(text, nil); err != nil {
			return err
		}
	}
	return nil
}

func runRemote(ctx context.Context, opts options, out io.Writer) error {
	doc, err := os.ReadFile(opts.path)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	client := apiclient.NewClient(opts.server)
	presenter := newPresenter(out, opts.pngPath)

	var evResp *evaldto.EvaluateResponse
	if opts.record != 0 {
		saved, err := client.SaveState(ctx, doc)
		if err != nil {
			return err
		}
		if evResp, err = client.StateEvaluation(ctx, saved.StateID); err != nil {
			return err
		}
	} else if evResp, err = client.Evaluate(ctx, doc); err != nil {
		return err
	}

	var png []byte
	if opts.pngPath != "" {
		if png, err = client.Render(ctx, doc, opts.title); err != nil {
			return err
		}
	}
	if err := presenter.Report(evResp.Report, png); err != nil {
		return err
	}

	if opts.book {
		state, err := scenario.Parse(doc)
		if err != nil {
			return err
		}
		faction, opponent := domain.PrimaryFaction(state.Player1Units), domain.PrimaryFaction(state.Player2Units)
		resp, err := client.BookSetup(ctx, faction, domain.RosterHash(state.Player1Units), opponent)
		if err != nil {
			return err
		}
		if err := presenter.Report(resp.Report, nil); err != nil {
			return err
		}
	}

	if opts.record != 0 {
		resp, err := client.RecordGame(ctx, evaldto.RecordGameRequest{StateID: evResp.StateID, Winner: opts.record})
		if err != nil {
			return err
		}
		if err := presenter.Report(resp.Report, nil); err != nil {
			return err
		}
	}
	return nil
}

// newPresenter prints text to out and writes images to pngPath.
func newPresenter(out io.Writer, pngPath string) *evalpresenter.Presenter {
	return evalpresenter.NewPresenter(
		func(message string) error {
			_, err := fmt.Fprintln(out, message)
			return err
		},
		func(png []byte) error {
			if pngPath == "" {
				return nil
			}
			if err := os.WriteFile(pngPath, png, 0o644); err != nil {
				return fmt.Errorf("write png: %w", err)
			}
			fmt.Fprintf(out, "board image written to %s\n", pngPath)
			return nil
		},
	)
}
