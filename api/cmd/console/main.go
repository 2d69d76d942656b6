package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"rock-id/api/internal/app"
	"rock-id/api/internal/config"
	"rock-id/api/internal/logger"
	"rock-id/api/internal/telegram"
	"rock-id/api/internal/ui"
)

func main() {
	err := mainImpl()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const help = `commands:
  open <path>     select an image file
  identify        identify the selected image
  match <rock>    score the last analysis against the catalog
  engine [name]   show or switch engine (gemini | gpt)
  clear           clear selection and result
  quit`

func mainImpl() error {
	cfgPath := flag.String("config", "config.yaml", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	log, err := logger.New("release")
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	act, err := a.Actions.Get("")
	if err != nil {
		return err
	}
	notify := ui.NotifierFunc(func(n ui.Notification) {
		fmt.Printf("! %s: %s\n", n.Title, n.Description)
	})
	ctrl := ui.NewController(act, notify)

	rl, err := readline.New("rock> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()
	fmt.Println(help)

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF, Ctrl+C
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return nil
			}
			return err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "":
		case "open":
			f, err := os.Open(arg)
			if err != nil {
				fmt.Println(err)
				continue
			}
			err = ctrl.SelectFile(arg, f)
			_ = f.Close()
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("selected", arg)
		case "identify":
			fmt.Println("identifying...")
			if _, err := ctrl.Submit(ctx); err != nil {
				continue
			}
			if v := ctrl.View(); v.Result != nil {
				fmt.Println(telegram.FormatResult(v))
			}
		case "match":
			v := ctrl.View()
			analysis := ""
			if v.Result != nil {
				analysis = v.Result.Information
			}
			res := act.ScoreMatch(ctx, analysis, arg)
			if !res.Success {
				fmt.Println("error:", res.Error)
				continue
			}
			fmt.Println("match:", ui.SimilarityLabel(res.Data.MatchPercentage))
		case "engine":
			if arg == "" {
				fmt.Println("engine:", act.Engine(), "available:", strings.Join(a.Actions.Available(), ", "))
				continue
			}
			next, err := a.Actions.Get(arg)
			if err != nil {
				fmt.Println(err)
				continue
			}
			act = next
			ctrl = ui.NewController(act, notify)
			fmt.Println("engine:", act.Engine())
		case "clear":
			ctrl.Clear()
		case "quit", "exit":
			return nil
		default:
			fmt.Println(help)
		}
	}
}
