package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/llehouerou/wavestream/internal/app"
	"github.com/llehouerou/wavestream/internal/config"
	"github.com/llehouerou/wavestream/internal/icons"
	"github.com/llehouerou/wavestream/internal/lastfm"
	"github.com/llehouerou/wavestream/internal/logger"
	"github.com/llehouerou/wavestream/internal/stderr"
	"github.com/llehouerou/wavestream/internal/ui/screen"
)

const authTimeout = 5 * time.Minute

var (
	cli        = kingpin.New("wavestream", "Terminal player for a streaming music library")
	configPath = cli.Flag("config", "Config file, read after the default locations").Short('c').String()

	playCmd    = cli.Command("play", "Play a playlist or the whole library").Default()
	playlistID = playCmd.Flag("playlist", "Playlist ID; the whole library when empty").Short('p').String()
	startAt    = playCmd.Flag("start", "Queue index to start from").Default("0").Int()
	iconStyle  = playCmd.Flag("icons", "Icon style, overrides the config").Enum("nerd", "unicode", "none")

	authCmd = cli.Command("lastfm-auth", "Link a Last.fm account and print its session key")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	var err error
	switch kingpin.MustParse(cli.Parse(os.Args[1:])) {
	case playCmd.FullCommand():
		err = runPlayer()
	case authCmd.FullCommand():
		err = runLastfmAuth()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runPlayer() (err error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.Init(logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}

	// Audio libraries write to fd 2; keep that out of the TUI.
	if cfg.Log.Output == "file" {
		if err := stderr.Start(log); err != nil {
			log.Warn().Err(err).Msg("stderr capture unavailable")
		}
		defer stderr.Stop()
	}

	style := cfg.UI.Icons
	if *iconStyle != "" {
		style = *iconStyle
	}
	icons.Init(style)

	session, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, session.Close())
	}()

	ctx := context.Background()
	if *playlistID != "" {
		err = session.PlayPlaylist(ctx, *playlistID, *startAt)
	} else {
		err = session.PlayLibrary(ctx, *startAt)
	}
	if err != nil {
		return err
	}

	ctrl := session.Controller()
	model := screen.New(ctrl, ctrl.Subscribe(), screen.Options{
		SeekStep:   cfg.UI.SeekStep,
		VolumeStep: cfg.UI.VolumeStep,
	})
	if _, err = tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "run interface")
	}
	return nil
}

func runLastfmAuth() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Lastfm.APIKey == "" || cfg.Lastfm.APISecret == "" {
		return errors.New("lastfm api_key and api_secret must be configured")
	}

	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)

	srv, err := lastfm.StartAuthServer(lastfm.DefaultAuthAddr)
	if err != nil {
		return err
	}
	defer srv.Shutdown()

	token, err := client.GetToken()
	if err != nil {
		return err
	}

	url := client.GetAuthURL(token, srv.CallbackURL())
	fmt.Println("Authorize wavestream in your browser:")
	fmt.Println()
	fmt.Println(url)
	fmt.Println()
	if err := lastfm.OpenBrowser(url); err != nil {
		fmt.Println("(could not open a browser, visit the URL above)")
	}
	fmt.Println("Waiting for authorization...")

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	authorized, err := srv.WaitToken(ctx)
	if err != nil {
		return errors.Wrap(err, "wait for authorization")
	}

	username, sessionKey, err := client.GetSession(authorized)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Linked Last.fm account %s.\n", username)
	fmt.Println()
	fmt.Println("Add this to your config.toml:")
	fmt.Println()
	fmt.Println("[lastfm]")
	fmt.Printf("session_key = %q\n", sessionKey)
	fmt.Println()
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export LASTFM_SESSION_KEY=%q\n", sessionKey)
	return nil
}
