package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/IxianPixel/wavepod/internal/audio"
	"github.com/IxianPixel/wavepod/internal/cache"
	"github.com/IxianPixel/wavepod/internal/config"
	"github.com/IxianPixel/wavepod/internal/controller"
	"github.com/IxianPixel/wavepod/internal/event"
	"github.com/IxianPixel/wavepod/internal/fetch"
	"github.com/IxianPixel/wavepod/internal/logger"
	"github.com/IxianPixel/wavepod/internal/player"
	"github.com/IxianPixel/wavepod/internal/queue"
	"github.com/IxianPixel/wavepod/internal/session"
	"github.com/IxianPixel/wavepod/internal/soundcloud"
	"github.com/IxianPixel/wavepod/internal/track"
)

const libraryLimit = 200

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	tokens := soundcloud.NewTokenManager(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, cfg.RefreshToken, zl)
	client := soundcloud.NewClient(tokens, zl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracks, err := client.LikedTracks(ctx, libraryLimit)
	if err != nil {
		log.Fatal(err)
	}
	// The catalogue can repeat tracks across pages; the store dedups and is
	// the one place descriptors live.
	library := track.NewStore(tracks)
	if library.Len() == 0 {
		log.Fatal("no playable tracks in your likes")
	}
	fmt.Printf("Found %d songs\n", library.Len())

	q := queue.New()
	streams := cache.New(cfg.CacheCapacity, q.Distance)
	fetcher := fetch.New(tokens, zl)
	defer fetcher.Close()

	engine, err := player.New(cfg.SampleRate, audio.SpeakerBackend{}, streams)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	sess := session.New(q, streams, fetcher, engine, zl)
	go sess.Run(ctx)
	go printEvents(sess)

	if err := sess.Start(library.All(), 0); err != nil {
		log.Fatal(err)
	}

	ctrl, err := controller.New()
	if err != nil {
		log.Fatal(err)
	}
	defer ctrl.Stop()

	if err := ctrl.Run(sess); err != nil {
		zl.Error("controller stopped", zap.Error(err))
	}
}

// printEvents renders session events as single status lines. Raw terminal
// mode needs the explicit \r.
func printEvents(sess *session.Session) {
	for e := range sess.Events() {
		switch ev := e.(type) {
		case event.TrackChanged:
			fmt.Printf("\r\n> %s - %s (%s)\r\n", ev.Track.Artist, ev.Track.Title, ev.Track.Duration.Round(time.Second))
		case event.PlaybackProgress:
			fmt.Printf("\r  %s / %s ", ev.Position.Round(time.Second), ev.Duration.Round(time.Second))
		case event.StreamError:
			fmt.Printf("\r\n! track %d: %s (%v)\r\n", ev.TrackID, ev.Kind, ev.Err)
		case event.ReauthRequired:
			fmt.Print("\r\n! session expired, please re-authorize and restart\r\n")
		case event.QueueExhausted:
			fmt.Print("\r\nEnd of queue.\r\n")
		case event.AtQueueStart:
			fmt.Print("\r\nAlready at the first track.\r\n")
		}
	}
}
