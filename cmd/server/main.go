package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpapi "party-games/internal/api/http"
	"party-games/internal/api/ws"
	"party-games/internal/config"
	"party-games/internal/game/bomberman"
	"party-games/internal/game/doudizhu"
	"party-games/internal/game/qigui523"
	"party-games/internal/game/undercover"
	"party-games/internal/logger"
	"party-games/internal/store"
	"party-games/internal/work"
)

const shutdownTimeout = 10 * time.Second

var flagconf string

func init() {
	flag.StringVar(&flagconf, "config", os.Getenv("CONFIG_PATH"), "config path, e.g. -config config.yaml")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flagconf)
	if err != nil {
		return err
	}
	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	gin.SetMode(gin.ReleaseMode)

	sched := work.NewWheelScheduler()
	sched.Start()
	defer sched.Stop()

	hub := ws.NewHub(cfg.WS, log.Named("ws"))
	seed := time.Now().UnixNano()

	ddzLoop := work.NewLoop(0, log.Named("doudizhu"))
	ddz := doudizhu.NewModule(
		doudizhu.NewManager(store.NewRegistry[*doudizhu.Room](), rand.New(rand.NewSource(seed)), cfg.Doudizhu, log.Named("doudizhu")),
		hub, ddzLoop, log.Named("doudizhu"))

	qgLoop := work.NewLoop(0, log.Named("qigui523"))
	qg := qigui523.NewModule(
		qigui523.NewManager(store.NewRegistry[*qigui523.Room](), rand.New(rand.NewSource(seed+1)), cfg.Qigui523, log.Named("qigui523")),
		hub, qgLoop, log.Named("qigui523"))

	ucLoop := work.NewLoop(0, log.Named("undercover"))
	uc := undercover.NewModule(
		undercover.NewManager(store.NewRegistry[*undercover.Room](), rand.New(rand.NewSource(seed+2)), cfg.Undercover, sched, ucLoop, log.Named("undercover")),
		hub, ucLoop, log.Named("undercover"))

	bmLoop := work.NewLoop(1024, log.Named("bomberman"))
	bm := bomberman.NewModule(
		bomberman.NewManager(store.NewRegistry[*bomberman.Room](), rand.New(rand.NewSource(seed+3)), cfg.Bomberman, sched, bmLoop, log.Named("bomberman")),
		hub, bmLoop, log.Named("bomberman"))

	loops := []*work.Loop{ddzLoop, qgLoop, ucLoop, bmLoop}
	for _, l := range loops {
		l.Start()
	}
	defer func() {
		for _, l := range loops {
			l.Stop()
		}
	}()

	hub.Mount(ddz, qg, uc, bm)
	games := []httpapi.Game{
		{Name: ddz.Name(), Lobby: func() any { return ddz.Lobby() }, Rooms: ddz.Rooms},
		{Name: qg.Name(), Lobby: func() any { return qg.Lobby() }, Rooms: qg.Rooms},
		{Name: uc.Name(), Lobby: func() any { return uc.Lobby() }, Rooms: uc.Rooms},
		{Name: bm.Name(), Lobby: func() any { return bm.Lobby() }, Rooms: bm.Rooms},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(hub, games, cfg, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
