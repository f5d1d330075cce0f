package cmd

import (
	"context"
	"fmt"

	"rollcall/attendance"
	"rollcall/config"
	"rollcall/db"
	"rollcall/events"
	"rollcall/faces"
	"rollcall/faces/dlib"
	"rollcall/handlers"
	"rollcall/i18n"
	"rollcall/models"
	"rollcall/push"
	"rollcall/storage"
	"rollcall/store"
	"rollcall/store/gormstore"
	"rollcall/store/memstore"
	"rollcall/store/mongostore"
	"rollcall/sweeper"

	"go.uber.org/zap"
)

// app is everything a command needs, wired from config
type app struct {
	store   store.Store
	images  *storage.ImageStore
	matcher *faces.Matcher
	service *attendance.Service
	sweeper *sweeper.Sweeper
	runs    *sweeper.RunLog
	live    *handlers.LiveFeed
}

func openStore(ctx context.Context) (store.Store, error) {
	switch config.STORE_BACKEND {
	case "", "sql":
		s := gormstore.New(db.Instance)
		if err := s.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return s, nil
	case "mongo":
		return mongostore.Connect(ctx, config.MONGO_URI, config.MONGO_DATABASE)
	case "memory":
		zap.S().Warn("STORE_BACKEND=memory, attendance is lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.STORE_BACKEND)
}

func facePolicy() faces.Policy {
	return faces.Policy{
		Threshold:    config.FACE_MATCH_THRESHOLD,
		MaxDistance:  config.FACE_MAX_DISTANCE,
		Timeout:      config.FACE_MATCH_TIMEOUT,
		ProbeMaxSize: uint(max(config.FACE_PROBE_MAX_SIZE, 0)),
	}
}

func newApp(ctx context.Context) (*app, error) {
	db.Init()
	models.Init()
	storage.Init()
	i18n.Init(config.DEFAULT_LOCALE)

	schedule, err := attendance.NewSchedule(config.DAY_SHIFT_START, config.NIGHT_SHIFT_START, config.GRACE_PERIOD)
	if err != nil {
		return nil, err
	}
	s, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{
		store:   s,
		images:  storage.DefaultImageStore(),
		matcher: faces.NewMatcher(facePolicy()),
		live:    handlers.NewLiveFeed(),
	}
	sink := events.Fanout{a.live, push.NewNotifier(config.PUSH_SERVER, config.DEFAULT_LOCALE, push.HRTokens)}
	a.service = attendance.NewService(attendance.Deps{
		Store:       s,
		Matcher:     a.matcher,
		Images:      a.images,
		Events:      sink,
		Schedule:    schedule,
		Location:    config.Location(),
		MaxAttempts: config.MAX_CHECKIN_ATTEMPTS,
	})
	if a.runs, err = sweeper.NewRunLog(db.Instance); err != nil {
		return nil, err
	}
	a.sweeper, err = sweeper.New(s, sink, a.runs, sweeper.Config{
		At:          config.SWEEP_AT,
		CatchUpDays: config.SWEEP_CATCHUP_DAYS,
		DayEnd:      schedule.DayStart,
		Location:    config.Location(),
		Locate:      a.service.EmployeeLocation,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// loadMatcher loads the dlib models, which takes a few seconds
func (a *app) loadMatcher() error {
	return a.matcher.Load(dlib.Open(config.FACE_MODELS_DIR, config.FACE_DETECT_CNN))
}

func (a *app) ready(ctx context.Context) error {
	if !a.matcher.Ready() {
		return faces.ErrModelNotReady
	}
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	sqlDB, err := db.Instance.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *app) Close(ctx context.Context) error {
	a.matcher.Close()
	return a.store.Close(ctx)
}
