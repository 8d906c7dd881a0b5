package app

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/dmizin/computer-inventory/internal/model"
)

// App holds attributes for the inventory application.
type App struct {
	// Sync waitgroup to wait for running go routines on termination.
	SyncWG *sync.WaitGroup
	// Application configuration.
	Config *Configuration
	// TermCh is the channel to terminate the app based on a signal
	TermCh chan os.Signal
	// Logger is the app logger
	Logger *logrus.Logger

	v *viper.Viper
}

// New returns a new instance of the inventory app.
func New(cfgFile string, loglevel int) (*App, error) {
	app := &App{
		v:      viper.New(),
		Config: &Configuration{},
		SyncWG: &sync.WaitGroup{},
		Logger: logrus.New(),
		TermCh: make(chan os.Signal, 1),
	}

	if err := app.LoadConfiguration(cfgFile); err != nil {
		return nil, err
	}

	switch loglevel {
	case model.LogLevelDebug:
		app.Logger.Level = logrus.DebugLevel
	case model.LogLevelTrace:
		app.Logger.Level = logrus.TraceLevel
	default:
		app.Logger.Level = logrus.InfoLevel
	}

	app.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{}},
	)

	// register for SIGINT, SIGTERM
	signal.Notify(app.TermCh, syscall.SIGINT, syscall.SIGTERM)

	return app, nil
}
