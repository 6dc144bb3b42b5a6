package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/ssorj/stagger/internal/platform/console"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

// App represents a long-running component that the Launcher supervises: the
// HTTP surface, the AMQP surface, and the persistence worker each implement
// this interface.
type App interface {
	Run(ctx context.Context, launcher *Launcher) error
}

// LauncherOption defines a function option for Launcher.
type LauncherOption func(l *Launcher)

// WithLogger adds a mlog.Logger component to launcher.
func WithLogger(logger mlog.Logger) LauncherOption {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// RunApp registers an App to start when the launcher runs.
func RunApp(name string, app App) LauncherOption {
	return func(l *Launcher) {
		l.Add(name, app)
	}
}

// Launcher manages the set of apps making up the stagger process and runs
// them concurrently until every one of them has returned. Each app receives
// the supplied context, which cmd/stagger/main.go cancels on an OS signal;
// an app that exits on its own does not stop the others.
type Launcher struct {
	Logger mlog.Logger
	apps   map[string]App
	wg     *sync.WaitGroup
}

// Add registers an application to be started by Run.
func (l *Launcher) Add(appName string, a App) *Launcher {
	l.apps[appName] = a
	return l
}

// Run starts every registered application in its own goroutine and blocks
// until all of them have returned.
func (l *Launcher) Run(ctx context.Context) {
	count := len(l.apps)
	l.wg.Add(count)

	fmt.Println(console.Title("Launcher Run"))

	l.Logger.Infof("Starting %d app(s)", count)

	for name, app := range l.apps {
		go func(name string, app App) {
			defer l.wg.Done()

			l.Logger.Infof("Launcher: app (%s) starting", name)

			if err := app.Run(ctx, l); err != nil {
				l.Logger.Errorf("Launcher: app (%s) error: %v", name, err)
			}

			l.Logger.Infof("Launcher: app (%s) finished", name)
		}(name, app)
	}

	l.wg.Wait()

	l.Logger.Info("Launcher: terminated")
}

// NewLauncher creates an instance of Launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{
		apps: make(map[string]App),
		wg:   new(sync.WaitGroup),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}
