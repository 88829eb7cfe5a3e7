package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/cmdlog"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core"
	"github.com/oneconcern/datalink/pkg/dlogger"
	"github.com/oneconcern/datalink/pkg/storage/localfs"
	"github.com/oneconcern/datalink/pkg/vcs/git"
)

const logDir = "log"

// commandContext is cancelled on SIGINT and SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func home() string {
	return viper.GetString("home")
}

func logger() *zap.Logger {
	l, err := dlogger.GetLogger(viper.GetString("loglevel"))
	if err != nil {
		wrapFatalln("failed to build logger", err)
		return zap.NewNop()
	}
	return l
}

func newDatalink(opts ...core.Option) *core.Datalink {
	l := logger()
	fs := afero.NewOsFs()
	store, err := localfs.NewAtomic(afero.NewBasePathFs(fs, filepath.Join(home(), logDir)))
	if err != nil {
		wrapFatalln("failed to open the command log", err)
		return nil
	}
	base := []core.Option{
		core.WithFs(fs),
		core.WithHome(home()),
		core.WithPassword(viper.GetString("password")),
		core.WithCommandLog(cmdlog.New(store, cmdlog.Logger(l))),
		core.WithLogger(l),
	}
	return core.New(append(base, opts...)...)
}

// resolver for the working copy holding path, if any
func resolver(ctx context.Context, path string) *config.Resolver {
	l := logger()
	root := ""
	if abs, err := filepath.Abs(path); err == nil {
		if top, err := git.New(abs, git.WithLogger(l)).TopLevelPath(ctx); err == nil {
			if _, err := os.Stat(filepath.Join(top, config.PublicDir)); err == nil {
				root = top
			}
		}
	}
	r, err := config.New(root, config.WithHome(home()), config.WithLogger(l))
	if err != nil {
		wrapFatalln("failed to read settings", err)
		return nil
	}
	return r
}

func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
