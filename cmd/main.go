package main

import (
	"context"
	"fmt"
	"os"

	"newsbacktest/cmd/backtest"
	"newsbacktest/cmd/bars"
	"newsbacktest/cmd/news"
	"newsbacktest/cmd/serve"
	"newsbacktest/src/database"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	app := cli.NewApp()
	app.Name = "Newsbacktest CMD"
	app.Usage = "The news backtest command line interface"

	app.Commands = []cli.Command{
		backtestCMD,
		barsCMD,
		newsCMD,
		serveCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	backtestCMD = cli.Command{
		Name:        "backtest",
		Usage:       "run a backtest",
		Action:      backtestAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run a full backtest over the stored bars and press releases`,
	}
	barsCMD = cli.Command{
		Name:        "bars",
		Usage:       "download daily bars",
		Action:      barsAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Download daily bars from Polygon into the database`,
	}
	newsCMD = cli.Command{
		Name:        "news",
		Usage:       "import press releases",
		Action:      newsAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Import classified press releases from a CSV file`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the results API",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve persisted runs, pnl and positions over HTTP`,
	}
)

func backtestAction(_ *cli.Context) error {
	logrus.Info("Starting backtest CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	bt := &backtest.Backtest{
		Log: logrus.WithField("cmd", "backtest"),
		DB:  database.MainDB,
	}
	if err := bt.Start(context.Background()); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func barsAction(_ *cli.Context) error {
	logrus.Info("Starting bars CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	downloader := &bars.Bars{
		Log: logrus.WithField("cmd", "bars"),
		DB:  database.MainDB,
	}
	if err := downloader.Start(context.Background()); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func newsAction(_ *cli.Context) error {
	logrus.Info("Starting news CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	importer := &news.News{
		Log: logrus.WithField("cmd", "news"),
		DB:  database.MainDB,
	}
	if err := importer.Start(context.Background()); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	srv := &serve.Serve{Log: logrus.WithField("cmd", "serve")}
	if err := srv.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
