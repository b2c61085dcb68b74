package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/accbot/core/config"
	coretelegram "github.com/m3rciful/accbot/core/telegram"
)

type closingApp struct {
	closed   int
	closeErr error
}

func (a *closingApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *closingApp) Close() error {
	a.closed++
	return a.closeErr
}

func testOptions(t *testing.T, app *closingApp, run func(context.Context, coretelegram.RunOptions) error) Options {
	t.Helper()
	return Options{
		DefaultConfigPath: "config.yaml",
		ConfigEnvVar:      "ACCBOT_TEST_CONFIG_PATH",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return &coreconfig.Config{}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram:    run,
	}
}

func TestRunClosesAppAfterStop(t *testing.T) {
	app := &closingApp{}
	err := Run(testOptions(t, app, func(context.Context, coretelegram.RunOptions) error { return nil }))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if app.closed != 1 {
		t.Fatalf("closed %d times", app.closed)
	}
}

func TestRunClosesAppWhenRuntimeFails(t *testing.T) {
	app := &closingApp{closeErr: errors.New("db busy")}
	boom := errors.New("bot initialization failed")
	err := Run(testOptions(t, app, func(context.Context, coretelegram.RunOptions) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want runtime failure", err)
	}
	if app.closed != 1 || err.Error() == boom.Error() {
		t.Fatalf("close error must be joined, got %v (closed %d)", err, app.closed)
	}
}

func TestRunLoadsEnvFiles(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("ACCBOT_TEST_CONFIG_PATH=/etc/accbot.yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACCBOT_TEST_CONFIG_PATH", "")
	os.Unsetenv("ACCBOT_TEST_CONFIG_PATH")

	var gotPath string
	opts := testOptions(t, &closingApp{}, func(context.Context, coretelegram.RunOptions) error { return nil })
	opts.EnvFiles = []string{filepath.Join(dir, "missing.env"), env}
	opts.LoadConfig = func(path string) (ConfigCarrier, error) {
		gotPath = path
		return &coreconfig.Config{}, nil
	}
	if err := Run(opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotPath != "/etc/accbot.yaml" {
		t.Fatalf("config path = %q", gotPath)
	}
}
