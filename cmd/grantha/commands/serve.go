package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/medhayu/grantha/internal/config"
	"github.com/medhayu/grantha/internal/server"
	"github.com/medhayu/grantha/internal/store"
)

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	var configPath string
	var port string
	var host string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--port" || arg == "-p" {
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		} else if arg == "--host" {
			if i+1 < len(args) {
				host = args[i+1]
				i++
			}
		} else if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		} else if !strings.HasPrefix(arg, "-") {
			configPath = arg
		}
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Using config: %s\n", configPath)
	} else {
		cfg, err = config.LoadFromDir(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// CLI flags override config
	if port != "" {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if cfg.Server.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	srv := server.New(cfg, st)
	defer srv.Close()

	if err := srv.LoadGlossary(context.Background()); err != nil {
		logrus.Warnf("glossary unavailable: %v", err)
	}
	if err := srv.EnableWatch(); err != nil {
		return fmt.Errorf("failed to watch glossary: %w", err)
	}

	addr := cfg.Server.Addr()
	fmt.Printf("Grantha editing server\n")
	fmt.Printf("Store: %s\n", storeLabel(cfg.Store))
	if cfg.Glossary.File != "" {
		fmt.Printf("Glossary: %s (watched)\n", cfg.Glossary.File)
	} else if cfg.Glossary.Active != "" {
		fmt.Printf("Glossary: %s\n", cfg.Glossary.Active)
	}
	fmt.Printf("Listening at http://%s\n", addr)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	httpSrv := &http.Server{Addr: addr, Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigCh:
		fmt.Println("\nShutting down...")
		return httpSrv.Shutdown(context.Background())
	}
}

func storeLabel(cfg config.StoreConfig) string {
	if cfg.Type == "postgres" {
		return "postgres"
	}
	db := cfg.DB
	if db == "" {
		db = "grantha.db"
	}
	return "sqlite (" + db + ")"
}
