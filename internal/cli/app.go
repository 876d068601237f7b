// Package cli implements railctl, the operator command line over the file
// store.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/internal/config"
	"github.com/tiagodcc/ikts/internal/infrastructure/indicator"
	"github.com/tiagodcc/ikts/internal/infrastructure/store"
	"github.com/tiagodcc/ikts/pkg/logging"
)

// app holds the flags and services shared by all commands
type app struct {
	dataDir    string
	configPath string
	jsonOut    bool

	out    io.Writer
	errOut io.Writer

	inventory *application.InventoryApplicationService
	plans     *application.PlanApplicationService
	transfer  *application.TransferApplicationService
}

// open wires the services over the file store in dataDir
func (a *app) open(cmd *cobra.Command, _ []string) error {
	configureColor(a.out, a.jsonOut)

	logConfig := logging.DefaultConfig("railctl")
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "warn"))
	logConfig.Output = a.errOut
	logger := logging.New(logConfig)

	settings, err := config.LoadPlannerSettings(a.configPath)
	if err != nil {
		return err
	}

	persister, err := store.NewFilePersister(a.dataDir)
	if err != nil {
		return err
	}
	s, err := store.Open(persister, logger)
	if err != nil {
		return fmt.Errorf("opening store in %s: %w", a.dataDir, err)
	}

	a.inventory = application.NewInventoryApplicationService(store.NewRailRepository(s.Rails, nil, logger), indicator.Nop{}, nil, logger)
	a.plans = application.NewPlanApplicationService(store.NewPlanRepository(s.Plans, nil), a.inventory, settings, nil, logger)
	a.transfer = application.NewTransferApplicationService(a.plans, a.inventory, logger)
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// shortID trims identities for table output
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
