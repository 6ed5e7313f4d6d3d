package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"binbird-backend/internal/config"
	"binbird-backend/internal/database"
	"binbird-backend/internal/middleware"
	"binbird-backend/internal/runstate"
	"binbird-backend/internal/storage"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "runctl",
		Short: "Inspect and repair stored run state",
		Long: `runctl reads the durable per-device run state the server keeps (sqlite, postgres or redis).

A running server also keeps a copy of each browser session's state in memory
and serves that copy first, so show and summary can lag behind what a
device sees. Use "clear --server" to reset a device on a live server.`,
	}

	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newSummaryCommand())
	rootCmd.AddCommand(newClearCommand())
	rootCmd.AddCommand(newDevicesCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openProvider opens the durable provider the server is configured with
func openProvider() (storage.Provider, config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Storage.Driver == config.DriverMemory {
		return nil, cfg, nil, fmt.Errorf("storage driver %q keeps state inside the server process", cfg.Storage.Driver)
	}

	var db *sqlx.DB
	if cfg.Storage.Driver == config.DriverPostgres {
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, cfg, nil, err
		}
	}

	provider, err := storage.Open(cfg.Storage, db)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, cfg, nil, err
	}
	cleanup := func() {
		provider.Close()
		if db != nil {
			db.Close()
		}
	}
	return provider, cfg, cleanup, nil
}

func repositoryFor(provider storage.Provider, cfg config.Config, deviceID string) *runstate.StoreRepository {
	identity := middleware.DeviceIdentity{DeviceID: deviceID}
	backends := []runstate.Backend{{Name: cfg.Storage.Driver, Storage: provider.Area(identity.DeviceScope())}}
	day := runstate.NewOperationalDay(cfg.Run.RolloverHour, cfg.Location())
	return runstate.NewRepository(backends, runstate.NopFlagCookie{}, day, time.Now)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deviceFlag(cmd *cobra.Command) (string, error) {
	deviceID, _ := cmd.Flags().GetString("device")
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", fmt.Errorf("--device is required")
	}
	return deviceID, nil
}

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored plan, session and menu flags of a device",
		Long:  "Print the durable plan, session and menu flags of a device. A live server may still serve a newer in-memory session copy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, err := deviceFlag(cmd)
			if err != nil {
				return err
			}
			provider, cfg, cleanup, err := openProvider()
			if err != nil {
				return err
			}
			defer cleanup()

			repo := repositoryFor(provider, cfg, deviceID)
			plan := repo.ReadPlannedRun()
			session := repo.ReadRunSession()
			return printJSON(map[string]interface{}{
				"device":  deviceID,
				"plan":    plan,
				"session": session,
				"menu":    runstate.DeriveRunMenuState(plan, session),
			})
		},
	}
	cmd.Flags().String("device", "", "Device ID (value of the binbird-device cookie)")
	return cmd
}

func newSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the run summary of a device without consuming it",
		Long:  "Print the durable run summary of a device without consuming it. A live server may still serve a newer in-memory session copy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, err := deviceFlag(cmd)
			if err != nil {
				return err
			}
			provider, cfg, cleanup, err := openProvider()
			if err != nil {
				return err
			}
			defer cleanup()

			session := repositoryFor(provider, cfg, deviceID).ReadRunSession()
			if session == nil {
				fmt.Println("No run session stored")
				return nil
			}
			stats := runstate.ComputeRunStats(*session)

			fmt.Printf("Jobs completed:  %d / %d (%d%%)\n", stats.CompletedJobs, stats.TotalJobs, stats.CompletionPercent)
			if stats.DurationLabel != nil {
				fmt.Printf("Duration:        %s\n", *stats.DurationLabel)
			} else {
				fmt.Println("Duration:        in progress")
			}
			if stats.AverageLabel != nil {
				fmt.Printf("Average per job: %s\n", *stats.AverageLabel)
			}
			return nil
		},
	}
	cmd.Flags().String("device", "", "Device ID (value of the binbird-device cookie)")
	return cmd
}

func newClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the stored plan and session of a device",
		Long: `Discard the plan and session of a device.

With --server the running server resets the device itself, which also drops
the in-memory copies of every browser session of that device. Without it
only the durable backend is cleared: stop the server first, or the device
keeps its run until its sessions expire.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, err := deviceFlag(cmd)
			if err != nil {
				return err
			}

			server, _ := cmd.Flags().GetString("server")
			if server != "" {
				token, _ := cmd.Flags().GetString("token")
				if token == "" {
					token = os.Getenv("RUNCTL_TOKEN")
				}
				if err := resetOnServer(cmd.Context(), server, token, deviceID); err != nil {
					return err
				}
				fmt.Printf("Server reset run state for device %s\n", deviceID)
				return nil
			}

			provider, cfg, cleanup, err := openProvider()
			if err != nil {
				return err
			}
			defer cleanup()

			repo := repositoryFor(provider, cfg, deviceID)
			repo.ClearPlannedRun()
			repo.ClearRunSession()
			fmt.Printf("Cleared durable run state for device %s (in-memory session copies on a running server are untouched)\n", deviceID)
			return nil
		},
	}
	cmd.Flags().String("device", "", "Device ID (value of the binbird-device cookie)")
	cmd.Flags().String("server", "", "Base URL of a running server, e.g. http://localhost:8080")
	cmd.Flags().String("token", "", "Admin bearer token (defaults to $RUNCTL_TOKEN)")
	return cmd
}

// resetOnServer asks a running server to drop a device's run state
func resetOnServer(ctx context.Context, server, token, deviceID string) error {
	if token == "" {
		return fmt.Errorf("--token or RUNCTL_TOKEN is required with --server")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := strings.TrimRight(server, "/") + "/api/admin/devices/" + deviceID + "/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build reset request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server refused reset: %s", resp.Status)
	}
	return nil
}

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices with stored run state (sqlite and postgres only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, _, cleanup, err := openProvider()
			if err != nil {
				return err
			}
			defer cleanup()

			sqlProvider, ok := provider.(*storage.SQLProvider)
			if !ok {
				return fmt.Errorf("listing devices needs a SQL storage driver")
			}
			scopes, err := sqlProvider.Scopes()
			if err != nil {
				return err
			}
			for _, scope := range scopes {
				if deviceID, ok := strings.CutPrefix(scope, "device:"); ok {
					fmt.Println(deviceID)
				}
			}
			return nil
		},
	}
}
