package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/tigerroll/roomrate/internal/app"
	"github.com/tigerroll/roomrate/internal/brief"
)

var (
	envFilePath string
	dbAdaptors  string
)

func newRootCmd() *cobra.Command {
	defaultEnv := os.Getenv("ENV_FILE_PATH")
	if defaultEnv == "" {
		defaultEnv = ".env"
	}

	root := &cobra.Command{
		Use:           "roomrate",
		Short:         "Room demand forecasting and rate recommendation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFilePath, "env-file", defaultEnv, "Path of the .env file loaded before the configuration")
	root.PersistentFlags().StringVar(&dbAdaptors, "db-adaptors", "", "Comma separated DB providers to register (default: $DB_ADAPTORS or postgres,mysql,sqlite)")

	root.AddCommand(runCmd(), etlCmd(), migrateCmd(), serveCmd(), briefCmd(), userCmd())
	return root
}

func newApplication() (*app.Application, error) {
	return app.New(envFilePath, embeddedConfig, app.DBProviderOptions(dbAdaptors))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Forecast demand and recommend rates over the horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication()
			if err != nil {
				return err
			}
			result, err := a.RunPipeline(cmd.Context(), migrate)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply schema migrations before running")
	return cmd
}

func etlCmd() *cobra.Command {
	var withPipeline bool
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Ingest the reservation and competitor batch files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication()
			if err != nil {
				return err
			}
			summary, result, err := a.RunETL(cmd.Context(), withPipeline)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"etl": summary, "run": result})
		},
	}
	cmd.Flags().BoolVar(&withPipeline, "with-pipeline", false, "Run the forecast pipeline after ingesting")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication()
			if err != nil {
				return err
			}
			return a.Migrate(cmd.Context())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication()
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context())
		},
	}
}

func briefCmd() *cobra.Command {
	var (
		send bool
		to   string
	)
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Write the daily rate brief for the coming week",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication()
			if err != nil {
				return err
			}
			result, err := a.Brief(cmd.Context(), brief.Request{Send: send, To: to})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "Mail the brief")
	cmd.Flags().StringVar(&to, "to", "", "Recipient (default: brief.smtp.admin_email)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	var email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an API user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication()
			if err != nil {
				return err
			}
			user, err := a.AddUser(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"id": user.ID, "email": user.Email})
		},
	}
	add.Flags().StringVar(&email, "email", "", "User email")
	add.Flags().StringVar(&password, "password", "", "User password")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
